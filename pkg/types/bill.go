package types

import "time"

// DeterminantCharge is one determinant's line on a bill, with the value that
// bound it and the interval timestamps that produced that value.
type DeterminantCharge struct {
	Name              string          `json:"name"`
	Kind              DeterminantKind `json:"kind"`
	BindingKW         float64         `json:"bindingKW"`
	BindingTimestamps []time.Time     `json:"bindingTimestamps,omitempty"`
	AmountUSD         float64         `json:"amountUSD"`
}

// BillBreakdown is the itemized result of running a tariff over an interval
// series.
type BillBreakdown struct {
	FixedUSD     float64             `json:"fixedUSD"`
	EnergyUSD    float64             `json:"energyUSD"`
	EnergyKWH    float64             `json:"energyKWH"`
	DemandUSD    float64             `json:"demandUSD"`
	TotalUSD     float64             `json:"totalUSD"`
	Determinants []DeterminantCharge `json:"determinants,omitempty"`
}
