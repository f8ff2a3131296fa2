package types

import "time"

// DayType restricts a window to certain days of the week.
type DayType string

const (
	DayTypeAll     DayType = "all"
	DayTypeWeekday DayType = "weekday"
	DayTypeWeekend DayType = "weekend"
)

// Season tags understood by Window.Matches. Months outside SeasonSummer are
// SeasonWinter.
const (
	SeasonSummer = "summer"
	SeasonWinter = "winter"
)

// Window is a time-of-use window within a single local day. Windows never wrap
// midnight: a schedule spanning midnight must be expressed as two windows.
type Window struct {
	StartMinute int     `json:"startMinute"` // inclusive, minute of local day
	EndMinute   int     `json:"endMinute"`   // exclusive
	DayType     DayType `json:"dayType,omitempty"`
	Season      string  `json:"season,omitempty"`
}

// Matches reports whether a local time described by minute-of-day, weekend
// flag, and month falls inside the window.
func (w Window) Matches(minuteOfDay int, weekend bool, month time.Month) bool {
	if minuteOfDay < w.StartMinute || minuteOfDay >= w.EndMinute {
		return false
	}
	switch w.DayType {
	case DayTypeWeekday:
		if weekend {
			return false
		}
	case DayTypeWeekend:
		if !weekend {
			return false
		}
	}
	if w.Season != "" {
		summer := month >= time.June && month <= time.September
		if w.Season == SeasonSummer && !summer {
			return false
		}
		if w.Season == SeasonWinter && summer {
			return false
		}
	}
	return true
}

// AnyWindowMatches reports whether any of the windows matches. An empty slice
// matches everything.
func AnyWindowMatches(windows []Window, minuteOfDay int, weekend bool, month time.Month) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if w.Matches(minuteOfDay, weekend, month) {
			return true
		}
	}
	return false
}

// EnergyCharge prices energy consumed inside its windows. Charges are tried in
// declaration order and the first whose windows match an interval wins; there
// is no stacking.
type EnergyCharge struct {
	Name          string   `json:"name"`
	DollarsPerKWH float64  `json:"dollarsPerKWH"`
	Windows       []Window `json:"windows,omitempty"`
}

// DeterminantKind identifies how a demand determinant picks its billing value.
type DeterminantKind string

const (
	DeterminantMonthlyMax DeterminantKind = "monthlyMax"
	DeterminantDailyMax   DeterminantKind = "dailyMax"
	DeterminantCustom     DeterminantKind = "custom"
)

// Tier is one step of a telescoping demand price. MaxKW of 0 means uncapped;
// the last tier should always be uncapped.
type Tier struct {
	MaxKW        float64 `json:"maxKW,omitempty"`
	DollarsPerKW float64 `json:"dollarsPerKW"`
}

// DemandDeterminant is a named demand billing component. Unset Windows means
// every interval counts toward it.
type DemandDeterminant struct {
	Name    string          `json:"name"`
	Kind    DeterminantKind `json:"kind"`
	Windows []Window        `json:"windows,omitempty"`
	Tiers   []Tier          `json:"tiers"`
}

// FirstTierDollarsPerKW returns the price of the lowest tier, or 0 when the
// determinant has no tiers.
func (d DemandDeterminant) FirstTierDollarsPerKW() float64 {
	if len(d.Tiers) == 0 {
		return 0
	}
	return d.Tiers[0].DollarsPerKW
}

// TariffModel is the full contract describing how a bill is computed. It is
// immutable once constructed; rules that change a tariff return a new one.
type TariffModel struct {
	ID              string              `json:"id"`
	RateCode        string              `json:"rateCode"`
	Timezone        string              `json:"timezone"` // IANA name, e.g. America/Chicago
	FixedMonthlyUSD float64             `json:"fixedMonthlyUSD,omitempty"`
	EnergyCharges   []EnergyCharge      `json:"energyCharges"`
	Determinants    []DemandDeterminant `json:"determinants"`
}

// Clone returns a deep copy so rule transforms can build a new tariff without
// sharing slices with the original.
func (t TariffModel) Clone() TariffModel {
	out := t
	out.EnergyCharges = make([]EnergyCharge, len(t.EnergyCharges))
	for i, ec := range t.EnergyCharges {
		out.EnergyCharges[i] = ec
		out.EnergyCharges[i].Windows = append([]Window(nil), ec.Windows...)
	}
	out.Determinants = make([]DemandDeterminant, len(t.Determinants))
	for i, d := range t.Determinants {
		out.Determinants[i] = d
		out.Determinants[i].Windows = append([]Window(nil), d.Windows...)
		out.Determinants[i].Tiers = append([]Tier(nil), d.Tiers...)
	}
	return out
}
