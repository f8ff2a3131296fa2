package types

import "math"

// Default SOC bounds used when a BatterySpec omits them.
const (
	DefaultMinSOCFraction = 0.10
	DefaultMaxSOCFraction = 0.90
)

// BatterySpec describes a controllable battery. SOC fractions are optional;
// zero values take the defaults.
type BatterySpec struct {
	PowerKW             float64 `json:"powerKW"`
	CapacityKWH         float64 `json:"capacityKWH"`
	RoundTripEfficiency float64 `json:"roundTripEfficiency"` // 0..1
	MinSOCFraction      float64 `json:"minSOCFraction,omitempty"`
	MaxSOCFraction      float64 `json:"maxSOCFraction,omitempty"`
}

// EffectiveMinSOCFraction returns the configured minimum SOC fraction or the
// default.
func (b BatterySpec) EffectiveMinSOCFraction() float64 {
	if b.MinSOCFraction > 0 {
		return b.MinSOCFraction
	}
	return DefaultMinSOCFraction
}

// EffectiveMaxSOCFraction returns the configured maximum SOC fraction or the
// default.
func (b BatterySpec) EffectiveMaxSOCFraction() float64 {
	if b.MaxSOCFraction > 0 {
		return b.MaxSOCFraction
	}
	return DefaultMaxSOCFraction
}

// OneWayEfficiency returns the symmetric charge/discharge efficiency, the
// square root of the round-trip efficiency. Asymmetric efficiencies are not
// modeled.
func (b BatterySpec) OneWayEfficiency() float64 {
	if b.RoundTripEfficiency <= 0 {
		return 1
	}
	return math.Sqrt(b.RoundTripEfficiency)
}
