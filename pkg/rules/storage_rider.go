package rules

import (
	"fmt"

	"github.com/ratecompass/ratecompass/pkg/types"
)

// dailyRiderFactor converts a monthly $/kW demand price into the rider's
// per-day price: roughly 1/30th of the month, with a 20% program discount.
const dailyRiderFactor = 0.8 / 30.0

// StorageDemandRider models a storage rider program: customers with a
// dispatchable battery move from a monthly peak-demand charge to a daily one
// at a discounted rate, which rewards shaving every day rather than one worst
// day per month.
type StorageDemandRider struct{}

func (r *StorageDemandRider) ID() string { return "storage-demand-rider" }

// Triggers is true when the baseline tariff bills any monthly peak demand.
func (r *StorageDemandRider) Triggers(baseline Baseline) bool {
	for _, d := range baseline.Tariff.Determinants {
		if d.Kind == types.DeterminantMonthlyMax {
			return true
		}
	}
	return false
}

func (r *StorageDemandRider) CheckEligibility(baseline Baseline, assets Assets) types.EligibilityVerdict {
	if assets.Battery == nil {
		return insufficientData("the rider requires a dispatchable battery and none was supplied", types.MissingInfo{
			ID:       "battery-spec",
			Title:    "Battery specification",
			Detail:   "power rating, usable capacity, and round-trip efficiency",
			Severity: types.MissingInfoBlocker,
		})
	}
	if assets.Battery.PowerKW <= 0 || assets.Battery.CapacityKWH <= 0 {
		return insufficientData("battery specification is incomplete", types.MissingInfo{
			ID:       "battery-spec",
			Title:    "Battery specification",
			Detail:   "power rating and usable capacity must be positive",
			Severity: types.MissingInfoBlocker,
		})
	}
	if baseline.PeakKW <= 0 {
		return insufficientData("no demand peak could be measured from the interval history", types.MissingInfo{
			ID:       "interval-history",
			Title:    "Interval meter history",
			Detail:   "a measured demand peak is required to size the rider benefit",
			Severity: types.MissingInfoImportant,
		})
	}

	verdict := types.EligibilityVerdict{
		Eligible:   true,
		Confidence: 0.85,
		Reasons:    []string{"dispatchable battery present and baseline tariff bills monthly peak demand"},
	}
	if assets.Battery.PowerKW < baseline.PeakKW*0.1 {
		verdict.Confidence = 0.5
		verdict.Reasons = append(verdict.Reasons, fmt.Sprintf(
			"battery power (%.1f kW) is small against the measured peak (%.1f kW)",
			assets.Battery.PowerKW, baseline.PeakKW,
		))
	}
	return verdict
}

// Transform returns a new tariff with every monthlyMax determinant rewritten
// as a dailyMax determinant priced at the rider's per-day rate.
func (r *StorageDemandRider) Transform(tariff types.TariffModel, baseline Baseline, assets Assets) (types.TariffModel, []string) {
	out := tariff.Clone()
	out.ID = tariff.ID + "+storage-demand-rider"
	var notes []string
	for i, d := range out.Determinants {
		if d.Kind != types.DeterminantMonthlyMax {
			continue
		}
		out.Determinants[i].Kind = types.DeterminantDailyMax
		for j, tier := range out.Determinants[i].Tiers {
			out.Determinants[i].Tiers[j].DollarsPerKW = tier.DollarsPerKW * dailyRiderFactor
		}
		notes = append(notes, fmt.Sprintf("determinant %q converted from monthly to daily peak at the rider rate", d.Name))
	}
	if notes == nil {
		notes = []string{"tariff has no monthly demand determinant, transform was a no-op"}
	}
	return out, notes
}
