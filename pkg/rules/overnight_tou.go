package rules

import (
	"fmt"

	"github.com/ratecompass/ratecompass/pkg/types"
)

// Energy prices for the overnight TOU program, relative to the flat rate they
// replace.
const (
	overnightDiscountFactor = 0.40
	daytimePremiumFactor    = 1.15
	overnightEndMinute      = 6 * 60

	// minCoverageDays is how much interval history the program needs before
	// eligibility can be decided.
	minCoverageDays = 30
)

// OvernightTOU models a rate-switch program that replaces a flat energy price
// with a discounted overnight window and a premium daytime window.
type OvernightTOU struct{}

func (r *OvernightTOU) ID() string { return "overnight-tou" }

// Triggers is true when the baseline tariff bills energy at a single flat
// (windowless) charge, the only shape the program converts from.
func (r *OvernightTOU) Triggers(baseline Baseline) bool {
	return len(baseline.Tariff.EnergyCharges) == 1 && len(baseline.Tariff.EnergyCharges[0].Windows) == 0
}

func (r *OvernightTOU) CheckEligibility(baseline Baseline, assets Assets) types.EligibilityVerdict {
	if baseline.CoverageDays <= 0 {
		return insufficientData("no interval history to evaluate a time-of-use switch against", types.MissingInfo{
			ID:       "interval-history",
			Title:    "Interval meter history",
			Detail:   "at least 30 days of interval readings are required",
			Severity: types.MissingInfoBlocker,
		})
	}
	if baseline.CoverageDays < minCoverageDays {
		return insufficientData(
			fmt.Sprintf("only %.0f days of interval history, need at least %d", baseline.CoverageDays, minCoverageDays),
			types.MissingInfo{
				ID:       "interval-history",
				Title:    "Interval meter history",
				Detail:   fmt.Sprintf("have %.0f days, need %d", baseline.CoverageDays, minCoverageDays),
				Severity: types.MissingInfoBlocker,
			},
		)
	}
	verdict := types.EligibilityVerdict{
		Eligible:   true,
		Confidence: 0.9,
		Reasons:    []string{"baseline tariff has a flat energy rate convertible to time-of-use"},
	}
	if baseline.Quality.Confidence < 0.5 {
		verdict.Confidence = 0.6
		verdict.Reasons = append(verdict.Reasons, "interval data quality is low")
		verdict.MissingInfo = append(verdict.MissingInfo, types.MissingInfo{
			ID:       "interval-quality",
			Title:    "Higher-quality interval data",
			Detail:   "gaps or outliers reduce confidence in the time-of-use comparison",
			Severity: types.MissingInfoNiceToHave,
		})
	}
	return verdict
}

// Transform returns a new tariff with the flat charge split into an overnight
// discount window and a daytime premium window. Windows are split at midnight
// rather than wrapping it.
func (r *OvernightTOU) Transform(tariff types.TariffModel, baseline Baseline, assets Assets) (types.TariffModel, []string) {
	out := tariff.Clone()
	out.ID = tariff.ID + "+overnight-tou"
	if len(out.EnergyCharges) != 1 {
		return out, []string{"tariff no longer has a single flat energy charge, transform skipped"}
	}
	flat := out.EnergyCharges[0].DollarsPerKWH
	out.EnergyCharges = []types.EnergyCharge{
		{
			Name:          "overnight",
			DollarsPerKWH: flat * overnightDiscountFactor,
			Windows:       []types.Window{{StartMinute: 0, EndMinute: overnightEndMinute}},
		},
		{
			Name:          "daytime",
			DollarsPerKWH: flat * daytimePremiumFactor,
			Windows:       []types.Window{{StartMinute: overnightEndMinute, EndMinute: 24 * 60}},
		},
	}
	notes := []string{fmt.Sprintf(
		"replaced flat $%.4f/kWh with overnight $%.4f and daytime $%.4f",
		flat, flat*overnightDiscountFactor, flat*daytimePremiumFactor,
	)}
	return out, notes
}
