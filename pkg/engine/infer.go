package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ratecompass/ratecompass/pkg/log"
	"github.com/ratecompass/ratecompass/pkg/types"
)

// Inference fallbacks and confidence schedule. Inference never fails a run:
// the worst case is the fallback rate at low confidence plus a blocker
// missing-info item.
const (
	// FallbackRatePerKWMonth is the demand rate assumed when the rate code
	// is missing or unknown to the catalog.
	FallbackRatePerKWMonth = 10.0

	// DefaultEnergyDollarsPerKWH is the flat energy rate assumed for an
	// inferred tariff; the catalog only carries demand rates.
	DefaultEnergyDollarsPerKWH = 0.10

	confidenceMatched   = 0.8
	confidenceUnmatched = 0.3
	confidenceNoCode    = 0.1
)

// inference is the outcome of the infer-tariff stage.
type inference struct {
	tariff      types.TariffModel
	confidence  float64
	missingInfo []types.MissingInfo
}

// inferTariff builds the baseline tariff from the rate code via the catalog,
// degrading to the fallback rate when the code is absent or unmatched.
func (e *Engine) inferTariff(ctx context.Context, in Input) inference {
	ratePerKW := FallbackRatePerKWMonth
	description := "fallback rate"
	var inf inference

	switch {
	case in.RateCode == "":
		inf.confidence = confidenceNoCode
		inf.missingInfo = append(inf.missingInfo, types.MissingInfo{
			ID:       "rate-code",
			Title:    "Utility rate code",
			Detail:   "no rate code was supplied, billing uses the fallback demand rate",
			Severity: types.MissingInfoBlocker,
		})
	default:
		info, err := e.catalog.Lookup(ctx, in.RateCode, in.Utility)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "rate catalog lookup failed",
				slog.String("rateCode", in.RateCode),
				slog.String("utility", in.Utility),
				slog.String("error", err.Error()),
			)
			info = nil
		}
		if info == nil {
			inf.confidence = confidenceUnmatched
			inf.missingInfo = append(inf.missingInfo, types.MissingInfo{
				ID:       "rate-code-unmatched",
				Title:    "Rate code not in catalog",
				Detail:   fmt.Sprintf("rate code %q for utility %q is not in the rate catalog", in.RateCode, in.Utility),
				Severity: types.MissingInfoImportant,
			})
		} else {
			inf.confidence = confidenceMatched
			ratePerKW = info.RatePerKWMonth
			description = info.Description
		}
	}

	inf.tariff = types.TariffModel{
		ID:       fmt.Sprintf("inferred:%s", orFallback(in.RateCode, "unknown")),
		RateCode: in.RateCode,
		Timezone: in.Timezone,
		EnergyCharges: []types.EnergyCharge{
			{Name: "energy", DollarsPerKWH: DefaultEnergyDollarsPerKWH},
		},
		Determinants: []types.DemandDeterminant{{
			Name:  description,
			Kind:  types.DeterminantMonthlyMax,
			Tiers: []types.Tier{{DollarsPerKW: ratePerKW}},
		}},
	}
	return inf
}

func orFallback(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
