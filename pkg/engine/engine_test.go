package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ratecompass/ratecompass/pkg/catalog"
	"github.com/ratecompass/ratecompass/pkg/catalog/catalogmock"
	"github.com/ratecompass/ratecompass/pkg/rules"
	"github.com/ratecompass/ratecompass/pkg/types"
)

// dayOfReadings is one day of 15-minute readings at a constant load.
func dayOfReadings(powerKW float64) []types.Reading {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	readings := make([]types.Reading, 96)
	for i := range readings {
		readings[i] = types.Reading{TS: start.Add(time.Duration(i) * 15 * time.Minute), PowerKW: powerKW}
	}
	return readings
}

// baselineResult finds the untransformed-tariff scenario in a pack.
func baselineResult(t *testing.T, pack types.ProposalPack) types.StrategyResult {
	t.Helper()
	for _, res := range pack.Strategies {
		if len(res.Scenario.AppliedRuleIDs) == 0 {
			return res
		}
	}
	t.Fatal("no baseline strategy in pack")
	return types.StrategyResult{}
}

func TestEvaluateInferenceConfidence(t *testing.T) {
	ctx := context.Background()
	readings := dayOfReadings(4)

	t.Run("Matched Rate Code", func(t *testing.T) {
		c := &catalogmock.MockCatalog{}
		c.On("Lookup", mock.Anything, "GS-1", "generic").Return(&catalog.RateInfo{
			Utility: "generic", RateCode: "GS-1", RatePerKWMonth: 12.5, Description: "General service demand",
		}, nil)
		e := New(c, rules.Configured())
		pack := e.Evaluate(ctx, Input{Utility: "generic", RateCode: "GS-1", Timezone: "UTC", Readings: readings})
		base := baselineResult(t, pack)
		assert.Equal(t, 0.8, base.Scenario.Verdict.Confidence)
		require.Len(t, base.Scenario.Tariff.Determinants, 1)
		assert.Equal(t, "General service demand", base.Scenario.Tariff.Determinants[0].Name)
		assert.Equal(t, 12.5, base.Scenario.Tariff.Determinants[0].Tiers[0].DollarsPerKW)
		c.AssertExpectations(t)
	})

	t.Run("Unmatched Rate Code", func(t *testing.T) {
		c := &catalogmock.MockCatalog{}
		c.On("Lookup", mock.Anything, "NOPE", "generic").Return(nil, nil)
		e := New(c, rules.Configured())
		pack := e.Evaluate(ctx, Input{Utility: "generic", RateCode: "NOPE", Timezone: "UTC", Readings: readings})
		base := baselineResult(t, pack)
		assert.Equal(t, 0.3, base.Scenario.Verdict.Confidence)
		assert.Equal(t, FallbackRatePerKWMonth, base.Scenario.Tariff.Determinants[0].Tiers[0].DollarsPerKW)
		var ids []string
		for _, mi := range pack.MissingInfo {
			ids = append(ids, mi.ID)
		}
		assert.Contains(t, ids, "rate-code-unmatched")
	})

	t.Run("No Rate Code", func(t *testing.T) {
		c := &catalogmock.MockCatalog{}
		e := New(c, rules.Configured())
		pack := e.Evaluate(ctx, Input{Timezone: "UTC", Readings: readings})
		base := baselineResult(t, pack)
		assert.Equal(t, 0.1, base.Scenario.Verdict.Confidence)
		var blocker bool
		for _, mi := range pack.MissingInfo {
			if mi.ID == "rate-code" && mi.Severity == types.MissingInfoBlocker {
				blocker = true
			}
		}
		assert.True(t, blocker, "missing rate code should surface as a blocker")
		c.AssertExpectations(t)
	})
}

func TestEvaluateExplicitTariff(t *testing.T) {
	tariff := types.TariffModel{
		ID:            "explicit",
		Timezone:      "UTC",
		EnergyCharges: []types.EnergyCharge{{Name: "flat", DollarsPerKWH: 0.10}},
	}
	e := New(&catalogmock.MockCatalog{}, rules.Configured())
	pack := e.Evaluate(context.Background(), Input{Timezone: "UTC", Readings: dayOfReadings(4), Tariff: &tariff})
	base := baselineResult(t, pack)
	assert.Equal(t, 1.0, base.Scenario.Verdict.Confidence)
	assert.Equal(t, "explicit", base.Scenario.Tariff.ID)
	// one day of 4 kW at $0.10/kWh
	assert.InDelta(t, 9.6, pack.BaselineBill.TotalUSD, 1e-9)
}

// stubRule is a minimal no-op rule for ordering and aggregation tests.
type stubRule struct {
	id      string
	verdict types.EligibilityVerdict
}

func (s *stubRule) ID() string                   { return s.id }
func (s *stubRule) Triggers(rules.Baseline) bool { return true }
func (s *stubRule) CheckEligibility(rules.Baseline, rules.Assets) types.EligibilityVerdict {
	return s.verdict
}
func (s *stubRule) Transform(tariff types.TariffModel, _ rules.Baseline, _ rules.Assets) (types.TariffModel, []string) {
	return tariff.Clone(), nil
}

func TestEvaluateRankingStableOnTies(t *testing.T) {
	reg := rules.NewRegistry()
	reg.Register(&stubRule{id: "alpha", verdict: types.EligibilityVerdict{Eligible: true, Confidence: 0.9}})
	reg.Register(&stubRule{id: "beta", verdict: types.EligibilityVerdict{Eligible: true, Confidence: 0.9}})

	tariff := types.TariffModel{
		ID:            "flat",
		Timezone:      "UTC",
		EnergyCharges: []types.EnergyCharge{{Name: "flat", DollarsPerKWH: 0.10}},
	}
	e := New(&catalogmock.MockCatalog{}, reg)
	pack := e.Evaluate(context.Background(), Input{Timezone: "UTC", Readings: dayOfReadings(4), Tariff: &tariff})

	// every scenario has identical savings, so discovery order must survive
	require.Len(t, pack.Strategies, 3)
	assert.Empty(t, pack.Strategies[0].Scenario.AppliedRuleIDs)
	assert.Equal(t, []string{"alpha"}, pack.Strategies[1].Scenario.AppliedRuleIDs)
	assert.Equal(t, []string{"beta"}, pack.Strategies[2].Scenario.AppliedRuleIDs)
}

func TestEvaluateMissingInfoDeduped(t *testing.T) {
	shared := types.MissingInfo{ID: "meter-size", Title: "Meter size", Severity: types.MissingInfoImportant}
	reg := rules.NewRegistry()
	reg.Register(&stubRule{id: "alpha", verdict: types.EligibilityVerdict{Eligible: false, MissingInfo: []types.MissingInfo{shared}}})
	reg.Register(&stubRule{id: "beta", verdict: types.EligibilityVerdict{Eligible: false, MissingInfo: []types.MissingInfo{shared}}})

	tariff := types.TariffModel{Timezone: "UTC", EnergyCharges: []types.EnergyCharge{{Name: "flat", DollarsPerKWH: 0.10}}}
	e := New(&catalogmock.MockCatalog{}, reg)
	pack := e.Evaluate(context.Background(), Input{Timezone: "UTC", Readings: dayOfReadings(4), Tariff: &tariff})

	assert.Len(t, pack.Rejected, 2)
	count := 0
	for _, mi := range pack.MissingInfo {
		if mi.ID == "meter-size" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEvaluateConfidenceScaledByQuality(t *testing.T) {
	reg := rules.NewRegistry()
	reg.Register(&stubRule{id: "alpha", verdict: types.EligibilityVerdict{Eligible: true, Confidence: 0.8}})
	reg.Register(&stubRule{id: "beta", verdict: types.EligibilityVerdict{Eligible: false, Confidence: 0.4}})

	tariff := types.TariffModel{Timezone: "UTC", EnergyCharges: []types.EnergyCharge{{Name: "flat", DollarsPerKWH: 0.10}}}
	e := New(&catalogmock.MockCatalog{}, reg)
	pack := e.Evaluate(context.Background(), Input{Timezone: "UTC", Readings: dayOfReadings(4), Tariff: &tariff})

	// quality discounts every result the same way, rejected ones included
	var alpha types.StrategyResult
	for _, res := range pack.Strategies {
		if len(res.Scenario.AppliedRuleIDs) == 1 && res.Scenario.AppliedRuleIDs[0] == "alpha" {
			alpha = res
		}
	}
	assert.InDelta(t, 0.8*pack.Quality.Confidence, alpha.Confidence, 1e-9)
	require.Len(t, pack.Rejected, 1)
	assert.InDelta(t, 0.4*pack.Quality.Confidence, pack.Rejected[0].Confidence, 1e-9)
}

func TestEvaluateDegradesOnSparseData(t *testing.T) {
	tariff := types.TariffModel{
		Timezone:        "UTC",
		FixedMonthlyUSD: 15,
		EnergyCharges:   []types.EnergyCharge{{Name: "flat", DollarsPerKWH: 0.10}},
	}
	e := New(&catalogmock.MockCatalog{}, rules.Configured())

	t.Run("No Readings", func(t *testing.T) {
		pack := e.Evaluate(context.Background(), Input{Timezone: "UTC", Tariff: &tariff})
		assert.Equal(t, 15.0, pack.BaselineBill.TotalUSD)
		assert.NotEmpty(t, pack.Strategies)
	})

	t.Run("Single Reading", func(t *testing.T) {
		pack := e.Evaluate(context.Background(), Input{
			Timezone: "UTC",
			Readings: []types.Reading{{TS: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC), PowerKW: 4}},
			Tariff:   &tariff,
		})
		assert.Equal(t, types.DefaultIntervalMinutes, pack.Quality.IntervalMinutes)
		assert.Less(t, pack.Quality.Confidence, 0.5)
	})
}

func TestEvaluateStorageRiderNeedsBattery(t *testing.T) {
	tariff := types.TariffModel{
		Timezone:      "UTC",
		EnergyCharges: []types.EnergyCharge{{Name: "flat", DollarsPerKWH: 0.10}},
		Determinants: []types.DemandDeterminant{{
			Name: "peak", Kind: types.DeterminantMonthlyMax, Tiers: []types.Tier{{DollarsPerKW: 10}},
		}},
	}
	e := New(&catalogmock.MockCatalog{}, rules.Configured())
	pack := e.Evaluate(context.Background(), Input{Timezone: "UTC", Readings: dayOfReadings(4), Tariff: &tariff})

	var rejectedIDs []string
	for _, res := range pack.Rejected {
		rejectedIDs = append(rejectedIDs, res.Scenario.AppliedRuleIDs...)
	}
	assert.Contains(t, rejectedIDs, "storage-demand-rider")
	var ids []string
	for _, mi := range pack.MissingInfo {
		ids = append(ids, mi.ID)
	}
	assert.Contains(t, ids, "battery-spec")
}
