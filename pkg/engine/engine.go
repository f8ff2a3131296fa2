// Package engine is the end-to-end pipeline: normalize input, assess data
// quality, infer a tariff, discover applicable scenarios, evaluate and rank
// them, and aggregate everything that could not be determined.
package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/ratecompass/ratecompass/pkg/billing"
	"github.com/ratecompass/ratecompass/pkg/catalog"
	"github.com/ratecompass/ratecompass/pkg/evaluate"
	"github.com/ratecompass/ratecompass/pkg/log"
	"github.com/ratecompass/ratecompass/pkg/rules"
	"github.com/ratecompass/ratecompass/pkg/types"
)

// Input is one evaluation request. Tariff is optional: when set it is used as
// the baseline directly, otherwise the baseline is inferred from the rate
// code via the catalog.
type Input struct {
	Utility  string             `json:"utility"`
	RateCode string             `json:"rateCode"`
	Timezone string             `json:"timezone"`
	Readings []types.Reading    `json:"readings"`
	Battery  *types.BatterySpec `json:"battery,omitempty"`
	Tariff   *types.TariffModel `json:"tariff,omitempty"`
}

// Engine runs evaluations. It holds only read-only collaborators and is safe
// for concurrent use.
type Engine struct {
	catalog catalog.Catalog
	rules   *rules.Registry
}

// New creates an Engine.
func New(c catalog.Catalog, r *rules.Registry) *Engine {
	return &Engine{catalog: c, rules: r}
}

// Evaluate runs the whole pipeline for one input. It never fails: every
// ambiguous or missing input degrades to a note, a lowered confidence, or a
// missing-information item in the returned pack.
func (e *Engine) Evaluate(ctx context.Context, in Input) types.ProposalPack {
	// normalize
	readings := types.NormalizeReadings(in.Readings)

	// assess-data-quality
	quality := AssessQuality(readings)
	log.Ctx(ctx).DebugContext(ctx, "data quality assessed",
		slog.Int("readings", len(readings)),
		slog.Float64("intervalMinutes", quality.IntervalMinutes),
		slog.Int("gaps", quality.GapCount),
		slog.Float64("confidence", quality.Confidence),
	)

	// infer-tariff
	var missing []types.MissingInfo
	var baseTariff types.TariffModel
	var inferConfidence float64
	if in.Tariff != nil {
		baseTariff = *in.Tariff
		inferConfidence = 1.0
	} else {
		inf := e.inferTariff(ctx, in)
		baseTariff = inf.tariff
		inferConfidence = inf.confidence
		missing = append(missing, inf.missingInfo...)
	}

	baselineBill, baselineNotes := billing.ComputeBill(baseTariff, readings)

	// discover-scenarios
	baseline := buildBaseline(baseTariff, quality, readings)
	assets := rules.Assets{Battery: in.Battery}
	scenarios := e.discoverScenarios(ctx, baseline, assets, inferConfidence)

	// evaluate-scenario: independent of one another, evaluated in parallel
	// into indexed slots so discovery order survives for the stable sort
	results := make([]types.StrategyResult, len(scenarios))
	var wg sync.WaitGroup
	for i, sc := range scenarios {
		wg.Add(1)
		go func(i int, sc types.Scenario) {
			defer wg.Done()
			results[i] = evaluate.Scenario(ctx, baselineBill, sc, readings, in.Battery)
		}(i, sc)
	}
	wg.Wait()
	if len(results) > 0 {
		results[0].Notes = append(baselineNotes, results[0].Notes...)
	}

	// rank: savings descending, ties keep discovery order
	pack := types.ProposalPack{
		BaselineBill: baselineBill,
		Quality:      quality,
	}
	for _, res := range results {
		missing = append(missing, res.Scenario.Verdict.MissingInfo...)
		// verdict confidence discounted by data quality, eligible or not
		res.Confidence = res.Scenario.Verdict.Confidence * quality.Confidence
		if res.Scenario.Verdict.Eligible {
			pack.Strategies = append(pack.Strategies, res)
		} else {
			pack.Rejected = append(pack.Rejected, res)
		}
	}
	sort.SliceStable(pack.Strategies, func(i, j int) bool {
		return pack.Strategies[i].TotalSavingsUSD > pack.Strategies[j].TotalSavingsUSD
	})

	// emit
	pack.MissingInfo = types.DedupeMissingInfo(missing)
	log.Ctx(ctx).InfoContext(ctx, "evaluation complete",
		slog.Int("strategies", len(pack.Strategies)),
		slog.Int("rejected", len(pack.Rejected)),
		slog.Float64("baselineTotalUSD", baselineBill.TotalUSD),
	)
	return pack
}

// discoverScenarios always includes the untransformed baseline, then one
// scenario per triggered rule. Transform runs even when eligibility failed so
// the pack can show what the option would have looked like.
func (e *Engine) discoverScenarios(ctx context.Context, baseline rules.Baseline, assets rules.Assets, inferConfidence float64) []types.Scenario {
	scenarios := []types.Scenario{{
		Tariff: baseline.Tariff,
		Verdict: types.EligibilityVerdict{
			Eligible:   true,
			Confidence: inferConfidence,
			Reasons:    []string{"current tariff, no changes"},
		},
	}}
	for _, rule := range e.rules.Rules() {
		if !rule.Triggers(baseline) {
			continue
		}
		verdict := rule.CheckEligibility(baseline, assets)
		transformed, notes := rule.Transform(baseline.Tariff, baseline, assets)
		verdict.Reasons = append(verdict.Reasons, notes...)
		scenarios = append(scenarios, types.Scenario{
			Tariff:         transformed,
			AppliedRuleIDs: []string{rule.ID()},
			Verdict:        verdict,
		})
		log.Ctx(ctx).DebugContext(ctx, "rule triggered",
			slog.String("rule", rule.ID()),
			slog.Bool("eligible", verdict.Eligible),
			slog.Float64("confidence", verdict.Confidence),
		)
	}
	return scenarios
}

// buildBaseline summarizes the normalized readings for rule evaluation.
func buildBaseline(tariff types.TariffModel, quality types.DataQuality, readings []types.Reading) rules.Baseline {
	b := rules.Baseline{
		Tariff:  tariff,
		Quality: quality,
	}
	intervalHours := quality.IntervalMinutes / 60.0
	for _, r := range readings {
		if r.PowerKW > b.PeakKW {
			b.PeakKW = r.PowerKW
		}
		b.TotalKWH += r.PowerKW * intervalHours
	}
	if len(readings) >= 2 {
		b.CoverageDays = readings[len(readings)-1].TS.Sub(readings[0].TS).Hours() / 24
	}
	return b
}
