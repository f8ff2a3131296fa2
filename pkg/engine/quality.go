package engine

import (
	"math"

	"github.com/ratecompass/ratecompass/pkg/types"
)

// gapToleranceMinutes is how far a consecutive delta may deviate from the
// inferred interval before it counts as a gap.
const gapToleranceMinutes = 0.5

// AssessQuality scores a normalized interval series: inferred interval
// length, gaps, negative-power outliers, and coverage of a full year,
// combined into a confidence by successive penalty subtraction floored at 0.
func AssessQuality(readings []types.Reading) types.DataQuality {
	q := types.DataQuality{
		IntervalMinutes: types.InferIntervalMinutes(readings),
	}
	for i, r := range readings {
		if r.PowerKW < 0 {
			q.OutlierCount++
		}
		if i == 0 {
			continue
		}
		delta := r.TS.Sub(readings[i-1].TS).Minutes()
		if math.Abs(delta-q.IntervalMinutes) > gapToleranceMinutes {
			q.GapCount++
		}
	}
	if len(readings) >= 2 {
		span := readings[len(readings)-1].TS.Sub(readings[0].TS)
		q.CoverageFraction = math.Min(1, span.Hours()/(365*24))
	}

	confidence := 1.0
	confidence -= 0.3 * (1 - q.CoverageFraction)
	if n := len(readings); n > 1 {
		gapFraction := float64(q.GapCount) / float64(n-1)
		confidence -= math.Min(0.3, gapFraction)
		outlierFraction := float64(q.OutlierCount) / float64(n)
		confidence -= math.Min(0.2, outlierFraction*2)
	} else {
		// nothing to judge the series by
		confidence -= 0.5
	}
	q.Confidence = math.Max(0, confidence)
	return q
}
