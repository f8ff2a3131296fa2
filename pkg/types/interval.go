package types

import (
	"math"
	"sort"
	"time"
)

// DefaultIntervalMinutes is assumed when a series is too short to infer an
// interval length from.
const DefaultIntervalMinutes = 15.0

// inferSampleLimit caps how many consecutive deltas are inspected when
// inferring the interval length.
const inferSampleLimit = 2000

// Reading is one instantaneous power sample from a meter.
type Reading struct {
	TS      time.Time `json:"ts"`
	PowerKW float64   `json:"powerKW"`
}

// Valid reports whether the reading can contribute to a bill.
func (r Reading) Valid() bool {
	return !r.TS.IsZero() && !math.IsNaN(r.PowerKW) && !math.IsInf(r.PowerKW, 0)
}

// NormalizeReadings filters invalid readings, sorts ascending by timestamp,
// and drops duplicate timestamps (keeping the first in sort order). The input
// slice is not modified.
func NormalizeReadings(readings []Reading) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if r.Valid() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TS.Before(out[j].TS)
	})
	deduped := out[:0]
	for i, r := range out {
		if i > 0 && r.TS.Equal(out[i-1].TS) {
			continue
		}
		deduped = append(deduped, r)
	}
	return deduped
}

// InferIntervalMinutes infers the series interval length as the median of
// positive consecutive deltas across the first samples of a sorted series.
// Fewer than two readings fall back to DefaultIntervalMinutes.
func InferIntervalMinutes(readings []Reading) float64 {
	limit := len(readings)
	if limit > inferSampleLimit {
		limit = inferSampleLimit
	}
	var deltas []float64
	for i := 1; i < limit; i++ {
		d := readings[i].TS.Sub(readings[i-1].TS).Minutes()
		if d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return DefaultIntervalMinutes
	}
	sort.Float64s(deltas)
	mid := len(deltas) / 2
	if len(deltas)%2 == 1 {
		return deltas[mid]
	}
	return (deltas[mid-1] + deltas[mid]) / 2
}
