// Package billing computes the dollar bill a tariff implies for an interval
// series. ComputeBill is pure and deterministic: identical inputs yield
// bit-identical totals, and malformed inputs degrade to notes rather than
// errors.
package billing

import (
	"fmt"
	"math"

	"github.com/ratecompass/ratecompass/pkg/calendar"
	"github.com/ratecompass/ratecompass/pkg/types"
)

const (
	// bindingEpsilon is how close to a group's maximum an interval must be to
	// count as a binding timestamp.
	bindingEpsilon = 1e-6

	// maxDailyBindingTimestamps caps the audit size for dailyMax
	// determinants, which otherwise record ties across every billed day.
	maxDailyBindingTimestamps = 50
)

// ComputeBill itemizes the bill the tariff implies for the readings. Readings
// need not be sorted or valid: invalid rows are filtered, duplicates
// collapsed, and a series too short to infer an interval from is billed at
// the 15-minute default. Notes record everything that degraded.
func ComputeBill(tariff types.TariffModel, readings []types.Reading) (types.BillBreakdown, []string) {
	var notes []string

	loc, err := calendar.LoadLocation(tariff.Timezone)
	if err != nil {
		loc = nil
		notes = append(notes, fmt.Sprintf("unknown timezone %q, using UTC", tariff.Timezone))
	}
	if loc == nil {
		loc, _ = calendar.LoadLocation("")
	}

	normalized := types.NormalizeReadings(readings)
	if dropped := len(readings) - len(normalized); dropped > 0 {
		notes = append(notes, fmt.Sprintf("dropped %d invalid or duplicate readings", dropped))
	}

	intervalMinutes := types.InferIntervalMinutes(normalized)
	intervalHours := intervalMinutes / 60.0

	bill := types.BillBreakdown{FixedUSD: tariff.FixedMonthlyUSD}

	parts := make([]calendar.Parts, len(normalized))
	for i, r := range normalized {
		parts[i] = calendar.Split(r.TS, loc)
	}

	// energy: first matching charge wins, recorded as one aggregate line
	var unmatched int
	for i, r := range normalized {
		price, matched := EnergyPrice(tariff.EnergyCharges, parts[i])
		if !matched && len(tariff.EnergyCharges) > 0 {
			unmatched++
		}
		kwh := r.PowerKW * intervalHours
		bill.EnergyKWH += kwh
		bill.EnergyUSD += kwh * price
	}
	if unmatched > 0 {
		notes = append(notes, fmt.Sprintf("%d intervals matched no energy charge window and contributed $0", unmatched))
	}

	for _, det := range tariff.Determinants {
		entry, detNotes := determinantCharge(det, normalized, parts)
		notes = append(notes, detNotes...)
		bill.DemandUSD += entry.AmountUSD
		bill.Determinants = append(bill.Determinants, entry)
	}

	bill.TotalUSD = bill.FixedUSD + bill.EnergyUSD + bill.DemandUSD
	return bill, notes
}

// EnergyPrice returns the price of the first energy charge whose windows
// match, and whether any matched. The dispatch optimizer prices its objective
// through this same function so the two calculations cannot diverge on
// window semantics.
func EnergyPrice(charges []types.EnergyCharge, p calendar.Parts) (float64, bool) {
	for _, ec := range charges {
		if types.AnyWindowMatches(ec.Windows, p.MinuteOfDay, p.Weekend, p.Month) {
			return ec.DollarsPerKWH, true
		}
	}
	return 0, false
}

func determinantCharge(det types.DemandDeterminant, readings []types.Reading, parts []calendar.Parts) (types.DeterminantCharge, []string) {
	entry := types.DeterminantCharge{Name: det.Name, Kind: det.Kind}

	switch det.Kind {
	case types.DeterminantMonthlyMax, types.DeterminantDailyMax:
	default:
		return entry, []string{fmt.Sprintf("determinant %q has unsupported kind %q and contributed $0", det.Name, det.Kind)}
	}

	// group filtered intervals: one group for monthlyMax, one per local day
	// for dailyMax; groupOrder keeps day iteration deterministic
	groups := make(map[string][]int)
	var groupOrder []string
	for i := range readings {
		p := parts[i]
		if !types.AnyWindowMatches(det.Windows, p.MinuteOfDay, p.Weekend, p.Month) {
			continue
		}
		key := ""
		if det.Kind == types.DeterminantDailyMax {
			key = p.DayKey
		}
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], i)
	}

	if len(groupOrder) == 0 {
		return entry, []string{fmt.Sprintf("determinant %q matched no intervals and contributed $0", det.Name)}
	}

	bindingCap := math.MaxInt
	if det.Kind == types.DeterminantDailyMax {
		bindingCap = maxDailyBindingTimestamps
	}

	for _, key := range groupOrder {
		idxs := groups[key]
		maxKW := math.Inf(-1)
		for _, i := range idxs {
			if readings[i].PowerKW > maxKW {
				maxKW = readings[i].PowerKW
			}
		}
		entry.AmountUSD += TieredAmount(maxKW, det.Tiers)
		if maxKW > entry.BindingKW {
			entry.BindingKW = maxKW
		}
		for _, i := range idxs {
			if len(entry.BindingTimestamps) >= bindingCap {
				break
			}
			if math.Abs(readings[i].PowerKW-maxKW) <= bindingEpsilon {
				entry.BindingTimestamps = append(entry.BindingTimestamps, readings[i].TS)
			}
		}
	}
	return entry, nil
}
