// Package dispatch computes the cheapest battery charge/discharge schedule
// against a tariff by solving a linear program whose cost terms mirror the
// billing oracle.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/ratecompass/ratecompass/pkg/billing"
	"github.com/ratecompass/ratecompass/pkg/calendar"
	"github.com/ratecompass/ratecompass/pkg/log"
	"github.com/ratecompass/ratecompass/pkg/types"
)

// Solver status values. Any other status is the solver's own error text,
// surfaced verbatim.
const (
	StatusOptimal          = "optimal"
	StatusNoIntervals      = "no-intervals"
	StatusNoBattery        = "no-battery"
	StatusTooManyIntervals = "too-many-intervals"
)

// DefaultInitialSOCFraction is the assumed starting state of charge when the
// caller does not supply one.
const DefaultInitialSOCFraction = 0.5

// maxChunkIntervals caps a single solve. The standard-form tableau is dense
// and grows with the square of the chunk length, so the cap keeps one chunk's
// matrix in the low hundreds of megabytes. A month of hourly or 30-minute
// readings fits; a month of 15-minute readings under a monthly demand charge
// does not, and degrades to the passthrough result.
const maxChunkIntervals = 1500

// Result is the optimizer's output. NetLoad carries the same timestamps as
// the normalized input with the battery's action applied. SOCKWH holds the
// state of charge at the start of each interval and is nil when the solve did
// not produce a schedule.
type Result struct {
	NetLoad      []types.Reading `json:"netLoad"`
	ChargeKW     []float64       `json:"chargeKW"`
	DischargeKW  []float64       `json:"dischargeKW"`
	SOCKWH       []float64       `json:"socKWH,omitempty"`
	SolverStatus string          `json:"solverStatus"`
}

// Optimize builds and solves the dispatch LP for one battery against one
// tariff. It never returns an error: an empty series, an oversized horizon,
// or a solver failure is reported through SolverStatus and the baseline
// series is passed through unchanged.
//
// The horizon is solved one billing period at a time (calendar months when
// any determinant bills a monthly peak, calendar days otherwise); demand
// coupling never crosses a period, and the battery state at the end of each
// period becomes the next period's starting state. Holding charge across a
// period boundary for later arbitrage is not modeled.
//
// The demand terms price each group's epigraph variable at the determinant's
// first tier only. For tiered tariffs this diverges from the oracle's stepped
// pricing; representing the kink exactly would need segment variables, which
// is deliberately out of scope.
func Optimize(ctx context.Context, tariff types.TariffModel, readings []types.Reading, battery types.BatterySpec, initialSOCFraction float64) Result {
	normalized := types.NormalizeReadings(readings)
	if len(normalized) == 0 {
		return Result{SolverStatus: StatusNoIntervals}
	}

	passthrough := Result{
		NetLoad:     normalized,
		ChargeKW:    make([]float64, len(normalized)),
		DischargeKW: make([]float64, len(normalized)),
	}
	if battery.PowerKW <= 0 || battery.CapacityKWH <= 0 {
		passthrough.SolverStatus = StatusNoBattery
		return passthrough
	}

	intervalHours := types.InferIntervalMinutes(normalized) / 60.0
	loc, err := calendar.LoadLocation(tariff.Timezone)
	if err != nil {
		loc, _ = calendar.LoadLocation("")
	}
	parts := make([]calendar.Parts, len(normalized))
	for i, r := range normalized {
		parts[i] = calendar.Split(r.TS, loc)
	}

	minSOC := battery.EffectiveMinSOCFraction() * battery.CapacityKWH
	maxSOC := battery.EffectiveMaxSOCFraction() * battery.CapacityKWH
	if initialSOCFraction <= 0 {
		initialSOCFraction = DefaultInitialSOCFraction
	}
	soc := math.Min(math.Max(initialSOCFraction*battery.CapacityKWH, minSOC), maxSOC)

	chunks := chunkByBillingPeriod(tariff, parts)
	for _, ch := range chunks {
		if ch.end-ch.start > maxChunkIntervals {
			log.Ctx(ctx).WarnContext(ctx, "dispatch horizon too large",
				slog.Int("chunkIntervals", ch.end-ch.start),
				slog.Int("limit", maxChunkIntervals),
			)
			passthrough.SolverStatus = StatusTooManyIntervals
			return passthrough
		}
	}

	n := len(normalized)
	res := Result{
		NetLoad:      make([]types.Reading, n),
		ChargeKW:     make([]float64, n),
		DischargeKW:  make([]float64, n),
		SOCKWH:       make([]float64, n),
		SolverStatus: StatusOptimal,
	}
	for _, ch := range chunks {
		chReadings := normalized[ch.start:ch.end]
		chParts := parts[ch.start:ch.end]
		prob := buildProblem(tariff, chReadings, chParts, battery, intervalHours, soc, minSOC, maxSOC)
		objective, x, err := lp.Simplex(prob.obj, mat.NewDense(prob.rows, prob.cols, prob.a), prob.b, 0, nil)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "dispatch solve failed",
				slog.Int("intervals", len(chReadings)),
				slog.String("error", err.Error()),
			)
			passthrough.SolverStatus = err.Error()
			return passthrough
		}
		log.Ctx(ctx).DebugContext(ctx, "dispatch chunk solved",
			slog.Int("intervals", len(chReadings)),
			slog.Int("variables", prob.cols),
			slog.Float64("objective", objective),
		)

		cn := ch.end - ch.start
		for t := 0; t < cn; t++ {
			c := clean(x[t])
			d := clean(x[cn+t])
			i := ch.start + t
			res.ChargeKW[i] = c
			res.DischargeKW[i] = d
			res.SOCKWH[i] = clean(x[2*cn+t]) + minSOC
			res.NetLoad[i] = types.Reading{
				TS:      normalized[i].TS,
				PowerKW: normalized[i].PowerKW + c - d,
			}
		}
		// soc[cn] is the state after the chunk's last interval; it seeds the
		// next chunk
		soc = clean(x[3*cn]) + minSOC
	}
	return res
}

// clean squashes solver noise so a do-nothing schedule reports exact zeros.
func clean(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

// span is a half-open interval index range.
type span struct {
	start, end int
}

// chunkByBillingPeriod splits the horizon into independently solvable runs of
// the coarsest demand billing period present: calendar months when any
// determinant bills a monthly peak, calendar days otherwise.
func chunkByBillingPeriod(tariff types.TariffModel, parts []calendar.Parts) []span {
	keyOf := func(p calendar.Parts) string { return p.DayKey }
	for _, det := range tariff.Determinants {
		if det.Kind == types.DeterminantMonthlyMax {
			keyOf = func(p calendar.Parts) string { return p.MonthKey }
			break
		}
	}
	var out []span
	start := 0
	for i := 1; i < len(parts); i++ {
		if keyOf(parts[i]) != keyOf(parts[i-1]) {
			out = append(out, span{start, i})
			start = i
		}
	}
	return append(out, span{start, len(parts)})
}

// problem is the LP in standard form: minimize obj'x subject to a*x = b with
// x >= 0. Charge, discharge, shifted SOC, and epigraph variables all have
// natural nonnegative domains, so upper bounds become explicit slack columns
// instead of going through lp.Convert.
type problem struct {
	obj  []float64
	a    []float64
	b    []float64
	rows int
	cols int
}

type demandGroup struct {
	priceUSD  float64 // first-tier price
	intervals []int
}

func buildProblem(tariff types.TariffModel, readings []types.Reading, parts []calendar.Parts, battery types.BatterySpec, intervalHours, initSOC, minSOC, maxSOC float64) *problem {
	n := len(readings)
	eta := battery.OneWayEfficiency()
	socRange := maxSOC - minSOC

	groups := demandGroups(tariff, parts)
	var epigraphRows int
	for _, g := range groups {
		epigraphRows += len(g.intervals)
	}

	// variable layout: charge[n] | discharge[n] | shifted soc[n+1] | D[groups]
	// followed by one slack column per inequality row. The n+1 SOC variables
	// track the state at the start of every interval plus the state after the
	// last one, so every interval's action is bound by the dynamics.
	nSOC := n + 1
	nGroups := len(groups)
	boundRows := 2*n + nSOC // charge, discharge, soc upper bounds
	rows := 1 + n + boundRows + epigraphRows
	cols := 2*n + nSOC + nGroups + boundRows + epigraphRows

	p := &problem{
		obj:  make([]float64, cols),
		a:    make([]float64, rows*cols),
		b:    make([]float64, rows),
		rows: rows,
		cols: cols,
	}
	set := func(row, col int, v float64) { p.a[row*cols+col] = v }

	chargeIdx := func(t int) int { return t }
	dischargeIdx := func(t int) int { return n + t }
	socIdx := func(t int) int { return 2*n + t }
	groupIdx := func(g int) int { return 2*n + nSOC + g }
	slackBase := 2*n + nSOC + nGroups

	// objective: energy cost exactly as the oracle prices it, plus first-tier
	// demand cost per group peak
	for t := 0; t < n; t++ {
		price, _ := billing.EnergyPrice(tariff.EnergyCharges, parts[t])
		p.obj[chargeIdx(t)] = price * intervalHours
		p.obj[dischargeIdx(t)] = -price * intervalHours
	}
	for g, grp := range groups {
		p.obj[groupIdx(g)] = grp.priceUSD
	}

	row := 0

	// soc[0] fixed to the initial state (shifted by minSOC)
	set(row, socIdx(0), 1)
	p.b[row] = initSOC - minSOC
	row++

	// soc dynamics: soc[t+1] = soc[t] + charge*eta*dh - discharge*dh/eta,
	// for every interval including the last
	for t := 0; t < n; t++ {
		set(row, socIdx(t+1), 1)
		set(row, socIdx(t), -1)
		set(row, chargeIdx(t), -eta*intervalHours)
		set(row, dischargeIdx(t), intervalHours/eta)
		p.b[row] = 0
		row++
	}

	// upper bounds via slack columns
	slack := slackBase
	for t := 0; t < n; t++ {
		set(row, chargeIdx(t), 1)
		set(row, slack, 1)
		p.b[row] = battery.PowerKW
		row++
		slack++
	}
	for t := 0; t < n; t++ {
		set(row, dischargeIdx(t), 1)
		set(row, slack, 1)
		p.b[row] = battery.PowerKW
		row++
		slack++
	}
	for t := 0; t <= n; t++ {
		set(row, socIdx(t), 1)
		set(row, slack, 1)
		p.b[row] = socRange
		row++
		slack++
	}

	// epigraph rows: D_g >= baseline[t] + charge[t] - discharge[t]
	for g, grp := range groups {
		for _, t := range grp.intervals {
			set(row, chargeIdx(t), 1)
			set(row, dischargeIdx(t), -1)
			set(row, groupIdx(g), -1)
			set(row, slack, 1)
			p.b[row] = -readings[t].PowerKW
			row++
			slack++
		}
	}

	return p
}

// demandGroups builds one epigraph group per determinant billing period:
// calendar month for monthlyMax, calendar day for dailyMax. Unsupported kinds
// contribute nothing, mirroring the oracle's $0 treatment.
func demandGroups(tariff types.TariffModel, parts []calendar.Parts) []demandGroup {
	var groups []demandGroup
	for _, det := range tariff.Determinants {
		var keyOf func(calendar.Parts) string
		switch det.Kind {
		case types.DeterminantMonthlyMax:
			keyOf = func(p calendar.Parts) string { return p.MonthKey }
		case types.DeterminantDailyMax:
			keyOf = func(p calendar.Parts) string { return p.DayKey }
		default:
			continue
		}
		price := det.FirstTierDollarsPerKW()
		byKey := make(map[string]int)
		for t, p := range parts {
			if !types.AnyWindowMatches(det.Windows, p.MinuteOfDay, p.Weekend, p.Month) {
				continue
			}
			key := fmt.Sprintf("%s|%s", det.Name, keyOf(p))
			gi, ok := byKey[key]
			if !ok {
				gi = len(groups)
				byKey[key] = gi
				groups = append(groups, demandGroup{priceUSD: price})
			}
			groups[gi].intervals = append(groups[gi].intervals, t)
		}
	}
	return groups
}
