// Package evaluate runs the billing oracle and dispatch optimizer over one
// scenario and decomposes the savings into a structural part (tariff change
// alone) and an operational part (optimal storage dispatch).
package evaluate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ratecompass/ratecompass/pkg/billing"
	"github.com/ratecompass/ratecompass/pkg/dispatch"
	"github.com/ratecompass/ratecompass/pkg/log"
	"github.com/ratecompass/ratecompass/pkg/types"
)

// Scenario evaluates one scenario against the baseline bill. Structural
// savings are always computed; operational savings are exactly 0 unless a
// battery is supplied and the solver reaches optimality. When dispatch cannot
// run, the no-dispatch bill stands in for the optimized bill and the solver's
// status is recorded verbatim.
func Scenario(ctx context.Context, baselineBill types.BillBreakdown, scenario types.Scenario, readings []types.Reading, battery *types.BatterySpec) types.StrategyResult {
	result := types.StrategyResult{
		Scenario:   scenario,
		Confidence: scenario.Verdict.Confidence,
	}

	noDispatchBill, notes := billing.ComputeBill(scenario.Tariff, readings)
	result.NoDispatchBill = noDispatchBill
	result.Notes = append(result.Notes, notes...)
	result.StructuralSavingsUSD = baselineBill.TotalUSD - noDispatchBill.TotalUSD
	result.AuditTrail = append(result.AuditTrail, types.AuditStep{
		Name: "compute-no-dispatch-bill",
		Inputs: map[string]string{
			"tariff":    scenario.Tariff.ID,
			"intervals": fmt.Sprintf("%d", len(readings)),
		},
		Outputs: map[string]string{
			"totalUSD": fmt.Sprintf("%.6f", noDispatchBill.TotalUSD),
		},
	})

	// no battery: the optimized bill is the no-dispatch bill by definition
	result.DispatchBill = noDispatchBill
	result.OperationalSavingsUSD = 0

	if battery != nil {
		opt := dispatch.Optimize(ctx, scenario.Tariff, readings, *battery, dispatch.DefaultInitialSOCFraction)
		result.SolverStatus = opt.SolverStatus
		step := types.AuditStep{
			Name: "optimize-dispatch",
			Inputs: map[string]string{
				"batteryPowerKW":     fmt.Sprintf("%.3f", battery.PowerKW),
				"batteryCapacityKWH": fmt.Sprintf("%.3f", battery.CapacityKWH),
			},
			Outputs: map[string]string{
				"solverStatus": opt.SolverStatus,
			},
		}
		if opt.SolverStatus == dispatch.StatusOptimal {
			dispatchBill, dispatchNotes := billing.ComputeBill(scenario.Tariff, opt.NetLoad)
			result.DispatchBill = dispatchBill
			result.Notes = append(result.Notes, dispatchNotes...)
			result.OperationalSavingsUSD = noDispatchBill.TotalUSD - dispatchBill.TotalUSD
			step.Outputs["totalUSD"] = fmt.Sprintf("%.6f", dispatchBill.TotalUSD)
		} else {
			result.Notes = append(result.Notes, fmt.Sprintf("dispatch unavailable (%s), using no-dispatch bill", opt.SolverStatus))
			log.Ctx(ctx).WarnContext(ctx, "dispatch unavailable for scenario",
				slog.String("tariff", scenario.Tariff.ID),
				slog.String("solverStatus", opt.SolverStatus),
			)
		}
		result.AuditTrail = append(result.AuditTrail, step)
	}

	result.TotalSavingsUSD = result.StructuralSavingsUSD + result.OperationalSavingsUSD
	result.AuditTrail = append(result.AuditTrail, types.AuditStep{
		Name: "decompose-savings",
		Outputs: map[string]string{
			"structuralUSD":  fmt.Sprintf("%.6f", result.StructuralSavingsUSD),
			"operationalUSD": fmt.Sprintf("%.6f", result.OperationalSavingsUSD),
		},
	})
	return result
}
