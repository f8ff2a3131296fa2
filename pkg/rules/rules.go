// Package rules holds the pluggable tariff option rules: units that decide
// whether a rate program applies to a customer and produce the transformed
// tariff it would put them on.
package rules

import (
	"github.com/ratecompass/ratecompass/pkg/types"
)

// Baseline is the read-only customer situation a rule evaluates against.
type Baseline struct {
	Tariff       types.TariffModel
	Quality      types.DataQuality
	PeakKW       float64
	TotalKWH     float64
	CoverageDays float64
}

// Assets are the controllable resources a customer has. Nil battery means
// none.
type Assets struct {
	Battery *types.BatterySpec
}

// Rule is a tariff option: a rate program the customer could switch to.
// All three methods are pure and must never mutate their inputs. Transform is
// meaningful once Triggers returned true and is called even when eligibility
// failed, so the evaluator can show what the option would have looked like.
type Rule interface {
	ID() string
	Triggers(baseline Baseline) bool
	CheckEligibility(baseline Baseline, assets Assets) types.EligibilityVerdict
	Transform(tariff types.TariffModel, baseline Baseline, assets Assets) (types.TariffModel, []string)
}

// Registry is an ordered list of rules. Order matters: scenario discovery and
// therefore ranking tie-breaks follow registration order.
type Registry struct {
	rules []Rule
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a rule. A rule re-registered under the same ID replaces
// the original in place, keeping its position.
func (r *Registry) Register(rule Rule) {
	for i, existing := range r.rules {
		if existing.ID() == rule.ID() {
			r.rules[i] = rule
			return
		}
	}
	r.rules = append(r.rules, rule)
}

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Configured returns the statically registered rule set.
func Configured() *Registry {
	r := NewRegistry()
	r.Register(&OvernightTOU{})
	r.Register(&StorageDemandRider{})
	return r
}

// insufficientData is the terminal fallback of every eligibility chain: a
// definitive fail with zero confidence plus the specific items that were
// missing. The system never asserts eligibility it cannot justify.
func insufficientData(reason string, missing ...types.MissingInfo) types.EligibilityVerdict {
	return types.EligibilityVerdict{
		Eligible:    false,
		Confidence:  0,
		Reasons:     []string{reason},
		MissingInfo: missing,
	}
}
