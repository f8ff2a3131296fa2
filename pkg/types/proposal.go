package types

// AuditStep records one named pipeline step with its salient inputs and
// outputs, for customer-facing explanations.
type AuditStep struct {
	Name    string            `json:"name"`
	Inputs  map[string]string `json:"inputs,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty"`
}

// StrategyResult bundles everything known about one evaluated scenario.
// OperationalSavingsUSD is exactly 0 when no battery was supplied.
type StrategyResult struct {
	Scenario              Scenario      `json:"scenario"`
	NoDispatchBill        BillBreakdown `json:"noDispatchBill"`
	DispatchBill          BillBreakdown `json:"dispatchBill"`
	StructuralSavingsUSD  float64       `json:"structuralSavingsUSD"`
	OperationalSavingsUSD float64       `json:"operationalSavingsUSD"`
	TotalSavingsUSD       float64       `json:"totalSavingsUSD"`
	SolverStatus          string        `json:"solverStatus,omitempty"`
	Confidence            float64       `json:"confidence"`
	Notes                 []string      `json:"notes,omitempty"`
	AuditTrail            []AuditStep   `json:"auditTrail,omitempty"`
}

// DataQuality summarizes how trustworthy an interval series is.
type DataQuality struct {
	IntervalMinutes  float64 `json:"intervalMinutes"`
	GapCount         int     `json:"gapCount"`
	OutlierCount     int     `json:"outlierCount"`
	CoverageFraction float64 `json:"coverageFraction"`
	Confidence       float64 `json:"confidence"`
}

// ProposalPack is the engine's entire public result: ranked strategies,
// rejected candidates, and the deduplicated missing-information list.
type ProposalPack struct {
	BaselineBill BillBreakdown    `json:"baselineBill"`
	Quality      DataQuality      `json:"quality"`
	Strategies   []StrategyResult `json:"strategies"`
	Rejected     []StrategyResult `json:"rejected,omitempty"`
	MissingInfo  []MissingInfo    `json:"missingInfo,omitempty"`
}

// DedupeMissingInfo deduplicates items by the (id, title) pair, preserving
// first-seen order.
func DedupeMissingInfo(items []MissingInfo) []MissingInfo {
	type key struct{ id, title string }
	seen := make(map[key]bool, len(items))
	var out []MissingInfo
	for _, mi := range items {
		k := key{mi.ID, mi.Title}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, mi)
	}
	return out
}
