package types

// MissingInfoSeverity grades how badly an eligibility or inference decision
// needed a piece of information it did not have.
type MissingInfoSeverity string

const (
	MissingInfoBlocker    MissingInfoSeverity = "blocker"
	MissingInfoImportant  MissingInfoSeverity = "important"
	MissingInfoNiceToHave MissingInfoSeverity = "nice_to_have"
)

// MissingInfo is one piece of information the system could not determine.
type MissingInfo struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Detail   string              `json:"detail,omitempty"`
	Severity MissingInfoSeverity `json:"severity"`
}

// EligibilityVerdict is the outcome of a rule's eligibility chain. The system
// never asserts eligibility it cannot justify: the fallback when data is
// insufficient is a fail with confidence 0 plus the missing items.
type EligibilityVerdict struct {
	Eligible    bool          `json:"eligible"`
	Confidence  float64       `json:"confidence"` // 0..1
	Reasons     []string      `json:"reasons,omitempty"`
	MissingInfo []MissingInfo `json:"missingInfo,omitempty"`
}

// Scenario is a candidate tariff to evaluate, with how we got there.
type Scenario struct {
	Tariff         TariffModel        `json:"tariff"`
	AppliedRuleIDs []string           `json:"appliedRuleIDs,omitempty"`
	Verdict        EligibilityVerdict `json:"verdict"`
}
