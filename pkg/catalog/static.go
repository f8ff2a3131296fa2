package catalog

import (
	"context"
	"strings"
)

// Static is an in-memory catalog. It is the default provider and the source
// of truth the Firestore catalog gets seeded from.
type Static struct {
	rates []RateInfo
}

var _ Catalog = (*Static)(nil)

// NewStatic creates a catalog over a fixed rate table.
func NewStatic(rates ...RateInfo) *Static {
	return &Static{rates: rates}
}

// DefaultRates returns the built-in rate table.
func DefaultRates() []RateInfo {
	return []RateInfo{
		{Utility: "comed", RateCode: "BESH", RatePerKWMonth: 9.25, Description: "ComEd hourly w/ storage demand"},
		{Utility: "ameren", RateCode: "PSP", RatePerKWMonth: 11.40, Description: "Ameren power smart pricing demand"},
		{Utility: "generic", RateCode: "GS-1", RatePerKWMonth: 10.00, Description: "General service demand"},
		{Utility: "generic", RateCode: "GS-2", RatePerKWMonth: 13.75, Description: "Large general service demand"},
		{Utility: "generic", RateCode: "TOU-A", RatePerKWMonth: 8.50, Description: "Time-of-use general service demand"},
	}
}

func (s *Static) Lookup(ctx context.Context, rateCode, utility string) (*RateInfo, error) {
	for _, r := range s.rates {
		if strings.EqualFold(r.RateCode, rateCode) && strings.EqualFold(r.Utility, utility) {
			found := r
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Static) Rates(ctx context.Context, utility string) ([]RateInfo, error) {
	var out []RateInfo
	for _, r := range s.rates {
		if strings.EqualFold(r.Utility, utility) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Static) Close() error { return nil }
