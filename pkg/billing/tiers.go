package billing

import "github.com/ratecompass/ratecompass/pkg/types"

// TieredAmount prices a demand value against an ordered telescoping tier
// list. The value is allocated bottom-up: each capped tier absorbs up to its
// cap, the remainder spills into the next tier, and an uncapped tier takes
// everything left. This is the single pricing primitive shared by the billing
// oracle and (first tier only) the dispatch optimizer.
func TieredAmount(valueKW float64, tiers []types.Tier) float64 {
	if valueKW <= 0 || len(tiers) == 0 {
		return 0
	}

	var total float64
	remaining := valueKW
	prevCap := 0.0
	for _, tier := range tiers {
		if remaining <= 0 {
			break
		}
		if tier.MaxKW <= 0 {
			// uncapped tier takes the rest
			total += remaining * tier.DollarsPerKW
			remaining = 0
			continue
		}
		size := tier.MaxKW - prevCap
		if size < 0 {
			size = 0
		}
		alloc := remaining
		if alloc > size {
			alloc = size
		}
		total += alloc * tier.DollarsPerKW
		remaining -= alloc
		prevCap = tier.MaxKW
	}
	if remaining > 0 {
		// tiers were all capped; the last tier absorbs the overflow at its
		// price so the function stays monotonic
		total += remaining * tiers[len(tiers)-1].DollarsPerKW
	}
	return total
}
