// Package catalog resolves utility rate codes to rate-schedule metadata. The
// engine only consults it during tariff inference; a miss is a nil result,
// not an error.
package catalog

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"
)

// RateInfo is the catalog's record for one rate schedule.
type RateInfo struct {
	Utility        string  `json:"utility"`
	RateCode       string  `json:"rateCode"`
	RatePerKWMonth float64 `json:"ratePerKWMonth"`
	Description    string  `json:"description"`
}

// Catalog is the rate-lookup collaborator.
type Catalog interface {
	// Lookup resolves a rate code for a utility. Returns (nil, nil) when the
	// catalog has no matching entry.
	Lookup(ctx context.Context, rateCode, utility string) (*RateInfo, error)

	// Rates lists every entry for a utility.
	Rates(ctx context.Context, utility string) ([]RateInfo, error)

	// Lifecycle
	Close() error
}

// Configured sets up the catalog provider based on flags.
func Configured() Catalog {
	provider := lflag.String("catalog-provider", "static", "Rate catalog provider to use (available: static, firestore)")

	var p struct{ Catalog }

	fs := ConfiguredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "static":
			p.Catalog = NewStatic(DefaultRates()...)
		case "firestore":
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
			p.Catalog = fs
		default:
			panic(fmt.Sprintf("unknown catalog provider: %s", *provider))
		}
	})

	return &p
}
