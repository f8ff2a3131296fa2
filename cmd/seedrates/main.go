package main

import (
	"context"
	"fmt"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/ratecompass/ratecompass/pkg/catalog"
	"github.com/ratecompass/ratecompass/pkg/log"
)

func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	f := catalog.ConfiguredFirestore()
	lflag.Configure()

	ctx := context.Background()

	if err := f.Init(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to init firestore catalog", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close firestore catalog", "error", err)
		}
	}()

	rates := catalog.DefaultRates()
	log.Ctx(ctx).InfoContext(ctx, "seeding rate catalog")
	if err := f.Seed(ctx, rates); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed rates", "error", err)
		os.Exit(1)
	}

	for _, r := range rates {
		fmt.Printf("Seeded %s/%s at $%.2f/kW-month\n", r.Utility, r.RateCode, r.RatePerKWMonth)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeded rate catalog successfully")
}
