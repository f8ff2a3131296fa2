package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreCatalog implements Catalog over Google Cloud Firestore. Rates live
// under catalogs/{utility}/rates/{rateCode}.
type FirestoreCatalog struct {
	client    *firestore.Client
	projectID string
	database  string
}

var _ Catalog = (*FirestoreCatalog)(nil)

// ConfiguredFirestore sets up the Firestore catalog. It registers flags for
// configuration. Init must be called before use.
func ConfiguredFirestore() *FirestoreCatalog {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")

	f := &FirestoreCatalog{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database

		// set this because that's how the firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Init initializes the Firestore client. This must be called before using the
// catalog methods.
func (f *FirestoreCatalog) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreCatalog) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreCatalog) ratesCollection(utility string) (*firestore.CollectionRef, error) {
	if utility == "" {
		return nil, fmt.Errorf("utility cannot be empty")
	}
	return f.client.Collection("catalogs").Doc(strings.ToLower(utility)).Collection("rates"), nil
}

func (f *FirestoreCatalog) Lookup(ctx context.Context, rateCode, utility string) (*RateInfo, error) {
	coll, err := f.ratesCollection(utility)
	if err != nil {
		return nil, err
	}
	doc, err := coll.Doc(strings.ToUpper(rateCode)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch rate doc: %w", err)
	}
	var info RateInfo
	if err := doc.DataTo(&info); err != nil {
		return nil, fmt.Errorf("failed to decode rate doc: %w", err)
	}
	return &info, nil
}

func (f *FirestoreCatalog) Rates(ctx context.Context, utility string) ([]RateInfo, error) {
	coll, err := f.ratesCollection(utility)
	if err != nil {
		return nil, err
	}
	var out []RateInfo
	iter := coll.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate rates: %w", err)
		}
		var info RateInfo
		if err := doc.DataTo(&info); err != nil {
			return nil, fmt.Errorf("failed to decode rate doc %s: %w", doc.Ref.ID, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Seed writes rate entries, overwriting any existing documents. Used by the
// seedrates command.
func (f *FirestoreCatalog) Seed(ctx context.Context, rates []RateInfo) error {
	for _, r := range rates {
		coll, err := f.ratesCollection(r.Utility)
		if err != nil {
			return err
		}
		if _, err := coll.Doc(strings.ToUpper(r.RateCode)).Set(ctx, r); err != nil {
			return fmt.Errorf("failed to seed rate %s/%s: %w", r.Utility, r.RateCode, err)
		}
	}
	return nil
}
