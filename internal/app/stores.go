package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/example/pharmacy-storefront/internal/config"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
)

// Stores bundles the event and read stores a process runs against
type Stores struct {
	Events store.EventStoreInterface
	Reads  store.ReadStoreInterface
	// PersistentReads is false when read models live in memory and must be rebuilt by replay
	PersistentReads bool

	db *sql.DB
}

// OpenStores connects the configured backends. Read models go to PostgreSQL whenever
// DATABASE_URL is set, whichever backend holds the events.
func OpenStores(ctx context.Context, cfg *config.Config, pub store.Publisher) (*Stores, error) {
	s := &Stores{}

	if cfg.DatabaseURL != "" {
		db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.db = db
		s.Reads = store.NewPostgresReadStore(db)
		s.PersistentReads = true
	} else {
		s.Reads = store.NewReadStore()
	}

	switch cfg.EventStore {
	case config.StorePostgres:
		s.Events = store.NewPostgresEventStore(s.db, pub)
	case config.StoreDynamoDB:
		client, err := NewDynamoClient(ctx, cfg.AWSRegion)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Events = store.NewDynamoEventStore(client, cfg.DynamoEventsTable, cfg.DynamoSnapshotsTable)
	default:
		s.Events = store.NewEventStore(pub)
	}

	log.Printf("[Stores] Events: %s, read models: %s", cfg.EventStore, readBackend(s.PersistentReads))
	return s, nil
}

// NewDynamoClient loads the default AWS credential chain for region
func NewDynamoClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func (s *Stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func readBackend(persistent bool) string {
	if persistent {
		return "postgres"
	}
	return "memory"
}
