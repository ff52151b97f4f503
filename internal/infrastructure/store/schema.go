package store

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id             TEXT        NOT NULL UNIQUE,
		aggregate_id   TEXT        NOT NULL,
		aggregate_type TEXT        NOT NULL,
		event_type     TEXT        NOT NULL,
		data           JSONB       NOT NULL,
		version        INTEGER     NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (aggregate_id, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events (created_at)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		aggregate_id   TEXT        PRIMARY KEY,
		aggregate_type TEXT        NOT NULL,
		version        INTEGER     NOT NULL,
		state          JSONB       NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS read_models (
		collection TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		data       JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`,
}

// Migrate creates the event, snapshot and read model tables if they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
