package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/pharmacy-storefront/internal/readmodel"
)

// ErrUnknownCollection is returned for collections without a registered read model type
var ErrUnknownCollection = errors.New("unknown read model collection")

// PostgresReadStore implements ReadStoreInterface on a single JSONB table keyed by (collection, id)
type PostgresReadStore struct {
	db *sql.DB
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

// Set stores a read model
func (rs *PostgresReadStore) Set(ctx context.Context, collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	_, err = rs.db.ExecContext(ctx,
		`INSERT INTO read_models (collection, id, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		collection, id, raw,
	)
	return err
}

// Get retrieves a read model by id
func (rs *PostgresReadStore) Get(ctx context.Context, collection, id string) (any, bool, error) {
	var raw []byte
	err := rs.db.QueryRowContext(ctx,
		"SELECT data FROM read_models WHERE collection = $1 AND id = $2",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	v, err := decode(collection, raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// GetAll retrieves all items in a collection
func (rs *PostgresReadStore) GetAll(ctx context.Context, collection string) ([]any, error) {
	rows, err := rs.db.QueryContext(ctx,
		"SELECT data FROM read_models WHERE collection = $1 ORDER BY updated_at",
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := decode(collection, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// Delete removes a read model
func (rs *PostgresReadStore) Delete(ctx context.Context, collection, id string) error {
	_, err := rs.db.ExecContext(ctx,
		"DELETE FROM read_models WHERE collection = $1 AND id = $2",
		collection, id,
	)
	return err
}

// Update modifies a read model using an update function.
// The row is locked for the duration of the read-modify-write.
func (rs *PostgresReadStore) Update(ctx context.Context, collection, id string, updateFn func(current any) any) (bool, error) {
	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM read_models WHERE collection = $1 AND id = $2 FOR UPDATE",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	current, err := decode(collection, raw)
	if err != nil {
		return false, err
	}

	updated, err := json.Marshal(updateFn(current))
	if err != nil {
		return false, fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE read_models SET data = $3, updated_at = now() WHERE collection = $1 AND id = $2",
		collection, id, updated,
	); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func decode(collection string, raw []byte) (any, error) {
	v := readmodel.New(collection)
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", collection, err)
	}
	return v, nil
}
