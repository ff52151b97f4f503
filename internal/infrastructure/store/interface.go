package store

import (
	"context"
	"errors"
)

var (
	// ErrVersionConflict is returned when another writer appended to the same
	// aggregate version first.
	ErrVersionConflict = errors.New("aggregate version conflict")
)

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	// Append stores one event as version expectedVersion+1. It fails with ErrVersionConflict
	// when the aggregate's latest stored version is not expectedVersion.
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, expectedVersion int, data any) (*Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetEventsFromVersion(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
	GetSnapshot(ctx context.Context, aggregateID string) (*Snapshot, error)
}

// Publisher forwards stored events to downstream consumers (Kafka, in-process handlers).
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}
