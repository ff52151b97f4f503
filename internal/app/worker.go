package app

import (
	"context"
	"errors"
	"log"

	"github.com/example/pharmacy-storefront/internal/config"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/notification"
	"github.com/example/pharmacy-storefront/internal/projection"
)

// ErrNoReadDatabase is returned when a standalone consumer would write to a private in-memory read store
var ErrNoReadDatabase = errors.New("DATABASE_URL is required for standalone event consumers")

// Worker applies stored events to one downstream handler
type Worker struct {
	Name   string
	handle func(ctx context.Context, event store.Event) error
	stores *Stores
}

// NewProjectorWorker builds the read-model projector for the Kafka and Kinesis consumers
func NewProjectorWorker(ctx context.Context, cfg *config.Config) (*Worker, error) {
	stores, err := openWorkerStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	projector := projection.NewProjector(stores.Reads)
	return &Worker{Name: "Projector", handle: projector.HandleEvent, stores: stores}, nil
}

// NewNotifierWorker builds the notification handler for the Kafka and Kinesis consumers.
// It reads orders back from the event store, so it needs the same event backend as the API.
func NewNotifierWorker(ctx context.Context, cfg *config.Config) (*Worker, error) {
	stores, err := openWorkerStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.EventStore == config.StoreMemory {
		stores.Close()
		return nil, errors.New("the notifier needs a persistent EVENT_STORE to rebuild orders")
	}
	handler := notification.NewHandler(order.NewService(stores.Events), stores.Reads, NewMailer(cfg))
	return &Worker{Name: "Notifier", handle: handler.HandleEvent, stores: stores}, nil
}

func openWorkerStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg.DatabaseURL == "" {
		return nil, ErrNoReadDatabase
	}
	// consumers never append, so no publisher is attached
	return OpenStores(ctx, cfg, nil)
}

// Handle processes one event; it satisfies both the Kafka and Kinesis handler types
func (w *Worker) Handle(ctx context.Context, event store.Event) error {
	return w.handle(ctx, event)
}

func (w *Worker) Close() {
	if err := w.stores.Close(); err != nil {
		log.Printf("[%s] Close error: %v", w.Name, err)
	}
}
