package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
)

// Handler processes one stored event
type Handler func(ctx context.Context, event store.Event) error

type subscriber struct {
	name    string
	handler Handler
}

// Local delivers events to in-process subscribers synchronously, in subscription order.
// It stands in for Kafka when no brokers are configured.
type Local struct {
	mu          sync.RWMutex
	subscribers []subscriber
}

func NewLocal() *Local {
	return &Local{}
}

// Subscribe registers a handler under a name used in logs
func (b *Local) Subscribe(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriber{name: name, handler: handler})
}

// Publish implements store.Publisher.
// Handler errors are logged; the event is already stored, so they are not returned to the writer.
func (b *Local) Publish(ctx context.Context, key string, event any) error {
	e, err := toEvent(event)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := append([]subscriber(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler(ctx, e); err != nil {
			log.Printf("[%s] Error handling %s for %s: %v", s.name, e.EventType, key, err)
		}
	}
	return nil
}

func toEvent(event any) (store.Event, error) {
	switch e := event.(type) {
	case store.Event:
		return e, nil
	case *store.Event:
		return *e, nil
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return store.Event{}, err
	}
	var e store.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return store.Event{}, fmt.Errorf("eventbus: not an event: %w", err)
	}
	return e, nil
}
