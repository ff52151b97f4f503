package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/segmentio/kafka-go"
)

// EventHandler processes one decoded event
type EventHandler func(ctx context.Context, event store.Event) error

type Consumer struct {
	name   string
	reader *kafka.Reader
}

func NewConsumer(name string, brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{name: name, reader: reader}
}

// Consume reads messages until ctx is cancelled.
// Undecodable messages and handler failures are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[%s] Error reading message: %v", c.name, err)
			continue
		}

		event, err := DecodeEvent(msg.Value)
		if err != nil {
			log.Printf("[%s] Skipping message at offset %d: %v", c.name, msg.Offset, err)
			continue
		}

		if err := handler(ctx, event); err != nil {
			log.Printf("[%s] Error handling %s for %s: %v", c.name, event.EventType, event.AggregateID, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeEvent parses a message value written by Producer
func DecodeEvent(value []byte) (store.Event, error) {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("decode event: %w", err)
	}
	if event.EventType == "" || event.AggregateID == "" {
		return event, fmt.Errorf("decode event: missing event_type or aggregate_id")
	}
	return event, nil
}
