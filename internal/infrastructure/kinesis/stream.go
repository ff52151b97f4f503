package kinesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
)

// Handler processes one event taken from the stream
type Handler func(ctx context.Context, event store.Event) error

// DecodeRecord extracts a stored event from a Kinesis record carrying a DynamoDB stream change.
// Only inserts into the events table carry new events; other changes decode to nil.
func DecodeRecord(record events.KinesisEventRecord) (*store.Event, error) {
	var change events.DynamoDBEventRecord
	if err := json.Unmarshal(record.Kinesis.Data, &change); err != nil {
		return nil, fmt.Errorf("unmarshal dynamodb change: %w", err)
	}
	if change.EventName != "INSERT" {
		return nil, nil
	}
	return fromImage(change.Change.NewImage)
}

func fromImage(image map[string]events.DynamoDBAttributeValue) (*store.Event, error) {
	if image == nil {
		return nil, fmt.Errorf("new image is empty")
	}

	str := func(key string) string {
		if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
			return v.String()
		}
		return ""
	}

	event := &store.Event{
		ID:            str("id"),
		AggregateID:   str("aggregate_id"),
		AggregateType: str("aggregate_type"),
		EventType:     str("event_type"),
		Data:          json.RawMessage(str("data")),
	}
	if event.ID == "" || event.AggregateID == "" || event.EventType == "" {
		return nil, fmt.Errorf("missing required fields: id=%q aggregate_id=%q event_type=%q",
			event.ID, event.AggregateID, event.EventType)
	}

	if created := str("created_at"); created != "" {
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		event.Timestamp = ts
	}
	if v, ok := image["version"]; ok {
		version, err := v.Integer()
		if err != nil {
			return nil, fmt.Errorf("parse version: %w", err)
		}
		event.Version = int(version)
	}

	return event, nil
}

// Process runs handler over every decodable record in the batch.
// Undecodable records are logged and dropped. Handler failures are reported as
// batch item failures so Lambda retries from that record onward.
func Process(ctx context.Context, name string, batch events.KinesisEvent, handler Handler) events.KinesisEventResponse {
	var resp events.KinesisEventResponse

	for _, record := range batch.Records {
		event, err := DecodeRecord(record)
		if err != nil {
			log.Printf("[%s] Dropping record %s: %v", name, record.EventID, err)
			continue
		}
		if event == nil {
			continue
		}

		if err := handler(ctx, *event); err != nil {
			log.Printf("[%s] Error handling %s for %s: %v", name, event.EventType, event.AggregateID, err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.KinesisBatchItemFailure{
				ItemIdentifier: record.Kinesis.SequenceNumber,
			})
			// later records of the same shard must not overtake the failed one
			break
		}
	}

	return resp
}
