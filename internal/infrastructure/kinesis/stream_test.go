package kinesis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertImage(id, aggregateID, eventType string) map[string]events.DynamoDBAttributeValue {
	return map[string]events.DynamoDBAttributeValue{
		"id":             events.NewStringAttribute(id),
		"aggregate_id":   events.NewStringAttribute(aggregateID),
		"aggregate_type": events.NewStringAttribute("Order"),
		"event_type":     events.NewStringAttribute(eventType),
		"data":           events.NewStringAttribute(`{"order_id":"` + aggregateID + `"}`),
		"created_at":     events.NewStringAttribute("2024-01-15T10:30:00.123456789Z"),
		"version":        events.NewNumberAttribute("1"),
	}
}

func kinesisRecord(t *testing.T, seq, eventName string, image map[string]events.DynamoDBAttributeValue) events.KinesisEventRecord {
	t.Helper()
	raw, err := json.Marshal(events.DynamoDBEventRecord{
		EventName: eventName,
		Change:    events.DynamoDBStreamRecord{NewImage: image},
	})
	require.NoError(t, err)
	return events.KinesisEventRecord{
		EventID: "shard-1:" + seq,
		Kinesis: events.KinesisRecord{Data: raw, SequenceNumber: seq},
	}
}

// ============================================
// DecodeRecord Tests
// ============================================

func TestDecodeRecord_Insert(t *testing.T) {
	record := kinesisRecord(t, "1", "INSERT", insertImage("e-1", "ORD-1", "OrderPlaced"))

	event, err := DecodeRecord(record)

	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "e-1", event.ID)
	assert.Equal(t, "ORD-1", event.AggregateID)
	assert.Equal(t, "OrderPlaced", event.EventType)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, 2024, event.Timestamp.Year())
	assert.JSONEq(t, `{"order_id":"ORD-1"}`, string(event.Data))
}

func TestDecodeRecord_NonInsertIgnored(t *testing.T) {
	for _, name := range []string{"MODIFY", "REMOVE"} {
		event, err := DecodeRecord(kinesisRecord(t, "1", name, nil))
		require.NoError(t, err)
		assert.Nil(t, event, name)
	}
}

func TestDecodeRecord_MissingFields(t *testing.T) {
	record := kinesisRecord(t, "1", "INSERT", map[string]events.DynamoDBAttributeValue{
		"id": events.NewStringAttribute("e-1"),
	})

	_, err := DecodeRecord(record)

	assert.Error(t, err)
}

// ============================================
// Process Tests
// ============================================

func TestProcess_SkipsUndecodableRecords(t *testing.T) {
	batch := events.KinesisEvent{Records: []events.KinesisEventRecord{
		kinesisRecord(t, "1", "INSERT", insertImage("e-1", "ORD-1", "OrderPlaced")),
		kinesisRecord(t, "2", "MODIFY", nil),
		{EventID: "bad", Kinesis: events.KinesisRecord{Data: []byte("not json"), SequenceNumber: "3"}},
	}}

	var handled []string
	resp := Process(context.Background(), "Test", batch, func(ctx context.Context, e store.Event) error {
		handled = append(handled, e.ID)
		return nil
	})

	assert.Empty(t, resp.BatchItemFailures)
	assert.Equal(t, []string{"e-1"}, handled)
}

func TestProcess_ReportsFirstFailure(t *testing.T) {
	batch := events.KinesisEvent{Records: []events.KinesisEventRecord{
		kinesisRecord(t, "1", "INSERT", insertImage("e-1", "ORD-1", "OrderPlaced")),
		kinesisRecord(t, "2", "INSERT", insertImage("e-2", "ORD-2", "OrderPlaced")),
		kinesisRecord(t, "3", "INSERT", insertImage("e-3", "ORD-3", "OrderPlaced")),
	}}

	var handled []string
	resp := Process(context.Background(), "Test", batch, func(ctx context.Context, e store.Event) error {
		handled = append(handled, e.ID)
		if e.ID == "e-2" {
			return errors.New("read store unavailable")
		}
		return nil
	})

	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "2", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, []string{"e-1", "e-2"}, handled)
}
