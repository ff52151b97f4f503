package store

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	putErr  error
	puts    []*dynamodb.PutItemInput
	queries []*dynamodb.QueryOutput
	getOut  *dynamodb.GetItemOutput
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if len(f.queries) == 0 {
		return &dynamodb.QueryOutput{}, nil
	}
	out := f.queries[0]
	f.queries = f.queries[1:]
	return out, nil
}

func TestDynamoEventStore_Append_FirstVersion(t *testing.T) {
	fake := &fakeDynamo{}
	es := NewDynamoEventStore(fake, "events", "snapshots")

	event, err := es.Append(context.Background(), "ORD-1", "Order", "OrderPlaced", 0, map[string]int{"total": 1100})

	require.NoError(t, err)
	assert.Equal(t, 1, event.Version)
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "attribute_not_exists(aggregate_id)", *fake.puts[0].ConditionExpression)
}

func TestDynamoEventStore_Append_NextVersion(t *testing.T) {
	fake := &fakeDynamo{queries: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			{"version": &types.AttributeValueMemberN{Value: "4"}},
		},
	}}}
	es := NewDynamoEventStore(fake, "events", "snapshots")

	event, err := es.Append(context.Background(), "ORD-1", "Order", "OrderStatusChanged", 4, struct{}{})

	require.NoError(t, err)
	assert.Equal(t, 5, event.Version)
}

func TestDynamoEventStore_Append_StaleVersion(t *testing.T) {
	fake := &fakeDynamo{queries: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			{"version": &types.AttributeValueMemberN{Value: "4"}},
		},
	}}}
	es := NewDynamoEventStore(fake, "events", "snapshots")

	_, err := es.Append(context.Background(), "cart-u1", "Cart", "ItemAddedToCart", 3, struct{}{})

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, fake.puts)
}

func TestDynamoEventStore_Append_ConditionFailed(t *testing.T) {
	fake := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}
	es := NewDynamoEventStore(fake, "events", "snapshots")

	_, err := es.Append(context.Background(), "ORD-1", "Order", "OrderPlaced", 0, struct{}{})

	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestDynamoEventStore_GetAllEvents_FollowsPages(t *testing.T) {
	item := func(id string, v string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{
			"aggregate_id":   &types.AttributeValueMemberS{Value: id},
			"version":        &types.AttributeValueMemberN{Value: v},
			"id":             &types.AttributeValueMemberS{Value: id + "-" + v},
			"aggregate_type": &types.AttributeValueMemberS{Value: "Order"},
			"event_type":     &types.AttributeValueMemberS{Value: "OrderPlaced"},
			"data":           &types.AttributeValueMemberS{Value: "{}"},
			"created_at":     &types.AttributeValueMemberS{Value: "2024-01-01T00:00:00Z"},
		}
	}
	fake := &fakeDynamo{queries: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{item("ORD-1", "1")},
			LastEvaluatedKey: map[string]types.AttributeValue{"aggregate_id": &types.AttributeValueMemberS{Value: "ORD-1"}},
		},
		{Items: []map[string]types.AttributeValue{item("ORD-2", "1")}},
	}}
	es := NewDynamoEventStore(fake, "events", "snapshots")

	events, err := es.GetAllEvents(context.Background())

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ORD-1", events[0].AggregateID)
	assert.Equal(t, "ORD-2", events[1].AggregateID)
}

func TestDynamoEventStore_GetSnapshot_Missing(t *testing.T) {
	es := NewDynamoEventStore(&fakeDynamo{}, "events", "snapshots")

	snap, err := es.GetSnapshot(context.Background(), "cart-u1")

	require.NoError(t, err)
	assert.Nil(t, snap)
}
