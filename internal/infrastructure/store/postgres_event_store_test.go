package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maxVersionQuery = regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1")

func newTestPostgresStore(t *testing.T, pub Publisher) (*PostgresEventStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresEventStore(db, pub), mock
}

func expectMaxVersion(mock sqlmock.Sqlmock, aggregateID string, version int) {
	mock.ExpectQuery(maxVersionQuery).
		WithArgs(aggregateID).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(version))
}

// ============================================
// PostgresEventStore Append Tests
// ============================================

func TestPostgresEventStore_Append_NextVersion(t *testing.T) {
	pub := &recordingPublisher{}
	es, mock := newTestPostgresStore(t, pub)
	expectMaxVersion(mock, "cart-u1", 2)
	mock.ExpectExec("INSERT INTO events").
		WithArgs(sqlmock.AnyArg(), "cart-u1", "Cart", "ItemAddedToCart", sqlmock.AnyArg(), 3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event, err := es.Append(context.Background(), "cart-u1", "Cart", "ItemAddedToCart", 2, map[string]int{"quantity": 2})

	require.NoError(t, err)
	assert.Equal(t, 3, event.Version)
	assert.Equal(t, []string{"cart-u1"}, pub.keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_Append_StaleVersion(t *testing.T) {
	pub := &recordingPublisher{}
	es, mock := newTestPostgresStore(t, pub)
	expectMaxVersion(mock, "cart-u1", 3)

	_, err := es.Append(context.Background(), "cart-u1", "Cart", "ItemAddedToCart", 2, struct{}{})

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, pub.keys)
	// nothing is inserted
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEventStore_Append_LostRace(t *testing.T) {
	pub := &recordingPublisher{}
	es, mock := newTestPostgresStore(t, pub)
	expectMaxVersion(mock, "ORD-1", 1)
	mock.ExpectExec("INSERT INTO events").
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := es.Append(context.Background(), "ORD-1", "Order", "OrderPaymentConfirmed", 1, struct{}{})

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, pub.keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}
