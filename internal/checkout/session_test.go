package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore_SaveGetDelete(t *testing.T) {
	store := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{OrderID: "ORD-1", UserID: "u1", State: StateWidgetOpen}))

	got, err := store.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, got.State)

	// callers get a copy
	got.State = StateError
	again, err := store.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, again.State)

	require.NoError(t, store.Delete(ctx, "ORD-1"))
	_, err = store.Get(ctx, "ORD-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{OrderID: "ORD-1"}))

	now = now.Add(59 * time.Second)
	_, err := store.Get(ctx, "ORD-1")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Get(ctx, "ORD-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
