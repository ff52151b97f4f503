package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/email"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store/mocks"
	"github.com/example/pharmacy-storefront/internal/readmodel"
)

type fakeMailer struct {
	sent []email.OrderConfirmation
	to   []string
	err  error
}

func (m *fakeMailer) SendOrderConfirmation(to string, c email.OrderConfirmation) error {
	m.to = append(m.to, to)
	m.sent = append(m.sent, c)
	return m.err
}

type testEnv struct {
	handler    *Handler
	orders     *order.Service
	eventStore *mocks.MockEventStore
	readStore  *mocks.MockReadStore
	mailer     *fakeMailer
}

func newTestHandler() *testEnv {
	eventStore := mocks.NewMockEventStore()
	readStore := mocks.NewMockReadStore()
	orders := order.NewService(eventStore)
	mailer := &fakeMailer{}
	return &testEnv{
		handler:    NewHandler(orders, readStore, mailer),
		orders:     orders,
		eventStore: eventStore,
		readStore:  readStore,
		mailer:     mailer,
	}
}

func testDraft(id string, method order.PaymentMethod) order.Draft {
	return order.Draft{
		ID:     id,
		UserID: "user-1",
		Customer: order.Customer{
			Name:  "Siti",
			Email: "siti@example.com",
			Phone: "0812",
		},
		Items:         []order.OrderItem{{ProductID: "p1", Name: "Paracetamol", Quantity: 2, Price: 10000}},
		Subtotal:      20000,
		Tax:           2000,
		Discount:      1000,
		Total:         21000,
		CouponCode:    "HEMAT1K",
		PaymentMethod: method,
	}
}

// deliverAll feeds every stored event of an order to the handler
func (e *testEnv) deliverAll(t *testing.T, orderID string) []store.Event {
	t.Helper()
	events, err := e.eventStore.GetEvents(context.Background(), orderID)
	require.NoError(t, err)
	for _, ev := range events {
		require.NoError(t, e.handler.HandleEvent(context.Background(), ev))
	}
	return events
}

func (e *testEnv) notifications() []*readmodel.NotificationReadModel {
	items, _ := e.readStore.GetAll(context.Background(), readmodel.CollectionNotifications)
	result := make([]*readmodel.NotificationReadModel, 0, len(items))
	for _, item := range items {
		result = append(result, item.(*readmodel.NotificationReadModel))
	}
	return result
}

func (e *testEnv) notificationFor(t *testing.T, ev store.Event) *readmodel.NotificationReadModel {
	t.Helper()
	data, ok := e.readStore.GetData(readmodel.CollectionNotifications, notificationID(ev.ID))
	require.True(t, ok, "no notification for %s", ev.EventType)
	return data.(*readmodel.NotificationReadModel)
}

// ============================================
// Order Placed Tests
// ============================================

func TestHandleEvent_OrderPlaced(t *testing.T) {
	env := newTestHandler()
	_, err := env.orders.Place(context.Background(), testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)

	events := env.deliverAll(t, "ORD-1")

	n := env.notificationFor(t, events[0])
	assert.Equal(t, "user-1", n.UserID)
	assert.Equal(t, TypeOrder, n.Type)
	assert.Equal(t, "ORD-1", n.OrderID)
	assert.Equal(t, "Order received", n.Title)
	assert.Contains(t, n.Message, "awaiting pickup")
	assert.False(t, n.Read)
	require.NotNil(t, n.OrderDetails)
	assert.Equal(t, 20000, n.OrderDetails.Subtotal)
	assert.Equal(t, 2000, n.OrderDetails.Tax)
	assert.Equal(t, 1000, n.OrderDetails.Discount)
	assert.Equal(t, 21000, n.OrderDetails.Total)
	assert.Equal(t, "awaiting pickup", n.OrderDetails.StatusText)
	assert.Len(t, n.OrderDetails.Items, 1)

	require.Len(t, env.mailer.sent, 1)
	assert.Equal(t, "siti@example.com", env.mailer.to[0])
	assert.Equal(t, "ORD-1", env.mailer.sent[0].OrderID)
	assert.Equal(t, 21000, env.mailer.sent[0].Total)
	assert.Equal(t, "HEMAT1K", env.mailer.sent[0].CouponCode)
}

func TestHandleEvent_RedeliveryOverwritesSameNotification(t *testing.T) {
	env := newTestHandler()
	_, err := env.orders.Place(context.Background(), testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)

	env.deliverAll(t, "ORD-1")
	env.deliverAll(t, "ORD-1")

	assert.Len(t, env.notifications(), 1)
}

func TestHandleEvent_EmailFailureDoesNotFail(t *testing.T) {
	env := newTestHandler()
	env.mailer.err = errors.New("smtp down")
	_, err := env.orders.Place(context.Background(), testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)

	env.deliverAll(t, "ORD-1")

	assert.Len(t, env.notifications(), 1)
}

func TestHandleEvent_NoMailer(t *testing.T) {
	env := newTestHandler()
	env.handler = NewHandler(env.orders, env.readStore, nil)
	_, err := env.orders.Place(context.Background(), testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)

	env.deliverAll(t, "ORD-1")

	assert.Len(t, env.notifications(), 1)
	assert.Empty(t, env.mailer.sent)
}

// ============================================
// Lifecycle Tests
// ============================================

func TestHandleEvent_PaymentConfirmed(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	d := testDraft("ORD-1", order.MethodPayOnline)
	d.PaymentStatus = order.PaymentPending
	_, err := env.orders.Place(ctx, d)
	require.NoError(t, err)
	_, err = env.orders.ConfirmPayment(ctx, "ORD-1", nil)
	require.NoError(t, err)

	events := env.deliverAll(t, "ORD-1")
	require.Len(t, events, 2)

	placed := env.notificationFor(t, events[0])
	assert.Equal(t, "awaiting payment confirmation", placed.OrderDetails.StatusText, "snapshot is taken at the event version")

	confirmed := env.notificationFor(t, events[1])
	assert.Equal(t, "Payment confirmed", confirmed.Title)
	assert.Equal(t, "paid, awaiting pickup", confirmed.OrderDetails.StatusText)
	assert.Len(t, env.mailer.sent, 1, "only placement sends email")
}

func TestHandleEvent_PaymentFailed(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	d := testDraft("ORD-1", order.MethodPayOnline)
	d.PaymentStatus = order.PaymentPending
	_, err := env.orders.Place(ctx, d)
	require.NoError(t, err)
	_, err = env.orders.FailPayment(ctx, "ORD-1", "expire", nil)
	require.NoError(t, err)

	events := env.deliverAll(t, "ORD-1")

	n := env.notificationFor(t, events[1])
	assert.Equal(t, TypeWarning, n.Type)
	assert.Equal(t, "Payment failed", n.Title)
	assert.Equal(t, "cancelled", n.OrderDetails.StatusText)
}

func TestHandleEvent_StatusChanged(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	_, err := env.orders.Place(ctx, testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)
	_, err = env.orders.ChangeStatus(ctx, "ORD-1", order.StatusPreparing, "")
	require.NoError(t, err)

	events := env.deliverAll(t, "ORD-1")

	n := env.notificationFor(t, events[1])
	assert.Equal(t, "Order status updated", n.Title)
	assert.Equal(t, "Order ORD-1 is now being prepared.", n.Message)
	assert.Len(t, env.notifications(), 2, "one notification per order event")
}

func TestHandleEvent_Cancelled(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	_, err := env.orders.Place(ctx, testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)
	_, err = env.orders.Cancel(ctx, "ORD-1", "out of stock")
	require.NoError(t, err)

	events := env.deliverAll(t, "ORD-1")

	n := env.notificationFor(t, events[1])
	assert.Equal(t, TypeWarning, n.Type)
	assert.Equal(t, "Order ORD-1 has been cancelled: out of stock.", n.Message)
}

func TestHandleEvent_RemovedFromHistoryIsSilent(t *testing.T) {
	env := newTestHandler()
	ctx := context.Background()
	_, err := env.orders.Place(ctx, testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)
	require.NoError(t, env.orders.RemoveFromHistory(ctx, "ORD-1", "user-1"))

	env.deliverAll(t, "ORD-1")

	assert.Len(t, env.notifications(), 1)
}

// ============================================
// Error Tests
// ============================================

func TestHandleEvent_IgnoresOtherAggregates(t *testing.T) {
	env := newTestHandler()

	err := env.handler.HandleEvent(context.Background(), store.Event{
		ID:            "ev-1",
		AggregateID:   "cart-user-1",
		AggregateType: "Cart",
		EventType:     "CartItemAdded",
		Version:       1,
	})

	require.NoError(t, err)
	assert.Empty(t, env.readStore.SetCalls)
}

func TestHandleEvent_UnknownOrder(t *testing.T) {
	env := newTestHandler()

	err := env.handler.HandleEvent(context.Background(), store.Event{
		ID:            "ev-1",
		AggregateID:   "ORD-missing",
		AggregateType: order.AggregateType,
		EventType:     order.EventOrderPlaced,
		Version:       1,
	})

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.Empty(t, env.readStore.SetCalls)
}

func TestHandleEvent_StoreError(t *testing.T) {
	env := newTestHandler()
	env.readStore.SetErr = errors.New("db down")
	_, err := env.orders.Place(context.Background(), testDraft("ORD-1", order.MethodPayOnPickup))
	require.NoError(t, err)

	events, _ := env.eventStore.GetEvents(context.Background(), "ORD-1")
	err = env.handler.HandleEvent(context.Background(), events[0])

	assert.EqualError(t, err, "db down")
	assert.Empty(t, env.mailer.sent, "no email without a stored notification")
}
