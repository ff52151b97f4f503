package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/example/pharmacy-storefront/internal/coupon"
	"github.com/example/pharmacy-storefront/internal/domain/cart"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store/mocks"
	"github.com/example/pharmacy-storefront/internal/payment"
	"github.com/example/pharmacy-storefront/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testServerKey = "SB-Mid-server-test"

type fakeGateway struct {
	tokenErr    error
	status      *payment.Status
	statusErr   error
	created     []payment.Transaction
	statusCalls []string
}

func (g *fakeGateway) CreateTransaction(ctx context.Context, tx payment.Transaction) (*payment.TokenResponse, error) {
	g.created = append(g.created, tx)
	if g.tokenErr != nil {
		return nil, g.tokenErr
	}
	return &payment.TokenResponse{Token: "snap-" + tx.TransactionDetails.OrderID, RedirectURL: "https://pay/" + tx.TransactionDetails.OrderID}, nil
}

func (g *fakeGateway) TransactionStatus(ctx context.Context, orderID string) (*payment.Status, error) {
	g.statusCalls = append(g.statusCalls, orderID)
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	if g.status == nil {
		return nil, payment.ErrTransactionNotFound
	}
	st := *g.status
	st.OrderID = orderID
	return &st, nil
}

type testEnv struct {
	svc      *Service
	carts    *cart.Service
	orders   *order.Service
	es       *mocks.MockEventStore
	gateway  *fakeGateway
	sessions *MemorySessionStore
}

func newTestCheckout(t *testing.T, withGateway bool) *testEnv {
	t.Helper()
	es := mocks.NewMockEventStore()
	env := &testEnv{
		carts:    cart.NewService(es),
		orders:   order.NewService(es),
		es:       es,
		gateway:  &fakeGateway{},
		sessions: NewMemorySessionStore(DefaultSessionTTL),
	}
	opts := Options{
		ServerKey: testServerKey,
		Coupons:   coupon.Defaults(),
		Sessions:  env.sessions,
		IDs:       order.NewIDGenerator("TEST"),
	}
	if withGateway {
		opts.Gateway = env.gateway
	}
	env.svc = NewService(env.carts, env.orders, opts)
	return env
}

func (e *testEnv) seedCart(t *testing.T, userID string) {
	t.Helper()
	_, err := e.carts.AddItem(context.Background(), userID, cart.Item{ProductID: "p1", Name: "Paracetamol 500mg", Price: 12000, Stock: 50}, 2)
	require.NoError(t, err)
}

func (e *testEnv) cartItems(t *testing.T, userID string) []cart.Item {
	t.Helper()
	c, err := e.carts.Get(context.Background(), userID)
	require.NoError(t, err)
	return c.Items
}

func (e *testEnv) openWidget(t *testing.T, userID string) string {
	t.Helper()
	e.seedCart(t, userID)
	res, err := e.svc.Begin(context.Background(), userID, validForm(order.MethodPayOnline))
	require.NoError(t, err)
	require.Equal(t, StateWidgetOpen, res.State)
	return res.OrderID
}

func validForm(method order.PaymentMethod) Form {
	return Form{
		Name:          "Budi Santoso",
		Email:         "budi@example.com",
		Phone:         "08123456789",
		Address:       "Jl. Merdeka 1",
		PaymentMethod: method,
	}
}

func signed(orderID, transactionStatus string) payment.Status {
	return signedFor(orderID, transactionStatus, "26400.00")
}

func signedFor(orderID, transactionStatus, gross string) payment.Status {
	n := payment.Status{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       gross,
		TransactionStatus: transactionStatus,
	}
	n.SignatureKey = payment.Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

// ============================================
// Quote Tests
// ============================================

func TestService_Quote(t *testing.T) {
	env := newTestCheckout(t, true)
	env.seedCart(t, "user-1")

	sum, err := env.svc.Quote(context.Background(), "user-1", "")

	require.NoError(t, err)
	assert.Equal(t, 24000, sum.Quote.Subtotal)
	assert.Equal(t, 2400, sum.Quote.Tax)
	assert.Equal(t, 26400, sum.Quote.Total)
	assert.Len(t, sum.Items, 1)
}

func TestService_Quote_WithCoupon(t *testing.T) {
	env := newTestCheckout(t, true)
	_, err := env.carts.AddItem(context.Background(), "user-1", cart.Item{ProductID: "p2", Name: "Vitamin", Price: 60000}, 1)
	require.NoError(t, err)

	sum, err := env.svc.Quote(context.Background(), "user-1", "sehat10")

	require.NoError(t, err)
	assert.Equal(t, 6000, sum.Quote.Discount)
	assert.Equal(t, 60000+6000-6000, sum.Quote.Total)
}

func TestService_Quote_UnknownCoupon(t *testing.T) {
	env := newTestCheckout(t, true)
	env.seedCart(t, "user-1")

	_, err := env.svc.Quote(context.Background(), "user-1", "BOGUS")

	assert.ErrorIs(t, err, coupon.ErrUnknownCoupon)
}

// ============================================
// Begin Tests
// ============================================

func TestService_Begin_ValidationFails(t *testing.T) {
	env := newTestCheckout(t, true)
	env.seedCart(t, "user-1")
	appended := len(env.es.AppendCalls)

	_, err := env.svc.Begin(context.Background(), "user-1", Form{Name: " ", PaymentMethod: order.MethodPayOnPickup})

	require.ErrorIs(t, err, validation.ErrValidation)
	var ve *validation.Error
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "name")
	assert.Contains(t, ve.Fields, "email")
	assert.Contains(t, ve.Fields, "phone")
	assert.Len(t, env.es.AppendCalls, appended)
}

func TestService_Begin_EmptyCart(t *testing.T) {
	env := newTestCheckout(t, true)

	_, err := env.svc.Begin(context.Background(), "user-1", validForm(order.MethodPayOnPickup))

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestService_Begin_PayOnPickup(t *testing.T) {
	env := newTestCheckout(t, true)
	env.seedCart(t, "user-1")

	res, err := env.svc.Begin(context.Background(), "user-1", validForm(order.MethodPayOnPickup))

	require.NoError(t, err)
	assert.Equal(t, StateResolved, res.State)
	require.NotNil(t, res.Order)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Equal(t, order.PaymentUnpaid, res.Order.PaymentStatus)
	assert.Equal(t, "awaiting pickup", res.StatusText)
	assert.Equal(t, 26400, res.Order.Total)
	assert.Empty(t, env.cartItems(t, "user-1"))
	assert.Empty(t, env.gateway.created)
	assert.Equal(t, []string{order.EventOrderPlaced}, env.es.EventTypes(res.OrderID))
}

func TestService_Begin_PayOnPickupWorksWithoutGateway(t *testing.T) {
	env := newTestCheckout(t, false)
	env.seedCart(t, "user-1")

	res, err := env.svc.Begin(context.Background(), "user-1", validForm(order.MethodPayOnPickup))

	require.NoError(t, err)
	assert.Equal(t, StateResolved, res.State)
}

func TestService_Begin_PaymentDisabled(t *testing.T) {
	env := newTestCheckout(t, false)
	env.seedCart(t, "user-1")

	_, err := env.svc.Begin(context.Background(), "user-1", validForm(order.MethodPayOnline))

	assert.ErrorIs(t, err, ErrPaymentDisabled)
	assert.False(t, env.svc.PaymentEnabled())
	assert.Len(t, env.cartItems(t, "user-1"), 1)
}

func TestService_Begin_GatewayError(t *testing.T) {
	env := newTestCheckout(t, true)
	env.seedCart(t, "user-1")
	env.gateway.tokenErr = &payment.GatewayError{StatusCode: 400, Message: "bad request"}

	_, err := env.svc.Begin(context.Background(), "user-1", validForm(order.MethodPayOnline))

	require.ErrorIs(t, err, payment.ErrGateway)
	require.Len(t, env.gateway.created, 1)
	orderID := env.gateway.created[0].TransactionDetails.OrderID

	sess, err := env.sessions.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, StateError, sess.State)
	assert.Contains(t, sess.Error, "bad request")
	assert.Empty(t, env.es.EventTypes(orderID))
	assert.Len(t, env.cartItems(t, "user-1"), 1)
}

func TestService_Begin_PayOnline(t *testing.T) {
	env := newTestCheckout(t, true)
	env.seedCart(t, "user-1")

	res, err := env.svc.Begin(context.Background(), "user-1", validForm(order.MethodPayOnline))

	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, res.State)
	assert.Equal(t, "snap-"+res.OrderID, res.Token)
	assert.Nil(t, res.Order)

	require.Len(t, env.gateway.created, 1)
	tx := env.gateway.created[0]
	assert.Equal(t, 26400, tx.TransactionDetails.GrossAmount)
	assert.Equal(t, tx.TransactionDetails.GrossAmount, tx.ItemsTotal())

	sess, err := env.sessions.Get(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, sess.State)
	assert.Empty(t, env.es.EventTypes(res.OrderID))
	assert.Len(t, env.cartItems(t, "user-1"), 1)
}

func TestService_Begin_CouponRecordedOnOrder(t *testing.T) {
	env := newTestCheckout(t, true)
	_, err := env.carts.AddItem(context.Background(), "user-1", cart.Item{ProductID: "p2", Name: "Vitamin", Price: 60000}, 1)
	require.NoError(t, err)
	form := validForm(order.MethodPayOnPickup)
	form.CouponCode = "SEHAT10"

	res, err := env.svc.Begin(context.Background(), "user-1", form)

	require.NoError(t, err)
	assert.Equal(t, 6000, res.Order.Discount)
	assert.Equal(t, "SEHAT10", res.Order.CouponCode)
	assert.Equal(t, res.Order.Subtotal+res.Order.Tax-res.Order.Discount, res.Order.Total)
}

// ============================================
// ReportOutcome Tests
// ============================================

func TestService_ReportOutcome_SuccessVerified(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	env.gateway.status = &payment.Status{StatusCode: "200", GrossAmount: "26400.00", TransactionStatus: "settlement"}

	res, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeSuccess, Payload: json.RawMessage(`{"transaction_status":"settlement"}`)})

	require.NoError(t, err)
	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, order.StatusPaid, res.Order.Status)
	assert.Equal(t, order.PaymentPaid, res.Order.PaymentStatus)
	assert.Equal(t, "paid, awaiting pickup", res.StatusText)
	require.NotNil(t, res.Verified)
	assert.True(t, *res.Verified)
	assert.JSONEq(t, `{"transaction_status":"settlement"}`, string(res.Order.PaymentDetails))
	assert.Empty(t, env.cartItems(t, "user-1"))
	assert.Equal(t, []string{order.EventOrderPlaced}, env.es.EventTypes(orderID))
}

func TestService_ReportOutcome_SuccessNotConfirmed(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	env.gateway.status = &payment.Status{StatusCode: "201", TransactionStatus: "pending"}

	res, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeSuccess})

	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Equal(t, order.PaymentPending, res.Order.PaymentStatus)
	assert.Equal(t, "awaiting payment confirmation", res.StatusText)
	require.NotNil(t, res.Verified)
	assert.False(t, *res.Verified)
	assert.Empty(t, env.cartItems(t, "user-1"))
}

func TestService_ReportOutcome_SuccessUnderpaid(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	env.gateway.status = &payment.Status{StatusCode: "200", GrossAmount: "1.00", TransactionStatus: "settlement"}

	res, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeSuccess})

	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, res.Order.Status)
	assert.Equal(t, order.PaymentPending, res.Order.PaymentStatus)
	require.NotNil(t, res.Verified)
	assert.False(t, *res.Verified)
	assert.Equal(t, []string{orderID}, env.gateway.statusCalls)
}

func TestService_ReportOutcome_Error(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")

	res, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeError, Payload: json.RawMessage(`{"status_message":"card declined"}`)})

	require.NoError(t, err)
	assert.Equal(t, StateError, res.State)
	assert.Nil(t, res.Order)
	assert.Empty(t, env.es.EventTypes(orderID))
	assert.Len(t, env.cartItems(t, "user-1"), 1)

	sess, err := env.sessions.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, "card declined", sess.Error)

	// error is terminal
	_, err = env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeSuccess})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_ReportOutcome_PendingRequiresChoice(t *testing.T) {
	for _, kind := range []OutcomeKind{OutcomePending, OutcomeClosed} {
		t.Run(string(kind), func(t *testing.T) {
			env := newTestCheckout(t, true)
			orderID := env.openWidget(t, "user-1")

			res, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: kind})

			require.NoError(t, err)
			assert.Equal(t, State(kind), res.State)
			assert.True(t, res.RequiresChoice)
			assert.Equal(t, []Choice{ChoiceMarkPaid, ChoiceLeavePending}, res.Choices)
			assert.Empty(t, env.es.EventTypes(orderID))
			assert.Len(t, env.cartItems(t, "user-1"), 1)
		})
	}
}

func TestService_ReportOutcome_InvalidKind(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")

	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: "bogus"})

	assert.ErrorIs(t, err, validation.ErrValidation)
}

func TestService_ReportOutcome_OtherUsersSession(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")

	_, err := env.svc.ReportOutcome(context.Background(), "user-2", orderID, Outcome{Kind: OutcomeSuccess})

	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_ReportOutcome_ResolvedSessionIsIdempotent(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	env.gateway.status = &payment.Status{StatusCode: "200", GrossAmount: "26400.00", TransactionStatus: "settlement"}
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeSuccess})
	require.NoError(t, err)

	res, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeSuccess})

	require.NoError(t, err)
	assert.Equal(t, StateResolved, res.State)
	assert.Equal(t, []string{order.EventOrderPlaced}, env.es.EventTypes(orderID))
}

// ============================================
// Resolve Tests
// ============================================

func TestService_Resolve_LeavePending(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeClosed})
	require.NoError(t, err)

	res, err := env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceLeavePending)

	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, res.Order.PaymentStatus)
	assert.Nil(t, res.Verified)
	assert.Empty(t, env.gateway.statusCalls)
	assert.Empty(t, env.cartItems(t, "user-1"))
	assert.Equal(t, []string{order.EventOrderPlaced}, env.es.EventTypes(orderID))
}

func TestService_Resolve_MarkPaidVerified(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomePending})
	require.NoError(t, err)
	env.gateway.status = &payment.Status{StatusCode: "200", GrossAmount: "26400.00", TransactionStatus: "capture", FraudStatus: "accept"}

	res, err := env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceMarkPaid)

	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, res.Order.PaymentStatus)
	assert.Equal(t, order.StatusPaid, res.Order.Status)
	require.NotNil(t, res.Verified)
	assert.True(t, *res.Verified)
}

func TestService_Resolve_MarkPaidUnverified(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomePending})
	require.NoError(t, err)
	env.gateway.statusErr = errors.New("gateway down")

	res, err := env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceMarkPaid)

	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, res.Order.PaymentStatus)
	require.NotNil(t, res.Verified)
	assert.False(t, *res.Verified)
}

func TestService_Resolve_MarkPaidUnderpaid(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomePending})
	require.NoError(t, err)
	env.gateway.status = &payment.Status{StatusCode: "200", GrossAmount: "1.00", TransactionStatus: "settlement"}

	res, err := env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceMarkPaid)

	require.NoError(t, err)
	assert.Equal(t, order.PaymentPending, res.Order.PaymentStatus)
	require.NotNil(t, res.Verified)
	assert.False(t, *res.Verified)
}

func TestService_Resolve_WrongState(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")

	_, err := env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceLeavePending)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_Resolve_InvalidChoice(t *testing.T) {
	env := newTestCheckout(t, true)

	_, err := env.svc.Resolve(context.Background(), "user-1", "ORD-1", "retry")

	assert.ErrorIs(t, err, ErrInvalidChoice)
}

// ============================================
// Gateway Notification Tests
// ============================================

func TestService_HandleGatewayNotification_BadSignature(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	n := signed(orderID, "settlement")
	n.SignatureKey = "forged"

	_, err := env.svc.HandleGatewayNotification(context.Background(), n)

	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Empty(t, env.es.EventTypes(orderID))
	sess, err := env.sessions.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, sess.State)
}

func TestService_HandleGatewayNotification_SettlesPendingOrder(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomePending})
	require.NoError(t, err)
	_, err = env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceLeavePending)
	require.NoError(t, err)

	res, err := env.svc.HandleGatewayNotification(context.Background(), signed(orderID, "settlement"))

	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, payment.OutcomePaid, res.Outcome)
	o, err := env.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, order.StatusPaid, o.Status)

	// duplicate delivery changes nothing
	res, err = env.svc.HandleGatewayNotification(context.Background(), signed(orderID, "settlement"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, []string{order.EventOrderPlaced, order.EventOrderPaymentConfirmed}, env.es.EventTypes(orderID))
}

func TestService_HandleGatewayNotification_ExpiredCancelsOrder(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeClosed})
	require.NoError(t, err)
	_, err = env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceLeavePending)
	require.NoError(t, err)

	res, err := env.svc.HandleGatewayNotification(context.Background(), signed(orderID, "expire"))

	require.NoError(t, err)
	assert.True(t, res.Applied)
	o, err := env.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
}

func TestService_HandleGatewayNotification_WritesOrderFromSession(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")

	res, err := env.svc.HandleGatewayNotification(context.Background(), signed(orderID, "settlement"))

	require.NoError(t, err)
	assert.True(t, res.Applied)
	o, err := env.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Empty(t, env.cartItems(t, "user-1"))

	// the widget reporting afterwards finds the resolved session
	report, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomeSuccess})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, report.State)
	assert.Equal(t, []string{order.EventOrderPlaced}, env.es.EventTypes(orderID))
}

func TestService_HandleGatewayNotification_FailureMarksSession(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")

	res, err := env.svc.HandleGatewayNotification(context.Background(), signed(orderID, "deny"))

	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Empty(t, env.es.EventTypes(orderID))
	sess, err := env.sessions.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, StateError, sess.State)
	assert.Len(t, env.cartItems(t, "user-1"), 1)
}

func TestService_HandleGatewayNotification_UnknownOrder(t *testing.T) {
	env := newTestCheckout(t, true)

	_, err := env.svc.HandleGatewayNotification(context.Background(), signed("ORD-404", "settlement"))

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func (e *testEnv) pickupOrder(t *testing.T, userID string) *order.Order {
	t.Helper()
	e.seedCart(t, userID)
	res, err := e.svc.Begin(context.Background(), userID, validForm(order.MethodPayOnPickup))
	require.NoError(t, err)
	require.Equal(t, 26400, res.Order.Total)
	return res.Order
}

func TestService_HandleGatewayNotification_IgnoresPayOnPickupOrder(t *testing.T) {
	for _, gross := range []string{"1.00", "26400.00"} {
		t.Run(gross, func(t *testing.T) {
			env := newTestCheckout(t, true)
			o := env.pickupOrder(t, "user-1")

			for _, status := range []string{"settlement", "expire"} {
				res, err := env.svc.HandleGatewayNotification(context.Background(), signedFor(o.ID, status, gross))

				require.NoError(t, err)
				assert.False(t, res.Applied)
			}
			got, err := env.orders.Get(context.Background(), o.ID)
			require.NoError(t, err)
			assert.Equal(t, order.StatusPending, got.Status)
			assert.Equal(t, order.PaymentUnpaid, got.PaymentStatus)
			assert.Equal(t, []string{order.EventOrderPlaced}, env.es.EventTypes(o.ID))
		})
	}
}

func TestService_HandleGatewayNotification_UnderpaidOrderStaysPending(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	_, err := env.svc.ReportOutcome(context.Background(), "user-1", orderID, Outcome{Kind: OutcomePending})
	require.NoError(t, err)
	_, err = env.svc.Resolve(context.Background(), "user-1", orderID, ChoiceLeavePending)
	require.NoError(t, err)
	logs := captureLog(t)

	res, err := env.svc.HandleGatewayNotification(context.Background(), signedFor(orderID, "settlement", "1.00"))

	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Contains(t, logs.String(), "gross 1.00, total 26400")

	// a failure for another amount does not cancel the order either
	res, err = env.svc.HandleGatewayNotification(context.Background(), signedFor(orderID, "expire", "1.00"))
	require.NoError(t, err)
	assert.False(t, res.Applied)

	o, err := env.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, []string{order.EventOrderPlaced}, env.es.EventTypes(orderID))
}

func TestService_HandleGatewayNotification_UnderpaidSessionWritesNothing(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")

	res, err := env.svc.HandleGatewayNotification(context.Background(), signedFor(orderID, "settlement", "26399.00"))

	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Empty(t, env.es.EventTypes(orderID))
	assert.Len(t, env.cartItems(t, "user-1"), 1)
	sess, err := env.sessions.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, StateWidgetOpen, sess.State)
}

func TestService_HandleGatewayNotification_SettlementAfterSessionExpired(t *testing.T) {
	env := newTestCheckout(t, true)
	orderID := env.openWidget(t, "user-1")
	require.NoError(t, env.sessions.Delete(context.Background(), orderID))
	logs := captureLog(t)

	_, err := env.svc.HandleGatewayNotification(context.Background(), signed(orderID, "settlement"))

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.Empty(t, env.es.EventTypes(orderID))
	assert.Contains(t, logs.String(), "ALERT")
	assert.Contains(t, logs.String(), orderID)
}

// ============================================
// Order ID Tests
// ============================================

func TestService_EnsureNewOrderID(t *testing.T) {
	env := newTestCheckout(t, true)
	ctx := context.Background()
	sessionID := env.openWidget(t, "user-1")
	placed := env.pickupOrder(t, "user-2")

	assert.NoError(t, env.svc.EnsureNewOrderID(ctx, "EXT-1"))
	assert.ErrorIs(t, env.svc.EnsureNewOrderID(ctx, sessionID), ErrOrderIDTaken)
	assert.ErrorIs(t, env.svc.EnsureNewOrderID(ctx, placed.ID), ErrOrderIDTaken)
}

func TestService_Begin_SequentialOrderIDsUnique(t *testing.T) {
	env := newTestCheckout(t, false)
	seen := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		o := env.pickupOrder(t, "user-1")
		require.False(t, seen[o.ID], "duplicate order id %s at iteration %d", o.ID, i)
		seen[o.ID] = true
	}

	assert.Len(t, seen, 1000)
}
