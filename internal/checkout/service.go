// Package checkout drives an order from cart to written order, including the
// pay-online widget round trip and gateway notifications.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/example/pharmacy-storefront/internal/domain/cart"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/payment"
	"github.com/example/pharmacy-storefront/internal/pricing"
	"github.com/example/pharmacy-storefront/internal/validation"
	validatorv10 "github.com/go-playground/validator/v10"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrPaymentDisabled   = errors.New("online payment is not available")
	ErrInvalidTransition = errors.New("checkout session cannot take this step")
	ErrInvalidOutcome    = errors.New("unknown payment outcome")
	ErrInvalidChoice     = errors.New("unknown resolution choice")
	ErrInvalidSignature  = errors.New("invalid notification signature")
	ErrOrderIDTaken      = errors.New("order id is already in use")
)

// OutcomeKind is what the payment widget reported
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomePending OutcomeKind = "pending"
	OutcomeError   OutcomeKind = "error"
	OutcomeClosed  OutcomeKind = "closed"
)

type Outcome struct {
	Kind    OutcomeKind     `json:"kind" validate:"required,oneof=success pending error closed"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Choice settles an ambiguous outcome
type Choice string

const (
	ChoiceMarkPaid     Choice = "mark_paid"
	ChoiceLeavePending Choice = "leave_pending"
)

var choices = []Choice{ChoiceMarkPaid, ChoiceLeavePending}

// Gateway is the part of the payment client checkout needs
type Gateway interface {
	CreateTransaction(ctx context.Context, tx payment.Transaction) (*payment.TokenResponse, error)
	TransactionStatus(ctx context.Context, orderID string) (*payment.Status, error)
}

type CouponResolver interface {
	Resolve(code string, subtotal int) (int, error)
}

// Summary is a priced cart
type Summary struct {
	Items      []cart.Item   `json:"items"`
	Quote      pricing.Quote `json:"quote"`
	CouponCode string        `json:"coupon_code,omitempty"`
}

// Result is returned by every checkout step
type Result struct {
	OrderID        string       `json:"order_id"`
	State          State        `json:"state"`
	Order          *order.Order `json:"order,omitempty"`
	StatusText     string       `json:"status_text,omitempty"`
	Token          string       `json:"token,omitempty"`
	RedirectURL    string       `json:"redirect_url,omitempty"`
	RequiresChoice bool         `json:"requires_choice,omitempty"`
	Choices        []Choice     `json:"choices,omitempty"`
	Verified       *bool        `json:"verified,omitempty"`
	Message        string       `json:"message,omitempty"`
}

// NotificationResult reports what a gateway notification changed
type NotificationResult struct {
	OrderID string          `json:"order_id"`
	Outcome payment.Outcome `json:"outcome"`
	Applied bool            `json:"applied"`
}

type Options struct {
	// Gateway is nil when online payment is disabled
	Gateway   Gateway
	ServerKey string
	Coupons   CouponResolver
	Sessions  SessionStore
	IDs       *order.IDGenerator
}

type Service struct {
	carts     *cart.Service
	orders    *order.Service
	gateway   Gateway
	serverKey string
	coupons   CouponResolver
	sessions  SessionStore
	ids       *order.IDGenerator
	validate  *validatorv10.Validate
	locks     [lockStripes]sync.Mutex
	now       func() time.Time
}

func NewService(carts *cart.Service, orders *order.Service, opts Options) *Service {
	if opts.Sessions == nil {
		opts.Sessions = NewMemorySessionStore(DefaultSessionTTL)
	}
	if opts.IDs == nil {
		opts.IDs = order.NewIDGenerator(order.DefaultIDPrefix)
	}
	return &Service{
		carts:     carts,
		orders:    orders,
		gateway:   opts.Gateway,
		serverKey: opts.ServerKey,
		coupons:   opts.Coupons,
		sessions:  opts.Sessions,
		ids:       opts.IDs,
		validate:  validation.New(),
		now:       time.Now,
	}
}

// PaymentEnabled reports whether pay-online checkout can be started
func (s *Service) PaymentEnabled() bool { return s.gateway != nil }

const lockStripes = 64

// lock serializes steps on one order within this process
func (s *Service) lock(orderID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(orderID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Quote prices the user's cart with an optional coupon
func (s *Service) Quote(ctx context.Context, userID, couponCode string) (*Summary, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.summarize(c, couponCode)
}

func (s *Service) summarize(c *cart.Cart, couponCode string) (*Summary, error) {
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{Price: it.Price, Quantity: it.Quantity})
	}

	discount := 0
	if s.coupons != nil && couponCode != "" {
		d, err := s.coupons.Resolve(couponCode, pricing.Subtotal(lines))
		if err != nil {
			return nil, err
		}
		discount = d
	}

	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	return &Summary{
		Items:      items,
		Quote:      pricing.Compute(lines, discount),
		CouponCode: couponCode,
	}, nil
}

// Begin validates the form and prices the cart. Pay-on-pickup writes the order at once;
// pay-online opens a session and returns the widget token.
func (s *Service) Begin(ctx context.Context, userID string, form Form) (*Result, error) {
	form.trim()
	if err := validation.Struct(s.validate, form); err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if form.PaymentMethod == order.MethodPayOnline && s.gateway == nil {
		return nil, ErrPaymentDisabled
	}

	summary, err := s.summarize(c, form.CouponCode)
	if err != nil {
		return nil, err
	}

	draft := s.draft(userID, form, summary)

	if form.PaymentMethod == order.MethodPayOnPickup {
		draft.Status = order.StatusPending
		draft.PaymentStatus = order.PaymentUnpaid
		o, err := s.orders.Place(ctx, draft)
		if err != nil {
			return nil, err
		}
		s.clearCart(ctx, userID)
		log.Printf("[Checkout] Order %s placed for pickup by user %s", o.ID, userID)
		return resolved(o, nil), nil
	}

	return s.openWidget(ctx, userID, form, summary, draft)
}

func (s *Service) draft(userID string, form Form, summary *Summary) order.Draft {
	items := make([]order.OrderItem, 0, len(summary.Items))
	for _, it := range summary.Items {
		items = append(items, order.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Image:     it.Image,
		})
	}
	code := ""
	if summary.Quote.Discount > 0 {
		code = summary.CouponCode
	}
	return order.Draft{
		ID:            s.ids.Next(),
		UserID:        userID,
		Customer:      form.customer(),
		Items:         items,
		Subtotal:      summary.Quote.Subtotal,
		Tax:           summary.Quote.Tax,
		Discount:      summary.Quote.Discount,
		Total:         summary.Quote.Total,
		CouponCode:    code,
		PaymentMethod: form.PaymentMethod,
		Notes:         form.Notes,
	}
}

func (s *Service) openWidget(ctx context.Context, userID string, form Form, summary *Summary, draft order.Draft) (*Result, error) {
	now := s.now()
	sess := &Session{
		OrderID:   draft.ID,
		UserID:    userID,
		State:     StateAwaitingToken,
		Draft:     draft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	items := make([]payment.ItemDetail, 0, len(summary.Items))
	for _, it := range summary.Items {
		items = append(items, payment.ItemDetail{ID: it.ProductID, Price: it.Price, Quantity: it.Quantity, Name: it.Name})
	}
	tx := payment.BuildTransaction(draft.ID, summary.Quote, items, payment.Customer{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Address: form.Address,
	})

	token, err := s.gateway.CreateTransaction(ctx, tx)
	if err != nil {
		sess.State = StateError
		sess.Error = err.Error()
		s.saveSession(ctx, sess)
		log.Printf("[Checkout] Token request for order %s failed: %v", draft.ID, err)
		return nil, err
	}

	sess.State = StateWidgetOpen
	sess.Token = token.Token
	sess.RedirectURL = token.RedirectURL
	s.saveSession(ctx, sess)

	return &Result{
		OrderID:     draft.ID,
		State:       StateWidgetOpen,
		Token:       token.Token,
		RedirectURL: token.RedirectURL,
	}, nil
}

// ReportOutcome records what the widget reported. Success is checked against the
// gateway before the order is marked paid; pending and closed ask the user to choose.
func (s *Service) ReportOutcome(ctx context.Context, userID, orderID string, outcome Outcome) (*Result, error) {
	if err := validation.Struct(s.validate, outcome); err != nil {
		return nil, err
	}

	unlock := s.lock(orderID)
	defer unlock()

	sess, err := s.session(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if sess.State == StateResolved {
		return s.existing(ctx, orderID)
	}
	if sess.State != StateWidgetOpen {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidTransition, outcome.Kind, sess.State)
	}

	switch outcome.Kind {
	case OutcomeSuccess:
		sess.State = StateSuccess
		paid := s.verify(ctx, orderID, sess.Draft.Total)
		return s.finish(ctx, sess, paid, outcome.Payload, &paid)
	case OutcomeError:
		sess.State = StateError
		sess.Error = errorMessage(outcome.Payload)
		s.saveSession(ctx, sess)
		return &Result{OrderID: orderID, State: StateError, Message: "payment failed, your cart has been kept"}, nil
	case OutcomePending, OutcomeClosed:
		sess.State = State(outcome.Kind)
		if len(outcome.Payload) > 0 {
			sess.Draft.PaymentDetails = outcome.Payload
		}
		s.saveSession(ctx, sess)
		return &Result{
			OrderID:        orderID,
			State:          sess.State,
			RequiresChoice: true,
			Choices:        choices,
			Message:        "payment not confirmed yet",
		}, nil
	default:
		return nil, ErrInvalidOutcome
	}
}

// Resolve settles a pending or closed session with the user's choice
func (s *Service) Resolve(ctx context.Context, userID, orderID string, choice Choice) (*Result, error) {
	if choice != ChoiceMarkPaid && choice != ChoiceLeavePending {
		return nil, ErrInvalidChoice
	}

	unlock := s.lock(orderID)
	defer unlock()

	sess, err := s.session(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if sess.State == StateResolved {
		return s.existing(ctx, orderID)
	}
	if sess.State != StatePending && sess.State != StateClosed {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidTransition, choice, sess.State)
	}

	if choice == ChoiceLeavePending {
		return s.finish(ctx, sess, false, nil, nil)
	}
	paid := s.verify(ctx, orderID, sess.Draft.Total)
	return s.finish(ctx, sess, paid, nil, &paid)
}

// HandleGatewayNotification applies a signed gateway notification. An order that was
// never written yet is written from its session when the payment is settled.
// Notifications for pay-on-pickup orders, or whose gross amount differs from the
// order total, change nothing.
func (s *Service) HandleGatewayNotification(ctx context.Context, n payment.Status) (*NotificationResult, error) {
	if !payment.VerifySignature(n, s.serverKey) {
		log.Printf("[Checkout] Rejected notification for order %s: bad signature", n.OrderID)
		return nil, ErrInvalidSignature
	}

	unlock := s.lock(n.OrderID)
	defer unlock()

	result := &NotificationResult{OrderID: n.OrderID, Outcome: n.Outcome()}
	details, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.Get(ctx, n.OrderID)
	switch {
	case err == nil:
		result.Applied, err = s.applyToOrder(ctx, o, n, result.Outcome, details)
		if err != nil {
			return nil, err
		}
		return result, nil
	case !errors.Is(err, order.ErrOrderNotFound):
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, n.OrderID)
	if errors.Is(err, ErrSessionNotFound) {
		if result.Outcome == payment.OutcomePaid {
			log.Printf("[Checkout] ALERT: settlement of %s for order %s matches no order or session, needs manual follow-up", n.GrossAmount, n.OrderID)
		}
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if result.Outcome != payment.OutcomePending && !n.PaidAmount(sess.Draft.Total) {
		log.Printf("[Checkout] ALERT: ignoring %s for order %s: gross %s, total %d", n.TransactionStatus, n.OrderID, n.GrossAmount, sess.Draft.Total)
		return result, nil
	}

	switch result.Outcome {
	case payment.OutcomePaid:
		if _, err := s.finish(ctx, sess, true, details, nil); err != nil {
			return nil, err
		}
		result.Applied = true
	case payment.OutcomeFailed:
		if sess.State != StateError {
			sess.State = StateError
			sess.Error = "payment " + n.TransactionStatus
			s.saveSession(ctx, sess)
			result.Applied = true
		}
	}
	log.Printf("[Checkout] Notification for order %s: %s (applied=%t)", n.OrderID, result.Outcome, result.Applied)
	return result, nil
}

func (s *Service) applyToOrder(ctx context.Context, o *order.Order, n payment.Status, outcome payment.Outcome, details json.RawMessage) (bool, error) {
	if outcome == payment.OutcomePending {
		return false, nil
	}
	if o.PaymentMethod != order.MethodPayOnline {
		log.Printf("[Checkout] ALERT: ignoring %s for pay-on-pickup order %s", n.TransactionStatus, o.ID)
		return false, nil
	}
	if !n.PaidAmount(o.Total) {
		log.Printf("[Checkout] ALERT: ignoring %s for order %s: gross %s, total %d", n.TransactionStatus, o.ID, n.GrossAmount, o.Total)
		return false, nil
	}

	switch outcome {
	case payment.OutcomePaid:
		applied, err := s.orders.ConfirmPayment(ctx, n.OrderID, details)
		if errors.Is(err, order.ErrOrderCancelled) {
			log.Printf("[Checkout] Payment settled for cancelled order %s, needs manual refund", n.OrderID)
			return false, nil
		}
		return applied, err
	case payment.OutcomeFailed:
		applied, err := s.orders.FailPayment(ctx, n.OrderID, "payment "+n.TransactionStatus, details)
		if errors.Is(err, order.ErrOrderAlreadyPaid) {
			log.Printf("[Checkout] Ignoring %s notification for paid order %s", n.TransactionStatus, n.OrderID)
			return false, nil
		}
		return applied, err
	default:
		return false, nil
	}
}

// finish writes the session's order, clears the cart and resolves the session
func (s *Service) finish(ctx context.Context, sess *Session, paid bool, details json.RawMessage, verified *bool) (*Result, error) {
	draft := sess.Draft
	if len(details) > 0 {
		draft.PaymentDetails = details
	}
	if paid {
		draft.Status = order.StatusPaid
		draft.PaymentStatus = order.PaymentPaid
	} else {
		draft.Status = order.StatusPending
		draft.PaymentStatus = order.PaymentPending
	}

	o, err := s.orders.Place(ctx, draft)
	if errors.Is(err, order.ErrOrderExists) {
		o, err = s.orders.Get(ctx, draft.ID)
	}
	if err != nil {
		return nil, err
	}

	s.clearCart(ctx, sess.UserID)
	sess.State = StateResolved
	s.saveSession(ctx, sess)

	log.Printf("[Checkout] Order %s written (%s)", o.ID, o.StatusText())
	return resolved(o, verified), nil
}

// verify asks the gateway whether the order is paid in full. Any failure counts as not paid.
func (s *Service) verify(ctx context.Context, orderID string, total int) bool {
	st, err := s.gateway.TransactionStatus(ctx, orderID)
	if err != nil {
		log.Printf("[Checkout] Could not verify payment for order %s: %v", orderID, err)
		return false
	}
	if st.Outcome() != payment.OutcomePaid {
		return false
	}
	if !st.PaidAmount(total) {
		log.Printf("[Checkout] ALERT: order %s settled for %s, total is %d", orderID, st.GrossAmount, total)
		return false
	}
	return true
}

// EnsureNewOrderID fails with ErrOrderIDTaken when orderID already names an order
// or a checkout session
func (s *Service) EnsureNewOrderID(ctx context.Context, orderID string) error {
	_, err := s.orders.Get(ctx, orderID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrOrderIDTaken, orderID)
	case !errors.Is(err, order.ErrOrderNotFound):
		return err
	}
	_, err = s.sessions.Get(ctx, orderID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrOrderIDTaken, orderID)
	case !errors.Is(err, ErrSessionNotFound):
		return err
	}
	return nil
}

func (s *Service) session(ctx context.Context, userID, orderID string) (*Session, error) {
	if s.gateway == nil {
		return nil, ErrPaymentDisabled
	}
	sess, err := s.sessions.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Session returns a user's checkout session
func (s *Service) Session(ctx context.Context, userID, orderID string) (*Session, error) {
	return s.session(ctx, userID, orderID)
}

func (s *Service) existing(ctx context.Context, orderID string) (*Result, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return resolved(o, nil), nil
}

func (s *Service) saveSession(ctx context.Context, sess *Session) {
	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		log.Printf("[Checkout] Failed to save session %s: %v", sess.OrderID, err)
	}
}

func (s *Service) clearCart(ctx context.Context, userID string) {
	if err := s.carts.Clear(ctx, userID); err != nil {
		log.Printf("[Checkout] Failed to clear cart for user %s: %v", userID, err)
	}
}

func resolved(o *order.Order, verified *bool) *Result {
	return &Result{
		OrderID:    o.ID,
		State:      StateResolved,
		Order:      o,
		StatusText: o.StatusText(),
		Verified:   verified,
	}
}

func errorMessage(payload json.RawMessage) string {
	var body struct {
		StatusMessage string `json:"status_message"`
	}
	if len(payload) > 0 && json.Unmarshal(payload, &body) == nil && body.StatusMessage != "" {
		return body.StatusMessage
	}
	return "payment failed"
}
