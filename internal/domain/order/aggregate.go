package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/pharmacy-storefront/internal/domain/aggregate"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
)

const AggregateType = "Order"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderExists          = errors.New("order already exists")
	ErrEmptyOrder           = errors.New("order must have at least one item")
	ErrMissingOrderID       = errors.New("order id is required")
	ErrTotalMismatch        = errors.New("order totals do not add up")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidStatus        = errors.New("invalid order status transition")
	ErrOrderAlreadyPaid     = errors.New("order is already paid")
	ErrOrderCancelled       = errors.New("order is already cancelled")
	ErrNotOnlinePayment     = errors.New("order is not paid through the gateway")
)

type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	Customer          Customer        `json:"customer"`
	Items             []OrderItem     `json:"items"`
	Subtotal          int             `json:"subtotal"`
	Tax               int             `json:"tax"`
	Discount          int             `json:"discount"`
	Total             int             `json:"total"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	Status            Status          `json:"status"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	Notes             string          `json:"notes,omitempty"`
	PaymentDetails    json.RawMessage `json:"payment_details,omitempty"`
	HiddenFromHistory bool            `json:"hidden_from_history,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"` // Current event version
}

// Aggregate interface implementation
func (o *Order) GetID() string    { return o.ID }
func (o *Order) GetVersion() int  { return o.Version }
func (o *Order) SetVersion(v int) { o.Version = v }

// StatusText is the customer-facing description of the order's state
func (o *Order) StatusText() string {
	return DescribeStatus(o.Status, o.PaymentStatus)
}

// transitionError returns an appropriate error for an invalid transition
func (o *Order) transitionError(target Status) error {
	switch {
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case target == StatusPaid && o.PaymentStatus == PaymentPaid:
		return ErrOrderAlreadyPaid
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
	}
}

// ApplyEvent applies a single event to the order state (implements aggregate.Aggregate)
func (o *Order) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventOrderPlaced:
		var data OrderPlaced
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.ID = data.OrderID
		o.UserID = data.UserID
		o.Customer = data.Customer
		o.Items = data.Items
		o.Subtotal = data.Subtotal
		o.Tax = data.Tax
		o.Discount = data.Discount
		o.Total = data.Total
		o.CouponCode = data.CouponCode
		o.Status = data.Status
		o.PaymentStatus = data.PaymentStatus
		o.PaymentMethod = data.PaymentMethod
		o.Notes = data.Notes
		o.PaymentDetails = data.PaymentDetails
		o.CreatedAt = data.PlacedAt
		o.UpdatedAt = data.PlacedAt
	case EventOrderPaymentConfirmed:
		var data OrderPaymentConfirmed
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = data.Status
		o.PaymentStatus = PaymentPaid
		if len(data.PaymentDetails) > 0 {
			o.PaymentDetails = data.PaymentDetails
		}
		o.UpdatedAt = data.ConfirmedAt
	case EventOrderPaymentFailed:
		var data OrderPaymentFailed
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.PaymentStatus = PaymentUnpaid
		if len(data.PaymentDetails) > 0 {
			o.PaymentDetails = data.PaymentDetails
		}
		o.UpdatedAt = data.FailedAt
	case EventOrderStatusChanged:
		var data OrderStatusChanged
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = data.To
		o.PaymentStatus = data.PaymentStatus
		o.UpdatedAt = data.ChangedAt
	case EventOrderCancelled:
		var data OrderCancelled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.Status = StatusCancelled
		o.UpdatedAt = data.CancelledAt
	case EventOrderRemovedFromHistory:
		var data OrderRemovedFromHistory
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		o.HiddenFromHistory = true
		o.UpdatedAt = data.RemovedAt
	}
	o.Version = event.Version
	return nil
}

// Draft is everything needed to place an order
type Draft struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Customer       Customer        `json:"customer"`
	Items          []OrderItem     `json:"items"`
	Subtotal       int             `json:"subtotal"`
	Tax            int             `json:"tax"`
	Discount       int             `json:"discount"`
	Total          int             `json:"total"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	Status         Status          `json:"status,omitempty"`
	PaymentStatus  PaymentStatus   `json:"payment_status,omitempty"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Notes          string          `json:"notes,omitempty"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
}

// Validate checks the draft's items and totals
func (d Draft) Validate() error {
	if d.ID == "" {
		return ErrMissingOrderID
	}
	if len(d.Items) == 0 {
		return ErrEmptyOrder
	}
	if !d.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	subtotal := 0
	for _, it := range d.Items {
		subtotal += it.Price * it.Quantity
	}
	if subtotal != d.Subtotal || d.Total != d.Subtotal+d.Tax-d.Discount {
		return fmt.Errorf("%w: subtotal=%d tax=%d discount=%d total=%d", ErrTotalMismatch, d.Subtotal, d.Tax, d.Discount, d.Total)
	}
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// loadOrder loads an order by replaying events, using snapshot if available
func (s *Service) loadOrder(ctx context.Context, orderID string) (*Order, error) {
	order, found, err := aggregate.LoadAggregate(ctx, s.eventStore, orderID, func() *Order {
		return &Order{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Get returns the current state of an order
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.loadOrder(ctx, orderID)
}

// GetAt rebuilds an order as it was right after the given event version
func (s *Service) GetAt(ctx context.Context, orderID string, version int) (*Order, error) {
	events, err := s.eventStore.GetEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order := &Order{}
	for _, e := range events {
		if e.Version > version {
			break
		}
		if err := order.ApplyEvent(e); err != nil {
			return nil, err
		}
	}
	if order.ID == "" {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// apply appends one event and folds it into the loaded order
func (s *Service) apply(ctx context.Context, order *Order, eventType string, data any) (*Order, error) {
	stored, err := s.eventStore.Append(ctx, order.ID, AggregateType, eventType, order.Version, data)
	if err != nil {
		return nil, err
	}
	if err := order.ApplyEvent(*stored); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, order, AggregateType); err != nil {
		log.Printf("[Order] Failed to create snapshot for order %s: %v", order.ID, err)
	}
	return order, nil
}

// Place writes a new order as a single OrderPlaced event
func (s *Service) Place(ctx context.Context, d Draft) (*Order, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	_, err := s.loadOrder(ctx, d.ID)
	if err == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderExists, d.ID)
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	if d.Status == "" {
		d.Status = StatusPending
	}
	if d.PaymentStatus == "" {
		d.PaymentStatus = PaymentUnpaid
	}

	event := OrderPlaced{
		OrderID:        d.ID,
		UserID:         d.UserID,
		Customer:       d.Customer,
		Items:          d.Items,
		Subtotal:       d.Subtotal,
		Tax:            d.Tax,
		Discount:       d.Discount,
		Total:          d.Total,
		CouponCode:     d.CouponCode,
		Status:         d.Status,
		PaymentStatus:  d.PaymentStatus,
		PaymentMethod:  d.PaymentMethod,
		Notes:          d.Notes,
		PaymentDetails: d.PaymentDetails,
		PlacedAt:       time.Now(),
	}

	o, err := s.apply(ctx, &Order{ID: d.ID}, EventOrderPlaced, event)
	if errors.Is(err, store.ErrVersionConflict) {
		return nil, fmt.Errorf("%w: %s", ErrOrderExists, d.ID)
	}
	return o, err
}

// ConfirmPayment marks a pay-online order paid. It reports false when the payment was already recorded.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string, details json.RawMessage) (bool, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.PaymentMethod != MethodPayOnline {
		return false, fmt.Errorf("%w: %s", ErrNotOnlinePayment, orderID)
	}
	if order.PaymentStatus == PaymentPaid {
		return false, nil
	}
	if order.Status == StatusCancelled {
		return false, ErrOrderCancelled
	}

	// an order still waiting on payment becomes paid; one already moving keeps its status
	status := order.Status
	if status == StatusPending {
		status = StatusPaid
	}

	_, err = s.apply(ctx, order, EventOrderPaymentConfirmed, OrderPaymentConfirmed{
		OrderID:        orderID,
		UserID:         order.UserID,
		Status:         status,
		PaymentDetails: details,
		ConfirmedAt:    time.Now(),
	})
	return err == nil, err
}

// FailPayment cancels an order whose payment was rejected or expired.
// It reports false when the order was already cancelled.
func (s *Service) FailPayment(ctx context.Context, orderID, reason string, details json.RawMessage) (bool, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	if order.PaymentMethod != MethodPayOnline {
		return false, fmt.Errorf("%w: %s", ErrNotOnlinePayment, orderID)
	}
	if order.Status == StatusCancelled {
		return false, nil
	}
	if order.PaymentStatus == PaymentPaid {
		return false, ErrOrderAlreadyPaid
	}

	_, err = s.apply(ctx, order, EventOrderPaymentFailed, OrderPaymentFailed{
		OrderID:        orderID,
		UserID:         order.UserID,
		Reason:         reason,
		PaymentDetails: details,
		FailedAt:       time.Now(),
	})
	return err == nil, err
}

// ChangeStatus moves an order along its lifecycle (admin).
// Moving to paid, or completing a pay-on-pickup order, settles the payment.
func (s *Service) ChangeStatus(ctx context.Context, orderID string, target Status, note string) (*Order, error) {
	if target == StatusCancelled {
		return s.Cancel(ctx, orderID, note)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, target) {
		return nil, order.transitionError(target)
	}

	payment := order.PaymentStatus
	if target == StatusPaid || (target == StatusCompleted && order.PaymentMethod == MethodPayOnPickup) {
		payment = PaymentPaid
	}

	return s.apply(ctx, order, EventOrderStatusChanged, OrderStatusChanged{
		OrderID:       orderID,
		UserID:        order.UserID,
		From:          order.Status,
		To:            target,
		PaymentStatus: payment,
		Note:          note,
		ChangedAt:     time.Now(),
	})
}

func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(order.Status, StatusCancelled) {
		return nil, order.transitionError(StatusCancelled)
	}

	return s.apply(ctx, order, EventOrderCancelled, OrderCancelled{
		OrderID:     orderID,
		UserID:      order.UserID,
		Reason:      reason,
		CancelledAt: time.Now(),
	})
}

// RemoveFromHistory hides an order from its owner's history.
// The order stays visible to admins.
func (s *Service) RemoveFromHistory(ctx context.Context, orderID, userID string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return ErrOrderNotFound
	}
	if order.HiddenFromHistory {
		return nil
	}

	_, err = s.apply(ctx, order, EventOrderRemovedFromHistory, OrderRemovedFromHistory{
		OrderID:   orderID,
		UserID:    userID,
		RemovedAt: time.Now(),
	})
	return err
}
