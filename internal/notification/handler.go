package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/email"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/readmodel"
)

// Notification types
const (
	TypeOrder   = "order"
	TypePromo   = "promo"
	TypeInfo    = "info"
	TypeWarning = "warning"
)

// OrderLoader rebuilds an order as of a given event version
type OrderLoader interface {
	GetAt(ctx context.Context, orderID string, version int) (*order.Order, error)
}

// Mailer sends order confirmation emails
type Mailer interface {
	SendOrderConfirmation(to string, c email.OrderConfirmation) error
}

// Handler turns order events into customer notifications
type Handler struct {
	orders    OrderLoader
	readStore store.ReadStoreInterface
	mailer    Mailer
}

// NewHandler creates a new notification handler. mailer may be nil.
func NewHandler(orders OrderLoader, readStore store.ReadStoreInterface, mailer Mailer) *Handler {
	return &Handler{
		orders:    orders,
		readStore: readStore,
		mailer:    mailer,
	}
}

// HandleEvent processes one stored event
func (h *Handler) HandleEvent(ctx context.Context, event store.Event) error {
	if event.AggregateType != order.AggregateType {
		return nil
	}

	var title, message, kind string
	switch event.EventType {
	case order.EventOrderPlaced:
		kind, title = TypeOrder, "Order received"
	case order.EventOrderPaymentConfirmed:
		kind, title = TypeOrder, "Payment confirmed"
	case order.EventOrderPaymentFailed:
		kind, title = TypeWarning, "Payment failed"
	case order.EventOrderStatusChanged:
		kind, title = TypeOrder, "Order status updated"
	case order.EventOrderCancelled:
		kind, title = TypeWarning, "Order cancelled"
	default:
		return nil
	}

	o, err := h.orders.GetAt(ctx, event.AggregateID, event.Version)
	if err != nil {
		log.Printf("[Notifier] Failed to load order %s at version %d: %v", event.AggregateID, event.Version, err)
		return err
	}

	message, err = describe(event, o)
	if err != nil {
		log.Printf("[Notifier] Failed to unmarshal %s event: %v", event.EventType, err)
		return err
	}

	n := &readmodel.NotificationReadModel{
		ID:           notificationID(event.ID),
		UserID:       o.UserID,
		Type:         kind,
		OrderID:      o.ID,
		Title:        title,
		Message:      message,
		OrderDetails: snapshotOf(o),
		CreatedAt:    event.Timestamp,
	}
	if err := h.readStore.Set(ctx, readmodel.CollectionNotifications, n.ID, n); err != nil {
		log.Printf("[Notifier] Failed to store notification for order %s: %v", o.ID, err)
		return err
	}
	log.Printf("[Notifier] %s notification stored for order %s, user %s", event.EventType, o.ID, o.UserID)

	if event.EventType == order.EventOrderPlaced {
		h.sendConfirmation(o)
	}
	return nil
}

// sendConfirmation emails the customer. Delivery failures are logged only.
func (h *Handler) sendConfirmation(o *order.Order) {
	if h.mailer == nil || o.Customer.Email == "" {
		return
	}

	items := make([]email.OrderItem, len(o.Items))
	for i, item := range o.Items {
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	err := h.mailer.SendOrderConfirmation(o.Customer.Email, email.OrderConfirmation{
		OrderID:       o.ID,
		CustomerName:  o.Customer.Name,
		Items:         items,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Discount:      o.Discount,
		Total:         o.Total,
		CouponCode:    o.CouponCode,
		PaymentMethod: string(o.PaymentMethod),
		StatusText:    o.StatusText(),
	})
	if err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", o.Customer.Email, err)
		return
	}
	log.Printf("[Notifier] Order confirmation email sent to %s for order %s", o.Customer.Email, o.ID)
}

func describe(event store.Event, o *order.Order) (string, error) {
	switch event.EventType {
	case order.EventOrderPlaced:
		return fmt.Sprintf("Order %s has been received. Status: %s.", o.ID, o.StatusText()), nil
	case order.EventOrderPaymentConfirmed:
		return fmt.Sprintf("Payment for order %s has been confirmed. Status: %s.", o.ID, o.StatusText()), nil
	case order.EventOrderPaymentFailed:
		return fmt.Sprintf("Payment for order %s did not go through and the order was cancelled.", o.ID), nil
	case order.EventOrderStatusChanged:
		return fmt.Sprintf("Order %s is now %s.", o.ID, o.StatusText()), nil
	case order.EventOrderCancelled:
		var data order.OrderCancelled
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return "", err
		}
		if data.Reason != "" {
			return fmt.Sprintf("Order %s has been cancelled: %s.", o.ID, data.Reason), nil
		}
		return fmt.Sprintf("Order %s has been cancelled.", o.ID), nil
	}
	return "", nil
}

// notificationID is stable per event so a redelivered event overwrites its own notification
func notificationID(eventID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("notification:"+eventID)).String()
}

func snapshotOf(o *order.Order) *readmodel.OrderDetailsSnapshot {
	items := make([]readmodel.OrderItemReadModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = readmodel.OrderItemReadModel{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Image:     item.Image,
		}
	}
	return &readmodel.OrderDetailsSnapshot{
		Subtotal:   o.Subtotal,
		Tax:        o.Tax,
		Discount:   o.Discount,
		Total:      o.Total,
		Items:      items,
		StatusText: o.StatusText(),
	}
}
