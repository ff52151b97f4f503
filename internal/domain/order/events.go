package order

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced             = "OrderPlaced"
	EventOrderPaymentConfirmed   = "OrderPaymentConfirmed"
	EventOrderPaymentFailed      = "OrderPaymentFailed"
	EventOrderStatusChanged      = "OrderStatusChanged"
	EventOrderCancelled          = "OrderCancelled"
	EventOrderRemovedFromHistory = "OrderRemovedFromHistory"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
	Image     string `json:"image,omitempty"`
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// OrderPlaced is the full snapshot of an order at write time
type OrderPlaced struct {
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	Customer       Customer        `json:"customer"`
	Items          []OrderItem     `json:"items"`
	Subtotal       int             `json:"subtotal"`
	Tax            int             `json:"tax"`
	Discount       int             `json:"discount"`
	Total          int             `json:"total"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	Status         Status          `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Notes          string          `json:"notes,omitempty"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	PlacedAt       time.Time       `json:"placed_at"`
}

type OrderPaymentConfirmed struct {
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	Status         Status          `json:"status"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	ConfirmedAt    time.Time       `json:"confirmed_at"`
}

type OrderPaymentFailed struct {
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	Reason         string          `json:"reason"`
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	FailedAt       time.Time       `json:"failed_at"`
}

type OrderStatusChanged struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	From          Status        `json:"from"`
	To            Status        `json:"to"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Note          string        `json:"note,omitempty"`
	ChangedAt     time.Time     `json:"changed_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type OrderRemovedFromHistory struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	RemovedAt time.Time `json:"removed_at"`
}
