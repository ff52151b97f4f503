package readmodel

import (
	"encoding/json"
	"time"
)

// Read store collections
const (
	CollectionProducts      = "products"
	CollectionCategories    = "categories"
	CollectionUsers         = "users"
	CollectionOrders        = "orders"
	CollectionNotifications = "notifications"
)

// ProductReadModel is the read model for products
type ProductReadModel struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Price                int       `json:"price"`
	Stock                int       `json:"stock"`
	ImageURL             string    `json:"image_url,omitempty"`
	CategoryID           string    `json:"category_id,omitempty"`
	RequiresPrescription bool      `json:"requires_prescription"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// UserReadModel is the read model for users
type UserReadModel struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CategoryReadModel is the read model for product categories
type CategoryReadModel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CustomerReadModel is the contact block captured at checkout
type CustomerReadModel struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// OrderItemReadModel represents an item in an order
type OrderItemReadModel struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
	Image     string `json:"image,omitempty"`
}

// OrderReadModel is the single stored representation of an order.
// Customer history and the admin order list are both read from it.
type OrderReadModel struct {
	ID                string               `json:"id"`
	UserID            string               `json:"user_id"`
	Customer          CustomerReadModel    `json:"customer"`
	Items             []OrderItemReadModel `json:"items"`
	Subtotal          int                  `json:"subtotal"`
	Tax               int                  `json:"tax"`
	Discount          int                  `json:"discount"`
	Total             int                  `json:"total"`
	CouponCode        string               `json:"coupon_code,omitempty"`
	Status            string               `json:"status"`
	PaymentStatus     string               `json:"payment_status"`
	PaymentMethod     string               `json:"payment_method"`
	StatusText        string               `json:"status_text"`
	Notes             string               `json:"notes,omitempty"`
	PaymentDetails    json.RawMessage      `json:"payment_details,omitempty"`
	HiddenFromHistory bool                 `json:"hidden_from_history,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// OrderDetailsSnapshot is a frozen copy of an order attached to a notification
type OrderDetailsSnapshot struct {
	Subtotal   int                  `json:"subtotal"`
	Tax        int                  `json:"tax"`
	Discount   int                  `json:"discount"`
	Total      int                  `json:"total"`
	Items      []OrderItemReadModel `json:"items"`
	StatusText string               `json:"status_text"`
}

// NotificationReadModel is a per-user notification
type NotificationReadModel struct {
	ID           string                `json:"id"`
	UserID       string                `json:"user_id"`
	Type         string                `json:"type"`
	OrderID      string                `json:"order_id,omitempty"`
	Title        string                `json:"title"`
	Message      string                `json:"message"`
	Read         bool                  `json:"read"`
	OrderDetails *OrderDetailsSnapshot `json:"order_details,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

// New returns an empty read model for a collection, or nil if the collection is unknown
func New(collection string) any {
	switch collection {
	case CollectionProducts:
		return &ProductReadModel{}
	case CollectionCategories:
		return &CategoryReadModel{}
	case CollectionUsers:
		return &UserReadModel{}
	case CollectionOrders:
		return &OrderReadModel{}
	case CollectionNotifications:
		return &NotificationReadModel{}
	}
	return nil
}
