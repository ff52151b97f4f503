package product

import "time"

const (
	EventProductCreated       = "ProductCreated"
	EventProductUpdated       = "ProductUpdated"
	EventProductDeleted       = "ProductDeleted"
	EventProductStockAdjusted = "ProductStockAdjusted"
)

type ProductCreated struct {
	ProductID            string    `json:"product_id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Price                int       `json:"price"`
	Stock                int       `json:"stock"`
	ImageURL             string    `json:"image_url,omitempty"`
	CategoryID           string    `json:"category_id,omitempty"`
	RequiresPrescription bool      `json:"requires_prescription"`
	CreatedAt            time.Time `json:"created_at"`
}

// ProductUpdated replaces the catalogue fields; stock changes go through ProductStockAdjusted
type ProductUpdated struct {
	ProductID            string    `json:"product_id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Price                int       `json:"price"`
	ImageURL             string    `json:"image_url,omitempty"`
	CategoryID           string    `json:"category_id,omitempty"`
	RequiresPrescription bool      `json:"requires_prescription"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type ProductDeleted struct {
	ProductID string    `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ProductStockAdjusted records a stock delta and the resulting level
type ProductStockAdjusted struct {
	ProductID  string    `json:"product_id"`
	Delta      int       `json:"delta"`
	Stock      int       `json:"stock"`
	Reason     string    `json:"reason,omitempty"`
	AdjustedAt time.Time `json:"adjusted_at"`
}
