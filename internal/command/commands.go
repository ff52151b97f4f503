package command

// Product Commands
type CreateProduct struct {
	Name                 string `json:"name" validate:"required"`
	Description          string `json:"description"`
	Price                int    `json:"price" validate:"gt=0"`
	Stock                int    `json:"stock" validate:"gte=0"`
	ImageURL             string `json:"image_url"`
	CategoryID           string `json:"category_id"`
	RequiresPrescription bool   `json:"requires_prescription"`
}

type UpdateProduct struct {
	ProductID            string `json:"-"`
	Name                 string `json:"name" validate:"required"`
	Description          string `json:"description"`
	Price                int    `json:"price" validate:"gt=0"`
	ImageURL             string `json:"image_url"`
	CategoryID           string `json:"category_id"`
	RequiresPrescription bool   `json:"requires_prescription"`
}

type DeleteProduct struct {
	ProductID string `json:"product_id"`
}

type AdjustStock struct {
	ProductID string `json:"-"`
	Delta     int    `json:"delta" validate:"ne=0"`
	Reason    string `json:"reason"`
}

// Category Commands
type CreateCategory struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

// Cart Commands
type AddToCart struct {
	UserID    string `json:"-"`
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type SetCartQuantity struct {
	UserID    string `json:"-"`
	ProductID string `json:"-"`
	Quantity  int    `json:"quantity"`
}

type CartLine struct {
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
}

type ClearCart struct {
	UserID string `json:"user_id"`
}

// Order Commands
type ChangeOrderStatus struct {
	OrderID string `json:"-"`
	Status  string `json:"status" validate:"required"`
	Note    string `json:"note"`
}

type RemoveOrderFromHistory struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}
