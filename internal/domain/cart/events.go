package cart

import "time"

const (
	EventItemAdded        = "ItemAddedToCart"
	EventItemRemoved      = "ItemRemovedFromCart"
	EventQuantitySet      = "CartItemQuantitySet"
	EventCartCleared      = "CartCleared"
	EventItemSaved        = "ItemSavedForLater"
	EventSavedRestored    = "SavedItemRestored"
	EventSavedItemRemoved = "SavedItemRemoved"
)

// ItemAddedToCart carries the resulting line: Item.Quantity is the line quantity after merging and clamping
type ItemAddedToCart struct {
	CartID  string    `json:"cart_id"`
	UserID  string    `json:"user_id"`
	Item    Item      `json:"item"`
	AddedAt time.Time `json:"added_at"`
}

type ItemRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type CartItemQuantitySet struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	SetAt     time.Time `json:"set_at"`
}

type CartCleared struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ClearedAt time.Time `json:"cleared_at"`
}

// ItemSavedForLater moves an active line to the saved list in one step
type ItemSavedForLater struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	SavedAt   time.Time `json:"saved_at"`
}

// SavedItemRestored moves a saved line back to the active list with the given resulting quantity
type SavedItemRestored struct {
	CartID     string    `json:"cart_id"`
	UserID     string    `json:"user_id"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	RestoredAt time.Time `json:"restored_at"`
}

type SavedItemRemoved struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	RemovedAt time.Time `json:"removed_at"`
}
