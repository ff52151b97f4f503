package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/pharmacy-storefront/internal/domain/aggregate"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
)

const AggregateType = "Cart"

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrItemNotInCart   = errors.New("item is not in cart")
	ErrItemNotSaved    = errors.New("item is not in saved list")
)

// Item is one cart line. Stock is the ceiling captured when the item was added; zero means unknown.
type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int    `json:"price"`
	Quantity  int    `json:"quantity"`
	Stock     int    `json:"stock"`
	Image     string `json:"image,omitempty"`
}

// Cart holds the active lines and the saved-for-later list of one user.
// Both lists change through the same event stream, so they cannot drift apart.
type Cart struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Items   []Item `json:"items"`
	Saved   []Item `json:"saved"`
	Version int    `json:"version"`
}

func (c *Cart) GetID() string    { return c.ID }
func (c *Cart) GetVersion() int  { return c.Version }
func (c *Cart) SetVersion(v int) { c.Version = v }

// Subtotal is the sum of price times quantity over active lines
func (c *Cart) Subtotal() int {
	total := 0
	for _, it := range c.Items {
		total += it.Price * it.Quantity
	}
	return total
}

// Count is the number of units in the active lines
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func indexOf(items []Item, productID string) int {
	for i, it := range items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func without(items []Item, i int) []Item {
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// clamp caps qty at stock when stock is known
func clamp(qty, stock int) int {
	if stock > 0 && qty > stock {
		return stock
	}
	return qty
}

// ApplyEvent applies a single event to the cart state (implements aggregate.Aggregate)
func (c *Cart) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventItemAdded:
		var data ItemAddedToCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ID, c.UserID = data.CartID, data.UserID
		if i := indexOf(c.Items, data.Item.ProductID); i >= 0 {
			c.Items[i] = data.Item
		} else {
			c.Items = append(c.Items, data.Item)
		}
	case EventItemRemoved:
		var data ItemRemovedFromCart
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if i := indexOf(c.Items, data.ProductID); i >= 0 {
			c.Items = without(c.Items, i)
		}
	case EventQuantitySet:
		var data CartItemQuantitySet
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if i := indexOf(c.Items, data.ProductID); i >= 0 {
			c.Items[i].Quantity = data.Quantity
		}
	case EventCartCleared:
		var data CartCleared
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ID, c.UserID = data.CartID, data.UserID
		c.Items = nil
	case EventItemSaved:
		var data ItemSavedForLater
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		i := indexOf(c.Items, data.ProductID)
		if i < 0 {
			break
		}
		item := c.Items[i]
		c.Items = without(c.Items, i)
		if indexOf(c.Saved, data.ProductID) < 0 {
			c.Saved = append(c.Saved, item)
		}
	case EventSavedRestored:
		var data SavedItemRestored
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		s := indexOf(c.Saved, data.ProductID)
		if s < 0 {
			break
		}
		item := c.Saved[s]
		c.Saved = without(c.Saved, s)
		if i := indexOf(c.Items, data.ProductID); i >= 0 {
			c.Items[i].Quantity = data.Quantity
		} else {
			item.Quantity = data.Quantity
			c.Items = append(c.Items, item)
		}
	case EventSavedItemRemoved:
		var data SavedItemRemoved
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		if i := indexOf(c.Saved, data.ProductID); i >= 0 {
			c.Saved = without(c.Saved, i)
		}
	}
	c.Version = event.Version
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// GetCartID returns the cart ID for a user
func GetCartID(userID string) string {
	return "cart-" + userID
}

// Get returns the user's cart; a user without events gets an empty cart
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	cartID := GetCartID(userID)
	c, _, err := aggregate.LoadAggregate(ctx, s.eventStore, cartID, func() *Cart {
		return &Cart{ID: cartID, UserID: userID}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// apply appends one event and folds it into the loaded cart
func (s *Service) apply(ctx context.Context, c *Cart, eventType string, data any) (*Cart, error) {
	stored, err := s.eventStore.Append(ctx, c.ID, AggregateType, eventType, c.Version, data)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEvent(*stored); err != nil {
		return nil, err
	}

	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, c, AggregateType); err != nil {
		log.Printf("[Cart] Failed to create snapshot for cart %s: %v", c.ID, err)
	}
	return c, nil
}

// AddItem merges qty into an existing line or appends a new one, clamped to stock
func (s *Service) AddItem(ctx context.Context, userID string, item Item, qty int) (*Cart, error) {
	if item.ProductID == "" {
		return nil, ErrInvalidProduct
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	line := item
	if i := indexOf(c.Items, item.ProductID); i >= 0 {
		line.Quantity = c.Items[i].Quantity + qty
	} else {
		line.Quantity = qty
	}
	line.Quantity = clamp(line.Quantity, item.Stock)

	return s.apply(ctx, c, EventItemAdded, ItemAddedToCart{
		CartID:  c.ID,
		UserID:  userID,
		Item:    line,
		AddedAt: time.Now(),
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if indexOf(c.Items, productID) < 0 {
		return nil, ErrItemNotInCart
	}

	return s.apply(ctx, c, EventItemRemoved, ItemRemovedFromCart{
		CartID:    c.ID,
		UserID:    userID,
		ProductID: productID,
		RemovedAt: time.Now(),
	})
}

// SetQuantity replaces a line's quantity; qty <= 0 removes the line
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if productID == "" {
		return nil, ErrInvalidProduct
	}

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	i := indexOf(c.Items, productID)
	if i < 0 {
		return nil, ErrItemNotInCart
	}

	return s.apply(ctx, c, EventQuantitySet, CartItemQuantitySet{
		CartID:    c.ID,
		UserID:    userID,
		ProductID: productID,
		Quantity:  clamp(qty, c.Items[i].Stock),
		SetAt:     time.Now(),
	})
}

// Clear empties the active lines; the saved list is kept
func (s *Service) Clear(ctx context.Context, userID string) error {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	_, err = s.apply(ctx, c, EventCartCleared, CartCleared{
		CartID:    c.ID,
		UserID:    userID,
		ClearedAt: time.Now(),
	})
	return err
}

// SaveForLater moves an active line to the saved list.
// If the product is already saved the active line is dropped without duplicating it.
func (s *Service) SaveForLater(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if indexOf(c.Items, productID) < 0 {
		return nil, ErrItemNotInCart
	}

	return s.apply(ctx, c, EventItemSaved, ItemSavedForLater{
		CartID:    c.ID,
		UserID:    userID,
		ProductID: productID,
		SavedAt:   time.Now(),
	})
}

// Restore moves a saved line back, merging with an active line of the same product
func (s *Service) Restore(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	si := indexOf(c.Saved, productID)
	if si < 0 {
		return nil, ErrItemNotSaved
	}

	saved := c.Saved[si]
	qty := saved.Quantity
	if i := indexOf(c.Items, productID); i >= 0 {
		qty += c.Items[i].Quantity
	}

	return s.apply(ctx, c, EventSavedRestored, SavedItemRestored{
		CartID:     c.ID,
		UserID:     userID,
		ProductID:  productID,
		Quantity:   clamp(qty, saved.Stock),
		RestoredAt: time.Now(),
	})
}

func (s *Service) RemoveSaved(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if indexOf(c.Saved, productID) < 0 {
		return nil, ErrItemNotSaved
	}

	return s.apply(ctx, c, EventSavedItemRemoved, SavedItemRemoved{
		CartID:    c.ID,
		UserID:    userID,
		ProductID: productID,
		RemovedAt: time.Now(),
	})
}
