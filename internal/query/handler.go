package query

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/readmodel"
)

// Handler answers reads from the projected read models.
// List queries degrade to empty results when the store fails.
type Handler struct {
	readStore store.ReadStoreInterface
}

func NewHandler(readStore store.ReadStoreInterface) *Handler {
	return &Handler{readStore: readStore}
}

// Products
func (h *Handler) GetProduct(ctx context.Context, id string) (*readmodel.ProductReadModel, bool, error) {
	data, ok, err := h.readStore.Get(ctx, readmodel.CollectionProducts, id)
	if err != nil || !ok {
		return nil, false, err
	}
	p, ok := data.(*readmodel.ProductReadModel)
	return p, ok, nil
}

// ListProducts returns products sorted by name, optionally limited to one category
func (h *Handler) ListProducts(ctx context.Context, categoryID string) []*readmodel.ProductReadModel {
	items, err := h.readStore.GetAll(ctx, readmodel.CollectionProducts)
	if err != nil {
		log.Printf("[Query] Error listing products: %v", err)
		return []*readmodel.ProductReadModel{}
	}
	products := make([]*readmodel.ProductReadModel, 0, len(items))
	for _, item := range items {
		p, ok := item.(*readmodel.ProductReadModel)
		if !ok {
			continue
		}
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name == products[j].Name {
			return products[i].ID < products[j].ID
		}
		return products[i].Name < products[j].Name
	})
	return products
}

// Categories
func (h *Handler) GetCategory(ctx context.Context, id string) (*readmodel.CategoryReadModel, bool, error) {
	data, ok, err := h.readStore.Get(ctx, readmodel.CollectionCategories, id)
	if err != nil || !ok {
		return nil, false, err
	}
	c, ok := data.(*readmodel.CategoryReadModel)
	return c, ok, nil
}

// ListCategories returns categories in display order. Deleted ones are skipped unless includeInactive.
func (h *Handler) ListCategories(ctx context.Context, includeInactive bool) []*readmodel.CategoryReadModel {
	items, err := h.readStore.GetAll(ctx, readmodel.CollectionCategories)
	if err != nil {
		log.Printf("[Query] Error listing categories: %v", err)
		return []*readmodel.CategoryReadModel{}
	}
	categories := make([]*readmodel.CategoryReadModel, 0, len(items))
	for _, item := range items {
		c, ok := item.(*readmodel.CategoryReadModel)
		if !ok || (!c.IsActive && !includeInactive) {
			continue
		}
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].SortOrder == categories[j].SortOrder {
			return categories[i].Name < categories[j].Name
		}
		return categories[i].SortOrder < categories[j].SortOrder
	})
	return categories
}

// Orders
func (h *Handler) GetOrder(ctx context.Context, id string) (*readmodel.OrderReadModel, bool, error) {
	data, ok, err := h.readStore.Get(ctx, readmodel.CollectionOrders, id)
	if err != nil || !ok {
		return nil, false, err
	}
	o, ok := data.(*readmodel.OrderReadModel)
	return o, ok, nil
}

// ListOrdersByUser returns a customer's order history, newest first, without hidden orders
func (h *Handler) ListOrdersByUser(ctx context.Context, userID string) []*readmodel.OrderReadModel {
	orders := h.orders(ctx)
	result := make([]*readmodel.OrderReadModel, 0)
	for _, o := range orders {
		if o.UserID == userID && !o.HiddenFromHistory {
			result = append(result, o)
		}
	}
	return result
}

// ListAllOrders returns all orders (for admin use), newest first
func (h *Handler) ListAllOrders(ctx context.Context) []*readmodel.OrderReadModel {
	return h.orders(ctx)
}

func (h *Handler) orders(ctx context.Context) []*readmodel.OrderReadModel {
	items, err := h.readStore.GetAll(ctx, readmodel.CollectionOrders)
	if err != nil {
		log.Printf("[Query] Error listing orders: %v", err)
		return []*readmodel.OrderReadModel{}
	}
	orders := make([]*readmodel.OrderReadModel, 0, len(items))
	for _, item := range items {
		if o, ok := item.(*readmodel.OrderReadModel); ok {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

// Users
func (h *Handler) GetUser(ctx context.Context, id string) (*readmodel.UserReadModel, bool, error) {
	data, ok, err := h.readStore.Get(ctx, readmodel.CollectionUsers, id)
	if err != nil || !ok {
		return nil, false, err
	}
	u, ok := data.(*readmodel.UserReadModel)
	return u, ok, nil
}

// FindUserByEmail looks a user up by case-insensitive email
func (h *Handler) FindUserByEmail(ctx context.Context, email string) (*readmodel.UserReadModel, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	items, err := h.readStore.GetAll(ctx, readmodel.CollectionUsers)
	if err != nil {
		return nil, false, err
	}
	for _, item := range items {
		if u, ok := item.(*readmodel.UserReadModel); ok && strings.EqualFold(u.Email, email) {
			return u, true, nil
		}
	}
	return nil, false, nil
}
