package command

import (
	"context"
	"fmt"

	"github.com/example/pharmacy-storefront/internal/domain/cart"
	"github.com/example/pharmacy-storefront/internal/domain/category"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/domain/product"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/readmodel"
)

type Handler struct {
	productSvc  *product.Service
	categorySvc *category.Service
	cartSvc     *cart.Service
	orderSvc    *order.Service
	readStore   store.ReadStoreInterface
}

func NewHandler(
	productSvc *product.Service,
	categorySvc *category.Service,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	readStore store.ReadStoreInterface,
) *Handler {
	return &Handler{
		productSvc:  productSvc,
		categorySvc: categorySvc,
		cartSvc:     cartSvc,
		orderSvc:    orderSvc,
		readStore:   readStore,
	}
}

// CreateProduct creates a new product (read store is updated by the projector)
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*product.Product, error) {
	if err := h.checkCategory(ctx, cmd.CategoryID); err != nil {
		return nil, err
	}
	return h.productSvc.Create(ctx, product.Input{
		Name:                 cmd.Name,
		Description:          cmd.Description,
		Price:                cmd.Price,
		Stock:                cmd.Stock,
		ImageURL:             cmd.ImageURL,
		CategoryID:           cmd.CategoryID,
		RequiresPrescription: cmd.RequiresPrescription,
	})
}

func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) (*product.Product, error) {
	if err := h.checkCategory(ctx, cmd.CategoryID); err != nil {
		return nil, err
	}
	return h.productSvc.Update(ctx, cmd.ProductID, product.Input{
		Name:                 cmd.Name,
		Description:          cmd.Description,
		Price:                cmd.Price,
		ImageURL:             cmd.ImageURL,
		CategoryID:           cmd.CategoryID,
		RequiresPrescription: cmd.RequiresPrescription,
	})
}

func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	return h.productSvc.Delete(ctx, cmd.ProductID)
}

// AdjustStock restocks (positive delta) or writes off (negative delta) a product
func (h *Handler) AdjustStock(ctx context.Context, cmd AdjustStock) (*product.Product, error) {
	return h.productSvc.AdjustStock(ctx, cmd.ProductID, cmd.Delta, cmd.Reason)
}

func (h *Handler) CreateCategory(ctx context.Context, cmd CreateCategory) (*category.Category, error) {
	return h.categorySvc.Create(ctx, category.Input{
		Name:        cmd.Name,
		Slug:        cmd.Slug,
		Description: cmd.Description,
		SortOrder:   cmd.SortOrder,
	})
}

// checkCategory rejects products pointing at an unknown or deleted category
func (h *Handler) checkCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	data, ok, err := h.readStore.Get(ctx, readmodel.CollectionCategories, categoryID)
	if err != nil {
		return err
	}
	if !ok {
		return category.ErrCategoryNotFound
	}
	if c, isCat := data.(*readmodel.CategoryReadModel); isCat && !c.IsActive {
		return category.ErrCategoryNotFound
	}
	return nil
}

// AddToCart adds a product to the user's cart with the catalogue's current name, price and stock
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (*cart.Cart, error) {
	if cmd.ProductID == "" {
		return nil, cart.ErrInvalidProduct
	}
	if cmd.Quantity <= 0 {
		return nil, cart.ErrInvalidQuantity
	}

	item, err := h.cartItem(ctx, cmd.ProductID)
	if err != nil {
		return nil, err
	}
	if item.Stock <= 0 {
		return nil, fmt.Errorf("%w: %s", product.ErrInsufficientStock, item.Name)
	}

	return h.cartSvc.AddItem(ctx, cmd.UserID, item, cmd.Quantity)
}

// cartItem reads the product from the read store, falling back to the event
// store while the projection has not caught up.
func (h *Handler) cartItem(ctx context.Context, productID string) (cart.Item, error) {
	data, ok, err := h.readStore.Get(ctx, readmodel.CollectionProducts, productID)
	if err != nil {
		return cart.Item{}, err
	}
	if ok {
		if p, isProduct := data.(*readmodel.ProductReadModel); isProduct {
			return cart.Item{
				ProductID: p.ID,
				Name:      p.Name,
				Price:     p.Price,
				Stock:     p.Stock,
				Image:     p.ImageURL,
			}, nil
		}
	}

	p, err := h.productSvc.Get(ctx, productID)
	if err != nil {
		return cart.Item{}, err
	}
	return cart.Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Image:     p.ImageURL,
	}, nil
}

func (h *Handler) SetCartQuantity(ctx context.Context, cmd SetCartQuantity) (*cart.Cart, error) {
	return h.cartSvc.SetQuantity(ctx, cmd.UserID, cmd.ProductID, cmd.Quantity)
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd CartLine) (*cart.Cart, error) {
	return h.cartSvc.RemoveItem(ctx, cmd.UserID, cmd.ProductID)
}

// ClearCart clears all active items from cart
func (h *Handler) ClearCart(ctx context.Context, cmd ClearCart) error {
	return h.cartSvc.Clear(ctx, cmd.UserID)
}

func (h *Handler) SaveForLater(ctx context.Context, cmd CartLine) (*cart.Cart, error) {
	return h.cartSvc.SaveForLater(ctx, cmd.UserID, cmd.ProductID)
}

func (h *Handler) RestoreSaved(ctx context.Context, cmd CartLine) (*cart.Cart, error) {
	return h.cartSvc.Restore(ctx, cmd.UserID, cmd.ProductID)
}

func (h *Handler) RemoveSaved(ctx context.Context, cmd CartLine) (*cart.Cart, error) {
	return h.cartSvc.RemoveSaved(ctx, cmd.UserID, cmd.ProductID)
}

// ChangeOrderStatus is the admin status edit; the order's owner is notified through the event
func (h *Handler) ChangeOrderStatus(ctx context.Context, cmd ChangeOrderStatus) (*order.Order, error) {
	target, ok := order.ParseStatus(cmd.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", order.ErrInvalidStatus, cmd.Status)
	}
	return h.orderSvc.ChangeStatus(ctx, cmd.OrderID, target, cmd.Note)
}

func (h *Handler) RemoveOrderFromHistory(ctx context.Context, cmd RemoveOrderFromHistory) error {
	return h.orderSvc.RemoveFromHistory(ctx, cmd.OrderID, cmd.UserID)
}
