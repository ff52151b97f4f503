package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/pharmacy-storefront/internal/domain/category"
	"github.com/example/pharmacy-storefront/internal/domain/order"
	"github.com/example/pharmacy-storefront/internal/domain/product"
	"github.com/example/pharmacy-storefront/internal/domain/user"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/readmodel"
)

// Projector folds events into read models. Every handler is idempotent so redelivered
// events leave the read store unchanged.
type Projector struct {
	readStore store.ReadStoreInterface
}

func NewProjector(readStore store.ReadStoreInterface) *Projector {
	return &Projector{readStore: readStore}
}

// HandleEvent projects one event. Cart events have no read model and are ignored.
func (p *Projector) HandleEvent(ctx context.Context, event store.Event) error {
	log.Printf("[Projector] Received event: %s (aggregate: %s)", event.EventType, event.AggregateType)

	switch event.AggregateType {
	case product.AggregateType:
		return p.handleProductEvent(ctx, event)
	case order.AggregateType:
		return p.handleOrderEvent(ctx, event)
	case user.AggregateType:
		return p.handleUserEvent(ctx, event)
	case category.AggregateType:
		return p.handleCategoryEvent(ctx, event)
	}

	return nil
}

// Replay projects a full event history, e.g. to warm an in-memory read store at startup
func (p *Projector) Replay(ctx context.Context, events []store.Event) error {
	for _, e := range events {
		if err := p.HandleEvent(ctx, e); err != nil {
			return fmt.Errorf("replay %s v%d: %w", e.AggregateID, e.Version, err)
		}
	}
	return nil
}

// update applies fn to an existing read model; a missing model is logged and skipped
func (p *Projector) update(ctx context.Context, collection, id string, fn func(any) any) error {
	found, err := p.readStore.Update(ctx, collection, id, fn)
	if err != nil {
		return err
	}
	if !found {
		log.Printf("[Projector] %s/%s not found, skipping update", collection, id)
	}
	return nil
}

func (p *Projector) handleProductEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case product.EventProductCreated:
		var e product.ProductCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Set(ctx, readmodel.CollectionProducts, e.ProductID, &readmodel.ProductReadModel{
			ID:                   e.ProductID,
			Name:                 e.Name,
			Description:          e.Description,
			Price:                e.Price,
			Stock:                e.Stock,
			ImageURL:             e.ImageURL,
			CategoryID:           e.CategoryID,
			RequiresPrescription: e.RequiresPrescription,
			CreatedAt:            e.CreatedAt,
			UpdatedAt:            e.CreatedAt,
		})

	case product.EventProductUpdated:
		var e product.ProductUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionProducts, e.ProductID, func(current any) any {
			prod := current.(*readmodel.ProductReadModel)
			prod.Name = e.Name
			prod.Description = e.Description
			prod.Price = e.Price
			prod.ImageURL = e.ImageURL
			prod.CategoryID = e.CategoryID
			prod.RequiresPrescription = e.RequiresPrescription
			prod.UpdatedAt = e.UpdatedAt
			return prod
		})

	case product.EventProductStockAdjusted:
		var e product.ProductStockAdjusted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionProducts, e.ProductID, func(current any) any {
			prod := current.(*readmodel.ProductReadModel)
			prod.Stock = e.Stock
			prod.UpdatedAt = e.AdjustedAt
			return prod
		})

	case product.EventProductDeleted:
		var e product.ProductDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Delete(ctx, readmodel.CollectionProducts, e.ProductID)
	}

	return nil
}

func orderItems(items []order.OrderItem) []readmodel.OrderItemReadModel {
	out := make([]readmodel.OrderItemReadModel, len(items))
	for i, item := range items {
		out[i] = readmodel.OrderItemReadModel{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Image:     item.Image,
		}
	}
	return out
}

func setStatus(o *readmodel.OrderReadModel, status order.Status, payment order.PaymentStatus) {
	o.Status = string(status)
	o.PaymentStatus = string(payment)
	o.StatusText = order.DescribeStatus(status, payment)
}

func (p *Projector) handleOrderEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		o := &readmodel.OrderReadModel{
			ID:     e.OrderID,
			UserID: e.UserID,
			Customer: readmodel.CustomerReadModel{
				Name:    e.Customer.Name,
				Email:   e.Customer.Email,
				Phone:   e.Customer.Phone,
				Address: e.Customer.Address,
			},
			Items:          orderItems(e.Items),
			Subtotal:       e.Subtotal,
			Tax:            e.Tax,
			Discount:       e.Discount,
			Total:          e.Total,
			CouponCode:     e.CouponCode,
			PaymentMethod:  string(e.PaymentMethod),
			Notes:          e.Notes,
			PaymentDetails: e.PaymentDetails,
			CreatedAt:      e.PlacedAt,
			UpdatedAt:      e.PlacedAt,
		}
		setStatus(o, e.Status, e.PaymentStatus)
		return p.readStore.Set(ctx, readmodel.CollectionOrders, e.OrderID, o)

	case order.EventOrderPaymentConfirmed:
		var e order.OrderPaymentConfirmed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			setStatus(o, e.Status, order.PaymentPaid)
			if len(e.PaymentDetails) > 0 {
				o.PaymentDetails = e.PaymentDetails
			}
			o.UpdatedAt = e.ConfirmedAt
			return o
		})

	case order.EventOrderPaymentFailed:
		var e order.OrderPaymentFailed
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			setStatus(o, order.StatusCancelled, order.PaymentUnpaid)
			if len(e.PaymentDetails) > 0 {
				o.PaymentDetails = e.PaymentDetails
			}
			o.UpdatedAt = e.FailedAt
			return o
		})

	case order.EventOrderStatusChanged:
		var e order.OrderStatusChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			setStatus(o, e.To, e.PaymentStatus)
			o.UpdatedAt = e.ChangedAt
			return o
		})

	case order.EventOrderCancelled:
		var e order.OrderCancelled
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			setStatus(o, order.StatusCancelled, order.PaymentStatus(o.PaymentStatus))
			o.UpdatedAt = e.CancelledAt
			return o
		})

	case order.EventOrderRemovedFromHistory:
		var e order.OrderRemovedFromHistory
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionOrders, e.OrderID, func(current any) any {
			o := current.(*readmodel.OrderReadModel)
			o.HiddenFromHistory = true
			o.UpdatedAt = e.RemovedAt
			return o
		})
	}

	return nil
}

func (p *Projector) handleUserEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case user.EventUserCreated:
		var e user.UserCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Set(ctx, readmodel.CollectionUsers, e.UserID, &readmodel.UserReadModel{
			ID:           e.UserID,
			Email:        e.Email,
			PasswordHash: e.PasswordHash,
			Name:         e.Name,
			Phone:        e.Phone,
			Address:      e.Address,
			Role:         e.Role,
			IsActive:     true,
			CreatedAt:    e.CreatedAt,
			UpdatedAt:    e.CreatedAt,
		})

	case user.EventUserUpdated:
		var e user.UserUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionUsers, e.UserID, func(current any) any {
			u := current.(*readmodel.UserReadModel)
			u.Name = e.Name
			u.Phone = e.Phone
			u.Address = e.Address
			u.UpdatedAt = e.UpdatedAt
			return u
		})
	}

	return nil
}

func (p *Projector) handleCategoryEvent(ctx context.Context, event store.Event) error {
	switch event.EventType {
	case category.EventCategoryCreated:
		var e category.CategoryCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Set(ctx, readmodel.CollectionCategories, e.CategoryID, &readmodel.CategoryReadModel{
			ID:          e.CategoryID,
			Name:        e.Name,
			Slug:        e.Slug,
			Description: e.Description,
			SortOrder:   e.SortOrder,
			IsActive:    true,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.CreatedAt,
		})

	case category.EventCategoryUpdated:
		var e category.CategoryUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.update(ctx, readmodel.CollectionCategories, e.CategoryID, func(current any) any {
			c := current.(*readmodel.CategoryReadModel)
			c.Name = e.Name
			c.Slug = e.Slug
			c.Description = e.Description
			c.SortOrder = e.SortOrder
			c.UpdatedAt = e.UpdatedAt
			return c
		})

	case category.EventCategoryDeleted:
		var e category.CategoryDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		// Soft delete by marking as inactive
		return p.update(ctx, readmodel.CollectionCategories, e.CategoryID, func(current any) any {
			c := current.(*readmodel.CategoryReadModel)
			c.IsActive = false
			c.UpdatedAt = e.DeletedAt
			return c
		})
	}

	return nil
}
