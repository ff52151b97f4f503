package product

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/example/pharmacy-storefront/internal/domain/aggregate"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "Product"

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInvalidPrice        = errors.New("price must be positive")
	ErrInvalidName         = errors.New("name is required")
	ErrInvalidStock        = errors.New("stock cannot be negative")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrZeroStockAdjustment = errors.New("stock adjustment must not be zero")
)

type Product struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	Price                int       `json:"price"`
	Stock                int       `json:"stock"`
	ImageURL             string    `json:"image_url,omitempty"`
	CategoryID           string    `json:"category_id,omitempty"`
	RequiresPrescription bool      `json:"requires_prescription"`
	IsDeleted            bool      `json:"is_deleted,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
	Version              int       `json:"version"`
}

func (p *Product) GetID() string    { return p.ID }
func (p *Product) GetVersion() int  { return p.Version }
func (p *Product) SetVersion(v int) { p.Version = v }

// ApplyEvent applies a single event to the product state (implements aggregate.Aggregate)
func (p *Product) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventProductCreated:
		var data ProductCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.ID = data.ProductID
		p.Name = data.Name
		p.Description = data.Description
		p.Price = data.Price
		p.Stock = data.Stock
		p.ImageURL = data.ImageURL
		p.CategoryID = data.CategoryID
		p.RequiresPrescription = data.RequiresPrescription
		p.CreatedAt = data.CreatedAt
		p.UpdatedAt = data.CreatedAt
	case EventProductUpdated:
		var data ProductUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.Name = data.Name
		p.Description = data.Description
		p.Price = data.Price
		p.ImageURL = data.ImageURL
		p.CategoryID = data.CategoryID
		p.RequiresPrescription = data.RequiresPrescription
		p.UpdatedAt = data.UpdatedAt
	case EventProductDeleted:
		var data ProductDeleted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.IsDeleted = true
		p.UpdatedAt = data.DeletedAt
	case EventProductStockAdjusted:
		var data ProductStockAdjusted
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		p.Stock = data.Stock
		p.UpdatedAt = data.AdjustedAt
	}
	p.Version = event.Version
	return nil
}

// Input carries the editable product fields
type Input struct {
	Name                 string
	Description          string
	Price                int
	Stock                int
	ImageURL             string
	CategoryID           string
	RequiresPrescription bool
}

func (in Input) validate() error {
	if in.Name == "" {
		return ErrInvalidName
	}
	if in.Price <= 0 {
		return ErrInvalidPrice
	}
	if in.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

type Service struct {
	eventStore store.EventStoreInterface
}

func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) load(ctx context.Context, productID string) (*Product, error) {
	p, found, err := aggregate.LoadAggregate(ctx, s.eventStore, productID, func() *Product {
		return &Product{}
	})
	if err != nil {
		return nil, err
	}
	if !found || p.IsDeleted {
		return nil, ErrProductNotFound
	}
	return p, nil
}

func (s *Service) apply(ctx context.Context, p *Product, eventType string, data any) (*Product, error) {
	stored, err := s.eventStore.Append(ctx, p.ID, AggregateType, eventType, p.Version, data)
	if err != nil {
		return nil, err
	}
	if err := p.ApplyEvent(*stored); err != nil {
		return nil, err
	}
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, p, AggregateType); err != nil {
		log.Printf("[Product] Failed to create snapshot for product %s: %v", p.ID, err)
	}
	return p, nil
}

// Get returns a product that has not been deleted
func (s *Service) Get(ctx context.Context, productID string) (*Product, error) {
	return s.load(ctx, productID)
}

func (s *Service) Create(ctx context.Context, in Input) (*Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	productID := uuid.New().String()
	return s.apply(ctx, &Product{ID: productID}, EventProductCreated, ProductCreated{
		ProductID:            productID,
		Name:                 in.Name,
		Description:          in.Description,
		Price:                in.Price,
		Stock:                in.Stock,
		ImageURL:             in.ImageURL,
		CategoryID:           in.CategoryID,
		RequiresPrescription: in.RequiresPrescription,
		CreatedAt:            time.Now(),
	})
}

// Update replaces the catalogue fields; in.Stock is ignored
func (s *Service) Update(ctx context.Context, productID string, in Input) (*Product, error) {
	in.Stock = 0
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, p, EventProductUpdated, ProductUpdated{
		ProductID:            productID,
		Name:                 in.Name,
		Description:          in.Description,
		Price:                in.Price,
		ImageURL:             in.ImageURL,
		CategoryID:           in.CategoryID,
		RequiresPrescription: in.RequiresPrescription,
		UpdatedAt:            time.Now(),
	})
}

func (s *Service) Delete(ctx context.Context, productID string) error {
	p, err := s.load(ctx, productID)
	if err != nil {
		return err
	}

	_, err = s.apply(ctx, p, EventProductDeleted, ProductDeleted{
		ProductID: productID,
		DeletedAt: time.Now(),
	})
	return err
}

// AdjustStock adds delta (negative to remove) to the stock level
func (s *Service) AdjustStock(ctx context.Context, productID string, delta int, reason string) (*Product, error) {
	if delta == 0 {
		return nil, ErrZeroStockAdjustment
	}

	p, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Stock+delta < 0 {
		return nil, ErrInsufficientStock
	}

	return s.apply(ctx, p, EventProductStockAdjusted, ProductStockAdjusted{
		ProductID:  productID,
		Delta:      delta,
		Stock:      p.Stock + delta,
		Reason:     reason,
		AdjustedAt: time.Now(),
	})
}
