package category

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/example/pharmacy-storefront/internal/domain/aggregate"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "Category"

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidSlug      = errors.New("invalid slug format")
)

// slugRegex validates slug format (lowercase letters, numbers, hyphens)
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// Category groups products on the storefront (e.g. "vitamins", "pain-relief")
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int       `json:"version"`
}

func (c *Category) GetID() string    { return c.ID }
func (c *Category) GetVersion() int  { return c.Version }
func (c *Category) SetVersion(v int) { c.Version = v }

// ApplyEvent applies a single event to the category state (implements aggregate.Aggregate)
func (c *Category) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventCategoryCreated:
		var data CategoryCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.ID = data.CategoryID
		c.Name = data.Name
		c.Slug = data.Slug
		c.Description = data.Description
		c.SortOrder = data.SortOrder
		c.IsActive = true
		c.CreatedAt = data.CreatedAt
		c.UpdatedAt = data.CreatedAt
	case EventCategoryUpdated:
		var data CategoryUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		c.Name = data.Name
		c.Slug = data.Slug
		c.Description = data.Description
		c.SortOrder = data.SortOrder
		c.UpdatedAt = data.UpdatedAt
	case EventCategoryDeleted:
		c.IsActive = false
	}
	c.Version = event.Version
	return nil
}

// Input carries the editable category fields. An empty Slug is derived from Name.
type Input struct {
	Name        string
	Slug        string
	Description string
	SortOrder   int
}

func (in *Input) normalize() error {
	if in.Name == "" {
		return ErrInvalidName
	}
	if in.Slug == "" {
		in.Slug = generateSlug(in.Name)
	}
	if !slugRegex.MatchString(in.Slug) {
		return ErrInvalidSlug
	}
	return nil
}

// Service handles category domain operations
type Service struct {
	eventStore store.EventStoreInterface
}

// NewService creates a new category service
func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

func (s *Service) load(ctx context.Context, categoryID string) (*Category, error) {
	c, found, err := aggregate.LoadAggregate(ctx, s.eventStore, categoryID, func() *Category {
		return &Category{}
	})
	if err != nil {
		return nil, err
	}
	if !found || !c.IsActive {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// Create creates a new category
func (s *Service) Create(ctx context.Context, in Input) (*Category, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	categoryID := uuid.New().String()
	event := CategoryCreated{
		CategoryID:  categoryID,
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		SortOrder:   in.SortOrder,
		CreatedAt:   time.Now(),
	}

	stored, err := s.eventStore.Append(ctx, categoryID, AggregateType, EventCategoryCreated, 0, event)
	if err != nil {
		return nil, err
	}

	c := &Category{}
	if err := c.ApplyEvent(*stored); err != nil {
		return nil, err
	}
	return c, nil
}

// Update updates an existing category
func (s *Service) Update(ctx context.Context, categoryID string, in Input) error {
	if err := in.normalize(); err != nil {
		return err
	}
	current, err := s.load(ctx, categoryID)
	if err != nil {
		return err
	}

	event := CategoryUpdated{
		CategoryID:  categoryID,
		Name:        in.Name,
		Slug:        in.Slug,
		Description: in.Description,
		SortOrder:   in.SortOrder,
		UpdatedAt:   time.Now(),
	}

	_, err = s.eventStore.Append(ctx, categoryID, AggregateType, EventCategoryUpdated, current.Version, event)
	return err
}

// Delete deletes a category
func (s *Service) Delete(ctx context.Context, categoryID string) error {
	current, err := s.load(ctx, categoryID)
	if err != nil {
		return err
	}

	event := CategoryDeleted{
		CategoryID: categoryID,
		DeletedAt:  time.Now(),
	}

	_, err = s.eventStore.Append(ctx, categoryID, AggregateType, EventCategoryDeleted, current.Version, event)
	return err
}

// generateSlug creates a URL-friendly slug from a name
func generateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = hyphenRuns.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
