package user

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/example/pharmacy-storefront/internal/auth"
	"github.com/example/pharmacy-storefront/internal/domain/aggregate"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/google/uuid"
)

const AggregateType = "User"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDeactivated    = errors.New("user account is deactivated")
	ErrEmailTaken         = errors.New("email already registered")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)

func isValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	return emailPattern.MatchString(email)
}

// User represents a user aggregate
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Version      int       `json:"version"`
}

func (u *User) GetID() string    { return u.ID }
func (u *User) GetVersion() int  { return u.Version }
func (u *User) SetVersion(v int) { u.Version = v }

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// ApplyEvent applies a single event to the user state (implements aggregate.Aggregate)
func (u *User) ApplyEvent(event store.Event) error {
	switch event.EventType {
	case EventUserCreated:
		var data UserCreated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.ID = data.UserID
		u.Email = data.Email
		u.PasswordHash = data.PasswordHash
		u.Name = data.Name
		u.Phone = data.Phone
		u.Address = data.Address
		u.Role = data.Role
		u.IsActive = true
		u.CreatedAt = data.CreatedAt
		u.UpdatedAt = data.CreatedAt
	case EventUserUpdated:
		var data UserUpdated
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		u.Name = data.Name
		u.Phone = data.Phone
		u.Address = data.Address
		u.UpdatedAt = data.UpdatedAt
	}
	u.Version = event.Version
	return nil
}

// Profile is the editable part of a user
type Profile struct {
	Name    string
	Phone   string
	Address string
}

// Service handles user domain operations
type Service struct {
	eventStore store.EventStoreInterface
}

// NewService creates a new user service
func NewService(es store.EventStoreInterface) *Service {
	return &Service{eventStore: es}
}

// Get loads a user by ID
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, found, err := aggregate.LoadAggregate(ctx, s.eventStore, userID, func() *User {
		return &User{}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Register creates a new customer
func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	return s.RegisterWithRole(ctx, email, password, name, RoleCustomer)
}

// RegisterAdmin creates a new admin user
func (s *Service) RegisterAdmin(ctx context.Context, email, password, name string) (*User, error) {
	return s.RegisterWithRole(ctx, email, password, name, RoleAdmin)
}

// RegisterWithRole creates a new user with a specific role.
// Email uniqueness is checked by the caller against the users read model.
func (s *Service) RegisterWithRole(ctx context.Context, email, password, name, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{ID: uuid.New().String()}
	err = s.apply(ctx, u, EventUserCreated, UserCreated{
		UserID:       u.ID,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile replaces name, phone and address
func (s *Service) UpdateProfile(ctx context.Context, userID string, p Profile) (*User, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, ErrInvalidName
	}

	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserDeactivated
	}

	err = s.apply(ctx, u, EventUserUpdated, UserUpdated{
		UserID:    userID,
		Name:      p.Name,
		Phone:     strings.TrimSpace(p.Phone),
		Address:   strings.TrimSpace(p.Address),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) apply(ctx context.Context, u *User, eventType string, data any) error {
	stored, err := s.eventStore.Append(ctx, u.ID, AggregateType, eventType, u.Version, data)
	if err != nil {
		return err
	}
	if err := u.ApplyEvent(*stored); err != nil {
		return err
	}
	if err := aggregate.MaybeCreateSnapshot(ctx, s.eventStore, u, AggregateType); err != nil {
		log.Printf("[User] Failed to create snapshot for user %s: %v", u.ID, err)
	}
	return nil
}
