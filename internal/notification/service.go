package notification

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/pharmacy-storefront/internal/domain/user"
	"github.com/example/pharmacy-storefront/internal/infrastructure/store"
	"github.com/example/pharmacy-storefront/internal/readmodel"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidType          = errors.New("notification type must be promo, info or warning")
	ErrEmptyNotice          = errors.New("notification title and message are required")
	ErrNoRecipients         = errors.New("no recipients for notification")
)

// Notice is an admin-published notification. An empty UserID addresses every active customer.
type Notice struct {
	UserID  string `json:"user_id"`
	Type    string `json:"type" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// Service serves a user's notification inbox
type Service struct {
	readStore store.ReadStoreInterface
	now       func() time.Time
}

func NewService(readStore store.ReadStoreInterface) *Service {
	return &Service{readStore: readStore, now: time.Now}
}

// List returns a user's notifications, newest first
func (s *Service) List(ctx context.Context, userID string) ([]*readmodel.NotificationReadModel, error) {
	items, err := s.readStore.GetAll(ctx, readmodel.CollectionNotifications)
	if err != nil {
		return nil, err
	}

	result := make([]*readmodel.NotificationReadModel, 0)
	for _, item := range items {
		if n, ok := item.(*readmodel.NotificationReadModel); ok && n.UserID == userID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkRead flags one notification as read
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	found, err := s.readStore.Update(ctx, readmodel.CollectionNotifications, id, markRead)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of a user and reports how many changed
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, n := range list {
		if n.Read {
			continue
		}
		found, err := s.readStore.Update(ctx, readmodel.CollectionNotifications, n.ID, markRead)
		if err != nil {
			return changed, err
		}
		if found {
			changed++
		}
	}
	return changed, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.readStore.Delete(ctx, readmodel.CollectionNotifications, id)
}

// Clear removes all of a user's notifications and reports how many were removed
func (s *Service) Clear(ctx context.Context, userID string) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	for i, n := range list {
		if err := s.readStore.Delete(ctx, readmodel.CollectionNotifications, n.ID); err != nil {
			return i, err
		}
	}
	return len(list), nil
}

// Publish stores an admin notice for one user or for every active customer.
// It returns the number of notifications written.
func (s *Service) Publish(ctx context.Context, notice Notice) (int, error) {
	notice.Type = strings.ToLower(strings.TrimSpace(notice.Type))
	notice.Title = strings.TrimSpace(notice.Title)
	notice.Message = strings.TrimSpace(notice.Message)

	switch notice.Type {
	case TypePromo, TypeInfo, TypeWarning:
	default:
		return 0, ErrInvalidType
	}
	if notice.Title == "" || notice.Message == "" {
		return 0, ErrEmptyNotice
	}

	recipients, err := s.recipients(ctx, notice.UserID)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, ErrNoRecipients
	}

	now := s.now()
	for i, userID := range recipients {
		n := &readmodel.NotificationReadModel{
			ID:        uuid.New().String(),
			UserID:    userID,
			Type:      notice.Type,
			Title:     notice.Title,
			Message:   notice.Message,
			CreatedAt: now,
		}
		if err := s.readStore.Set(ctx, readmodel.CollectionNotifications, n.ID, n); err != nil {
			return i, err
		}
	}
	return len(recipients), nil
}

func (s *Service) recipients(ctx context.Context, userID string) ([]string, error) {
	if userID != "" {
		data, found, err := s.readStore.Get(ctx, readmodel.CollectionUsers, userID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, user.ErrUserNotFound
		}
		if u, ok := data.(*readmodel.UserReadModel); ok && !u.IsActive {
			return nil, user.ErrUserDeactivated
		}
		return []string{userID}, nil
	}

	users, err := s.readStore.GetAll(ctx, readmodel.CollectionUsers)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, item := range users {
		u, ok := item.(*readmodel.UserReadModel)
		if !ok || !u.IsActive || u.Role != user.RoleCustomer {
			continue
		}
		ids = append(ids, u.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*readmodel.NotificationReadModel, error) {
	data, found, err := s.readStore.Get(ctx, readmodel.CollectionNotifications, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotificationNotFound
	}
	n, ok := data.(*readmodel.NotificationReadModel)
	if !ok || n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func markRead(current any) any {
	n, ok := current.(*readmodel.NotificationReadModel)
	if !ok {
		return current
	}
	updated := *n
	updated.Read = true
	return &updated
}
