// Package redisstore keeps checkout sessions in Redis so every API instance sees them.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/pharmacy-storefront/internal/checkout"
	"github.com/go-redis/redis/v8"
)

const DefaultKeyPrefix = "checkout:session:"

// SessionStore implements checkout.SessionStore. Keys expire after ttl and every Save
// renews the expiry.
type SessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = checkout.DefaultSessionTTL
	}
	return &SessionStore{client: client, keyPrefix: DefaultKeyPrefix, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *SessionStore) key(orderID string) string {
	return s.keyPrefix + orderID
}

func (s *SessionStore) Save(ctx context.Context, sess *checkout.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.OrderID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.OrderID, err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, orderID string) (*checkout.Session, error) {
	data, err := s.client.Get(ctx, s.key(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", orderID, err)
	}

	var sess checkout.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", orderID, err)
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, orderID string) error {
	return s.client.Del(ctx, s.key(orderID)).Err()
}
