package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/example/pharmacy-storefront/internal/domain/order"
)

// State is where a checkout attempt stands
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingToken State = "awaiting_token"
	StateWidgetOpen    State = "widget_open"
	StateSuccess       State = "success"
	StatePending       State = "pending"
	StateError         State = "error"
	StateClosed        State = "closed"
	// StateResolved marks a session whose order has been written
	StateResolved State = "resolved"
)

// DefaultSessionTTL is longer than the gateway's 24h payment window
const DefaultSessionTTL = 48 * time.Hour

var ErrSessionNotFound = errors.New("checkout session not found")

// Session is a pay-online attempt between token request and order write
type Session struct {
	OrderID     string      `json:"order_id"`
	UserID      string      `json:"user_id"`
	State       State       `json:"state"`
	Draft       order.Draft `json:"draft"`
	Token       string      `json:"token,omitempty"`
	RedirectURL string      `json:"redirect_url,omitempty"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SessionStore keeps sessions keyed by order id. Get returns ErrSessionNotFound for
// missing or expired sessions.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, orderID string) (*Session, error)
	Delete(ctx context.Context, orderID string) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemorySessionStore is a process-local SessionStore. Sessions are stored encoded so
// callers never share state with the store.
type MemorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemorySessionStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.purge()
	m.entries[s.OrderID] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, orderID string) (*Session, error) {
	m.mu.Lock()
	e, ok := m.entries[orderID]
	if ok && !m.now().Before(e.expires) {
		delete(m.entries, orderID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	var s Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, orderID)
	return nil
}

// purge drops expired entries; caller holds mu
func (m *MemorySessionStore) purge() {
	now := m.now()
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
		}
	}
}
