package cartsession

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/cache"
	"github.com/smallbiznis/trashforcoin/internal/clock"
)

type memoryStore struct {
	entries *cache.TTLCache[string, Session]
	clock   clock.Clock
	ttl     time.Duration
}

func NewMemoryStore(c clock.Clock, ttl time.Duration) Store {
	return &memoryStore{
		entries: cache.NewTTLCacheWithClock[string, Session](c.Now),
		clock:   c,
		ttl:     ttl,
	}
}

// Load returns the stored session, or a fresh empty one for an unknown key.
func (m *memoryStore) Load(_ context.Context, key string) (*Session, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}
	if stored, ok := m.entries.Get(key); ok {
		return &stored, nil
	}
	return &Session{Key: key}, nil
}

func (m *memoryStore) Save(_ context.Context, session *Session) error {
	if session == nil || strings.TrimSpace(session.Key) == "" {
		return ErrInvalidKey
	}
	session.UpdatedAt = m.clock.Now()
	m.entries.Set(session.Key, copySession(*session), m.ttl)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.entries.Delete(strings.TrimSpace(key))
	return nil
}

func copySession(s Session) Session {
	if s.StoreID != nil {
		store := *s.StoreID
		s.StoreID = &store
	}
	return s
}
