package session

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"gatehouse/cmd/internal/auth/watermark"
)

// MemoryStore is a mutex-guarded Store used by service and API tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Session)}
}

// FindByTokenHash implements Store.
func (m *MemoryStore) FindByTokenHash(_ context.Context, tokenHash string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[tokenHash]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// Create implements Store.
func (m *MemoryStore) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.TokenHash]; ok {
		return ErrConflict
	}
	m.rows[s.TokenHash] = s
	return nil
}

// DeleteByTokenHash implements Store.
func (m *MemoryStore) DeleteByTokenHash(_ context.Context, tokenHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tokenHash]; !ok {
		return 0, nil
	}
	delete(m.rows, tokenHash)
	return 1, nil
}

// DeleteExpired implements Store.
func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.rows {
		if s.Expires.Before(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

// EvictExcess implements Store.
func (m *MemoryStore) EvictExcess(_ context.Context, username string, limit int, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiries []time.Time
	for _, s := range m.rows {
		if s.Username == username {
			expiries = append(expiries, s.Expires)
		}
	}
	slices.SortFunc(expiries, func(a, b time.Time) int { return cmp.Compare(b.UnixNano(), a.UnixNano()) })

	cutoff, ok := watermark.Cutoff(expiries, limit, now)
	if !ok {
		return 0, nil
	}

	var n int64
	for k, s := range m.rows {
		if s.Username == username && s.Expires.Before(cutoff) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

// CountFor returns how many sessions username holds, expired or not.
func (m *MemoryStore) CountFor(username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.rows {
		if s.Username == username {
			n++
		}
	}
	return n
}
