package connect

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
	rows map[string]Request
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Request)}
}

func (m *MemoryStore) FindByTokenHash(_ context.Context, tokenHash string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[tokenHash]
	if !ok {
		return Request{}, ErrNotFound
	}
	r.ServerHash = slices.Clone(r.ServerHash)
	return r, nil
}

func (m *MemoryStore) Create(_ context.Context, r Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[r.TokenHash]; ok {
		return ErrConflict
	}
	r.ServerHash = slices.Clone(r.ServerHash)
	m.rows[r.TokenHash] = r
	return nil
}

func (m *MemoryStore) DeleteByTokenHash(_ context.Context, tokenHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tokenHash]; !ok {
		return 0, nil
	}
	delete(m.rows, tokenHash)
	return 1, nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, r := range m.rows {
		if r.Expires.Before(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) EvictExcess(_ context.Context, username string, limit int, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiries []time.Time
	for _, r := range m.rows {
		if r.Username == username {
			expiries = append(expiries, r.Expires)
		}
	}
	slices.SortFunc(expiries, func(a, b time.Time) int { return cmp.Compare(b.UnixNano(), a.UnixNano()) })

	cutoff, ok := watermark.Cutoff(expiries, limit, now)
	if !ok {
		return 0, nil
	}

	var n int64
	for k, r := range m.rows {
		if r.Username == username && r.Expires.Before(cutoff) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored requests.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
