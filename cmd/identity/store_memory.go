package identity

import (
	"context"
	"net/netip"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store used by tests. It matches usernames
// the way PostgresStore does.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*memUser // keyed by NormalizeUsername
}

type memUser struct {
	User
	ips []netip.Addr
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*memUser)}
}

// Put inserts or replaces a user.
func (s *MemoryStore) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[NormalizeUsername(u.Username)] = &memUser{User: u}
}

// KnownIPs returns a copy of the user's known addresses.
func (s *MemoryStore) KnownIPs(username string) []netip.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[NormalizeUsername(username)]
	if !ok {
		return nil
	}
	return slices.Clone(u.ips)
}

// GetUserForLogin implements Store.
func (s *MemoryStore) GetUserForLogin(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[NormalizeUsername(username)]
	if !ok {
		return User{}, OpError{Op: "identity.GetUserForLogin", Kind: ErrNotFound}
	}
	return u.User, nil
}

// AppendKnownIP implements Store.
func (s *MemoryStore) AppendKnownIP(_ context.Context, username string, ip netip.Addr) error {
	if !ip.IsValid() {
		return OpError{Op: "identity.AppendKnownIP", Kind: ErrInvalidInput, Msg: "invalid ip"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[NormalizeUsername(username)]
	if !ok {
		return nil
	}
	if !slices.Contains(u.ips, ip) {
		u.ips = append(u.ips, ip)
	}
	return nil
}
