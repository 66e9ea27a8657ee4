package identity

import (
	"context"
	"net/netip"
)

// User is the login-relevant view of an account.
type User struct {
	// Username in its stored (canonical) casing.
	Username     string
	PasswordHash string
	Disabled     bool
}

// Store is the identity persistence boundary used by the auth services.
type Store interface {
	// GetUserForLogin matches username case-insensitively.
	// Missing users yield an error satisfying IsNotFound.
	GetUserForLogin(ctx context.Context, username string) (User, error)

	// AppendKnownIP adds ip to the user's known set; already-known
	// addresses are left alone.
	AppendKnownIP(ctx context.Context, username string, ip netip.Addr) error
}
