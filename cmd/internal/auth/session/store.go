package session

import (
	"context"
	"time"
)

// Session mirrors a row of the sessions table.
type Session struct {
	TokenHash string
	Username  string
	Expires   time.Time
	// UUID is an optional opaque client identifier, stored verbatim.
	UUID *string
}

// Store abstracts persistence for sessions. All lookups are by token digest.
type Store interface {
	// FindByTokenHash returns ErrNotFound when absent. No side effects.
	FindByTokenHash(ctx context.Context, tokenHash string) (Session, error)

	// Create returns ErrConflict if the digest already exists.
	Create(ctx context.Context, s Session) error

	// DeleteByTokenHash is idempotent and reports rows removed.
	DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error)

	// DeleteExpired removes every session with expires < now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// EvictExcess trims username's sessions down to limit using the
	// watermark rule (see package watermark).
	EvictExcess(ctx context.Context, username string, limit int, now time.Time) (int64, error)
}
