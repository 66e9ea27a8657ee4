package registration

import (
	"context"
	"time"
)

// Store is the persistence boundary for pending registrations.
type Store interface {
	// Complete promotes the succeeded pending registration for username into
	// a user and removes the pending row, atomically.
	Complete(ctx context.Context, username string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
