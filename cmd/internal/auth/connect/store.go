package connect

import (
	"context"
	"net/netip"
	"time"
)

// Request mirrors a row of the connecting table.
type Request struct {
	TokenHash  string
	Username   string
	ServerHash []byte
	// IP is the zero Addr when the client address could not be parsed.
	IP      netip.Addr
	Expires time.Time
}

// Store abstracts persistence for connect requests. Same contract as the
// session store.
type Store interface {
	FindByTokenHash(ctx context.Context, tokenHash string) (Request, error)
	Create(ctx context.Context, r Request) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	EvictExcess(ctx context.Context, username string, limit int, now time.Time) (int64, error)
}
