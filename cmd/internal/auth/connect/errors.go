package connect

import "errors"

var (
	ErrBadRequest        = errors.New("bad request")
	ErrInvalidServerHash = errors.New("server hash must be 32 bytes of hex")
	ErrInvalidServerID   = errors.New("server id too long")

	// Redeem outcomes, in check order after the lookup.
	ErrNoSuchToken      = errors.New("no such connect token")
	ErrTokenExpired     = errors.New("connect token expired")
	ErrUsernameMismatch = errors.New("username mismatch")
	ErrIPMismatch       = errors.New("ip mismatch")
	ErrServerIDMismatch = errors.New("server id mismatch")

	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("connect request not found")

	// ErrConflict is returned by stores on a token-hash collision.
	ErrConflict = errors.New("connect token conflict")

	ErrConfig = errors.New("invalid connect config")
)
