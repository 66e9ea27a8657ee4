package session

import "errors"

var (
	// ErrNoSession is returned when no session token was presented.
	ErrNoSession = errors.New("no session")

	// ErrInvalidSession covers unknown and expired tokens alike.
	ErrInvalidSession = errors.New("invalid session")

	// ErrBadRequest is returned when login fields are missing.
	ErrBadRequest = errors.New("bad request")

	// ErrInvalidCredentials covers unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled is returned for disabled accounts, before any
	// password comparison.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("session not found")

	// ErrConflict is returned by stores on a token-hash collision.
	ErrConflict = errors.New("session token conflict")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)
