package registration

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrPendingNotFound: the notification named a username with no pending
	// registration.
	ErrPendingNotFound = errors.New("pending registration not found")
	// ErrNotSucceeded: the pending registration exists but has not been
	// marked as succeeded.
	ErrNotSucceeded = errors.New("pending registration not succeeded")
	// ErrAlreadyRegistered: a user with this username already exists.
	ErrAlreadyRegistered = errors.New("user already registered")
)
