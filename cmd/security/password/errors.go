package password

import "errors"

var (
	// ErrPasswordTooShort and ErrPasswordTooLong are returned by Validate.
	ErrPasswordTooShort = errors.New("password: too short")
	ErrPasswordTooLong  = errors.New("password: too long")

	// ErrInvalidHash means the stored hash is malformed or uses parameters
	// outside the accepted bounds. Login treats it as a server fault.
	ErrInvalidHash = errors.New("password: invalid stored hash")

	ErrUnknownAlgorithm = errors.New("password: unknown hash algorithm")
)
