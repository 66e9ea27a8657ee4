package token

import "errors"

// Public, stable errors for callers.
var (
	ErrHMACKeyTooShort = errors.New("token HMAC key too short")
	ErrTooFewBytes     = errors.New("token entropy below minimum")
	ErrEntropy         = errors.New("token entropy source failed")
)
