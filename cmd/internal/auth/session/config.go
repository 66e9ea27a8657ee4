package session

import (
	"fmt"
	"time"
)

// Config defines runtime configuration for the session subsystem.
type Config struct {
	// Expiry is the lifetime of a new session.
	Expiry time.Duration

	// MaxSessions is the per-user ceiling enforced by eviction after login.
	MaxSessions int
}

// DefaultConfig returns one-week sessions, ten per user.
func DefaultConfig() Config {
	return Config{
		Expiry:      7 * 24 * time.Hour,
		MaxSessions: 10,
	}
}

// Validate reports ErrConfig for unusable values.
func (c Config) Validate() error {
	if c.Expiry <= 0 {
		return fmt.Errorf("%w: session expiry must be positive", ErrConfig)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("%w: max sessions must be at least 1", ErrConfig)
	}
	return nil
}
