package connect

import (
	"fmt"
	"time"
)

// MaxServerIDLen bounds the serverId accepted by Redeem.
const MaxServerIDLen = 256

// ServerHashLen is the decoded size of a server hash (SHA-256).
const ServerHashLen = 32

// Config defines runtime configuration for the handshake.
type Config struct {
	// Expiry is the lifetime of a minted connect token.
	Expiry time.Duration

	// MaxRequests is the per-user ceiling enforced after each mint.
	MaxRequests int
}

// DefaultConfig returns one-minute tokens, five per user.
func DefaultConfig() Config {
	return Config{
		Expiry:      60 * time.Second,
		MaxRequests: 5,
	}
}

// Validate reports ErrConfig for unusable values.
func (c Config) Validate() error {
	if c.Expiry <= 0 {
		return fmt.Errorf("%w: connect expiry must be positive", ErrConfig)
	}
	if c.MaxRequests < 1 {
		return fmt.Errorf("%w: max connect requests must be at least 1", ErrConfig)
	}
	return nil
}
