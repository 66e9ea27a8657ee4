package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// MinBytes is the smallest entropy size accepted for a token.
	MinBytes = 24

	// MinHMACKeyBytes is the minimum server key size for HMAC hashing.
	MinHMACKeyBytes = 32
)

// Generator mints tokens and hashes them for storage.
type Generator struct {
	nBytes  int
	hmacKey []byte
	rand    func([]byte) (int, error)
}

// NewGenerator builds a Generator. nBytes <= 0 selects MinBytes.
// An empty hmacKey selects plain SHA-256 hashing.
func NewGenerator(nBytes int, hmacKey string) (*Generator, error) {
	if nBytes <= 0 {
		nBytes = MinBytes
	}
	if nBytes < MinBytes {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooFewBytes, nBytes, MinBytes)
	}
	key, err := ParseHMACKey(hmacKey)
	if err != nil {
		return nil, err
	}
	return &Generator{nBytes: nBytes, hmacKey: key, rand: rand.Read}, nil
}

// Generate returns a fresh token. Uniqueness is enforced by the store.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.nBytes)
	if _, err := g.rand(buf); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEntropy, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the storage digest of a token.
func (g *Generator) Hash(token string) string {
	if len(g.hmacKey) == 0 {
		return HashSHA256Hex(token)
	}
	return HashHMACSHA256Hex(token, g.hmacKey)
}

// HMACEnabled reports whether Hash is keyed.
func (g *Generator) HMACEnabled() bool { return len(g.hmacKey) > 0 }

// ParseHMACKey trims raw and enforces MinHMACKeyBytes.
// A blank key is valid and means "no HMAC".
func ParseHMACKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	// Measured in bytes, the key is used raw.
	if len(raw) < MinHMACKeyBytes {
		return nil, ErrHMACKeyTooShort
	}
	return []byte(raw), nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}
