package password

import (
	"runtime"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Algorithm selects the encoding produced by Hash.
type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds what Hash accepts. Verify never applies it: a stored hash
// predates whatever policy is current.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Algorithm  Algorithm
	BcryptCost int
	Params     Argon2idParams
	Policy     Policy
}

// DefaultConfig hashes with bcrypt at the library default cost and keeps
// Argon2id parameters for verification bounds.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: bcrypt.DefaultCost,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			// bcrypt ignores everything past 72 bytes.
			MaxLength: 72,
		},
	}
}

// Validate checks the password against Policy. Length counts runes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if c.Policy.MaxLength > 0 && n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Algorithm == AlgorithmBcrypt && len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
