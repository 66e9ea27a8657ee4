package app

import (
	"gatehouse/cmd/security/password"
	"gatehouse/cmd/security/token"
)

// newTokenGenerator builds the token source shared by sessions and connect
// requests. With a TOKEN_HMAC_KEY the stored digests are keyed, so a leaked
// table cannot be replayed without the key as well.
func newTokenGenerator(cfg Config, log Logger) (*token.Generator, error) {
	gen, err := token.NewGenerator(cfg.TokenBytes, cfg.TokenHMACKey)
	if err != nil {
		return nil, err
	}
	log.Info("security.tokens", "bytes", cfg.TokenBytes, "hmac", gen.HMACEnabled())
	return gen, nil
}

// passwordVerifier accepts the hashes the registration frontend writes.
// bcrypt is the stored format; argon2id PHC strings verify as well.
func passwordVerifier() password.Config {
	return password.DefaultConfig()
}
