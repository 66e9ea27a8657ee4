package api

import (
	"errors"
	"fmt"
	"net/url"
	"path"
)

// Config controls the public API surface.
type Config struct {
	// BaseURL is reported verbatim by /api/info. Routes mount under its path.
	BaseURL             string
	RegistrationEnabled bool
	// LoginNotice is shown by the web client on the login form. nil means
	// no notice.
	LoginNotice *string

	// TrustProxy honours X-Forwarded-For when the peer is a loopback proxy.
	TrustProxy   bool
	MaxBodyBytes int64
}

// DefaultConfig returns the API defaults. BaseURL has no default.
func DefaultConfig() Config {
	return Config{
		TrustProxy:   true,
		MaxBodyBytes: 1 << 20, // 1 MiB
	}
}

// Validate checks the config and fills zero limits with defaults.
func (c *Config) Validate() error {
	if _, err := BasePath(c.BaseURL); err != nil {
		return err
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return nil
}

// BasePath returns the path component of an absolute base URL, always
// starting with "/" and never ending with one unless it is the root.
func BasePath(baseURL string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api: base url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("api: invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("api: base url %q must be absolute", baseURL)
	}
	return path.Clean("/" + u.Path), nil
}
