package app

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"gatehouse/cmd/internal/auth/api"
	"gatehouse/cmd/internal/auth/connect"
	"gatehouse/cmd/internal/auth/session"
	"gatehouse/cmd/security/token"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains all runtime configuration. Keys match the environment
// variable names, lowercased, so a YAML file and the environment share one
// vocabulary.
type Config struct {
	BaseURL            string `koanf:"base_url"`
	EnableRegistration bool   `koanf:"enable_registration"`
	LoginNotice        string `koanf:"login_notice"`

	// Durations and counts are in the units the environment uses: seconds.
	SessionExpiry      int `koanf:"session_expiry"`
	ConnectExpiry      int `koanf:"connect_expiry"`
	DBCleanupTime      int `koanf:"db_cleanup_time"`
	MaxSessions        int `koanf:"max_sessions"`
	MaxConnectRequests int `koanf:"max_connect_requests"`
	SideEffectTimeout  int `koanf:"side_effect_timeout"`

	Port     string `koanf:"port"`
	HTTPAddr string `koanf:"http_addr"`
	TLS      bool   `koanf:"tls"`
	TLSCert  string `koanf:"tls_cert"`
	TLSKey   string `koanf:"tls_key"`

	DatabaseURL string `koanf:"database_url"`
	DBMaxConns  int32  `koanf:"db_max_conns"`
	DBMinConns  int32  `koanf:"db_min_conns"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	TrustProxy   bool   `koanf:"trust_proxy"`
	TokenHMACKey string `koanf:"token_hmac_key"`
	TokenBytes   int    `koanf:"token_bytes"`
	MaxBodyBytes int64  `koanf:"max_body_bytes"`
}

// DefaultConfig returns the built-in defaults. BaseURL has none.
func DefaultConfig() Config {
	return Config{
		SessionExpiry:      int(session.DefaultConfig().Expiry / time.Second),
		ConnectExpiry:      int(connect.DefaultConfig().Expiry / time.Second),
		MaxSessions:        session.DefaultConfig().MaxSessions,
		MaxConnectRequests: connect.DefaultConfig().MaxRequests,
		SideEffectTimeout:  10,

		DBMaxConns: 10,
		DBMinConns: 0,

		LogLevel:  "info",
		LogFormat: "json",

		TrustProxy:   true,
		TokenBytes:   token.MinBytes,
		MaxBodyBytes: api.DefaultConfig().MaxBodyBytes,
	}
}

// Load layers defaults, the optional YAML file at path, then the
// environment, and validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if _, err := api.BasePath(c.BaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.SessionExpiry <= 0 {
		errs = append(errs, errors.New("config: session_expiry must be positive"))
	}
	if c.ConnectExpiry <= 0 {
		errs = append(errs, errors.New("config: connect_expiry must be positive"))
	}
	if c.MaxSessions < 1 {
		errs = append(errs, errors.New("config: max_sessions must be at least 1"))
	}
	if c.MaxConnectRequests < 1 {
		errs = append(errs, errors.New("config: max_connect_requests must be at least 1"))
	}
	if c.TLS && (c.TLSCert == "" || c.TLSKey == "") {
		errs = append(errs, errors.New("config: tls requires tls_cert and tls_key"))
	}
	if c.TokenBytes < token.MinBytes {
		errs = append(errs, fmt.Errorf("config: token_bytes must be at least %d", token.MinBytes))
	}
	if c.TokenHMACKey != "" {
		if _, err := token.ParseHMACKey(c.TokenHMACKey); err != nil {
			errs = append(errs, fmt.Errorf("config: token_hmac_key: %w", err))
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("config: log_format %q is not json or text", c.LogFormat))
	}
	if c.DBMinConns < 0 || (c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns) {
		errs = append(errs, errors.New("config: db_min_conns must be between 0 and db_max_conns"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address: HTTP_ADDR, else ":"+PORT, else ":8080".
func (c Config) Addr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	if c.Port != "" {
		if _, err := strconv.Atoi(c.Port); err == nil {
			return net.JoinHostPort("", c.Port)
		}
		return c.Port
	}
	return ":8080"
}

// SessionConfig derives the session service settings.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		Expiry:      time.Duration(c.SessionExpiry) * time.Second,
		MaxSessions: c.MaxSessions,
	}
}

// ConnectConfig derives the connect service settings.
func (c Config) ConnectConfig() connect.Config {
	return connect.Config{
		Expiry:      time.Duration(c.ConnectExpiry) * time.Second,
		MaxRequests: c.MaxConnectRequests,
	}
}

// APIConfig derives the HTTP API settings.
func (c Config) APIConfig() api.Config {
	var notice *string
	if c.LoginNotice != "" {
		n := c.LoginNotice
		notice = &n
	}
	return api.Config{
		BaseURL:             c.BaseURL,
		RegistrationEnabled: c.EnableRegistration,
		LoginNotice:         notice,
		TrustProxy:          c.TrustProxy,
		MaxBodyBytes:        c.MaxBodyBytes,
	}
}

// CleanupInterval is zero when sweeping is disabled.
func (c Config) CleanupInterval() time.Duration {
	if c.DBCleanupTime <= 0 {
		return 0
	}
	return time.Duration(c.DBCleanupTime) * time.Second
}
