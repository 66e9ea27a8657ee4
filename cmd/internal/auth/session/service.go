package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatehouse/cmd/identity"
	"gatehouse/cmd/internal/auth/tasks"

	"github.com/samber/oops"
)

// PasswordVerifier checks a password against a stored hash in constant time.
type PasswordVerifier interface {
	Verify(encodedHash, password string) (bool, error)
}

// TokenSource mints tokens and derives their storage digest.
type TokenSource interface {
	Generate() (string, error)
	Hash(token string) string
}

// Background runs post-response side effects.
type Background interface {
	Go(ctx context.Context, ts ...tasks.Task)
}

// Principal is the identity behind a validated session.
type Principal struct {
	Username string
	Token    string
	Expires  time.Time
}

// Issued is the result of a successful login.
type Issued struct {
	// Username in its stored casing, which may differ from the input.
	Username string
	Token    string
	Expires  time.Time
}

// LoginInput carries the login request. RemoteIP is the raw client address.
type LoginInput struct {
	Username string
	Password string
	UUID     string
	RemoteIP string
}

// Service implements login, validation and logout.
type Service struct {
	cfg       Config
	log       *slog.Logger
	store     Store
	users     identity.Store
	passwords PasswordVerifier
	tokens    TokenSource
	bg        Background
	now       func() time.Time
}

// NewService constructs a Service. All dependencies are required.
func NewService(cfg Config, log *slog.Logger, store Store, users identity.Store, passwords PasswordVerifier, tokens TokenSource, bg Background) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || users == nil || passwords == nil || tokens == nil || bg == nil {
		return nil, errors.New("session: missing dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		log:       log,
		store:     store,
		users:     users,
		passwords: passwords,
		tokens:    tokens,
		bg:        bg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Validate resolves a presented session token.
//
// Unknown and expired tokens are indistinguishable to the caller. An expired
// row is deleted on the way out.
func (s *Service) Validate(ctx context.Context, token string) (Principal, error) {
	if token == "" {
		return Principal{}, ErrNoSession
	}

	hash := s.tokens.Hash(token)
	row, err := s.store.FindByTokenHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return Principal{}, ErrInvalidSession
	}
	if err != nil {
		return Principal{}, err
	}

	if row.Expires.Before(s.now()) {
		if _, err := s.store.DeleteByTokenHash(ctx, hash); err != nil {
			s.log.Warn("session.validate.expire.fail", "username", row.Username, "err", err)
		}
		return Principal{}, ErrInvalidSession
	}

	return Principal{Username: row.Username, Token: token, Expires: row.Expires}, nil
}

// Login checks credentials and opens a session.
//
// The disabled check precedes the password comparison, so disabled accounts
// are reported as such without spending a hash verification. On success the
// known-IP append and session eviction are started in the background.
func (s *Service) Login(ctx context.Context, in LoginInput) (Issued, error) {
	if in.Username == "" || in.Password == "" {
		return Issued{}, ErrBadRequest
	}

	user, err := s.users.GetUserForLogin(ctx, in.Username)
	if identity.IsNotFound(err) {
		return Issued{}, ErrInvalidCredentials
	}
	if err != nil {
		return Issued{}, err
	}
	if user.Disabled {
		return Issued{}, ErrAccountDisabled
	}

	ok, err := s.passwords.Verify(user.PasswordHash, in.Password)
	if err != nil {
		return Issued{}, oops.Code("SESSION_PASSWORD_VERIFY_FAILED").With("username", user.Username).Wrap(err)
	}
	if !ok {
		return Issued{}, ErrInvalidCredentials
	}

	tok, err := s.tokens.Generate()
	if err != nil {
		return Issued{}, err
	}

	now := s.now()
	row := Session{
		TokenHash: s.tokens.Hash(tok),
		Username:  user.Username,
		Expires:   now.Add(s.cfg.Expiry),
	}
	if in.UUID != "" {
		uuid := in.UUID
		row.UUID = &uuid
	}
	if err := s.store.Create(ctx, row); err != nil {
		return Issued{}, err
	}

	s.afterLogin(ctx, user.Username, in.RemoteIP, now)

	return Issued{Username: user.Username, Token: tok, Expires: row.Expires}, nil
}

func (s *Service) afterLogin(ctx context.Context, username, remoteIP string, now time.Time) {
	ts := []tasks.Task{{
		Name: "session.evict",
		Fn: func(ctx context.Context) error {
			n, err := s.store.EvictExcess(ctx, username, s.cfg.MaxSessions, now)
			if n > 0 {
				s.log.Debug("session.evict", "username", username, "deleted", n)
			}
			return err
		},
	}}
	if ip, ok := identity.NormalizeIP(remoteIP); ok {
		ts = append(ts, tasks.Task{
			Name: "session.append_ip",
			Fn:   func(ctx context.Context) error { return s.users.AppendKnownIP(ctx, username, ip) },
		})
	}
	s.bg.Go(ctx, ts...)
}

// Logout deletes the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrNoSession
	}
	n, err := s.store.DeleteByTokenHash(ctx, s.tokens.Hash(token))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidSession
	}
	return nil
}
