package connect

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"gatehouse/cmd/identity"
	"gatehouse/cmd/internal/auth/session"
	"gatehouse/cmd/internal/auth/tasks"
)

// SessionValidator resolves the session a mint is made under.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (session.Principal, error)
}

// MintInput carries a doconnect request.
type MintInput struct {
	SessionToken  string
	ServerHashHex string
	RemoteIP      string
}

// RedeemInput carries a verifyconnect request. IP is optional.
type RedeemInput struct {
	Token    string
	Username string
	ServerID string
	IP       string
}

// Service implements mint and redeem.
type Service struct {
	cfg      Config
	log      *slog.Logger
	store    Store
	sessions SessionValidator
	users    identity.Store
	tokens   session.TokenSource
	bg       session.Background
	now      func() time.Time
}

// NewService constructs a Service. All dependencies are required.
func NewService(cfg Config, log *slog.Logger, store Store, sessions SessionValidator, users identity.Store, tokens session.TokenSource, bg session.Background) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || sessions == nil || users == nil || tokens == nil || bg == nil {
		return nil, errors.New("connect: missing dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		store:    store,
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		bg:       bg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Mint issues a connect token for the session's user, bound to serverHash.
// Session errors (session.ErrNoSession, session.ErrInvalidSession) pass
// through unchanged.
func (s *Service) Mint(ctx context.Context, in MintInput) (string, error) {
	p, err := s.sessions.Validate(ctx, in.SessionToken)
	if err != nil {
		return "", err
	}
	if in.ServerHashHex == "" {
		return "", ErrBadRequest
	}
	serverHash, err := hex.DecodeString(in.ServerHashHex)
	if err != nil || len(serverHash) != ServerHashLen {
		return "", ErrInvalidServerHash
	}

	tok, err := s.tokens.Generate()
	if err != nil {
		return "", err
	}

	now := s.now()
	ip, _ := identity.NormalizeIP(in.RemoteIP)
	req := Request{
		TokenHash:  s.tokens.Hash(tok),
		Username:   p.Username,
		ServerHash: serverHash,
		IP:         ip,
		Expires:    now.Add(s.cfg.Expiry),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return "", err
	}

	s.afterMint(ctx, p.Username, ip, now)
	return tok, nil
}

func (s *Service) afterMint(ctx context.Context, username string, ip netip.Addr, now time.Time) {
	ts := []tasks.Task{{
		Name: "connect.evict",
		Fn: func(ctx context.Context) error {
			n, err := s.store.EvictExcess(ctx, username, s.cfg.MaxRequests, now)
			if n > 0 {
				s.log.Debug("connect.evict", "username", username, "deleted", n)
			}
			return err
		},
	}}
	if ip.IsValid() {
		ts = append(ts, tasks.Task{
			Name: "connect.append_ip",
			Fn:   func(ctx context.Context) error { return s.users.AppendKnownIP(ctx, username, ip) },
		})
	}
	s.bg.Go(ctx, ts...)
}

// Redeem verifies a connect token presented by a third-party server.
//
// Checks run in a fixed order and the first failure wins: expiry, username,
// ip (only if given), server id. The request is deleted afterwards whatever
// the outcome; if another redeem deleted it first, the result is
// ErrNoSuchToken.
func (s *Service) Redeem(ctx context.Context, in RedeemInput) error {
	if in.Token == "" || in.Username == "" || in.ServerID == "" {
		return ErrBadRequest
	}
	if len(in.ServerID) > MaxServerIDLen {
		return ErrInvalidServerID
	}

	hash := s.tokens.Hash(in.Token)
	req, err := s.store.FindByTokenHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return ErrNoSuchToken
	}
	if err != nil {
		return err
	}

	outcome := s.check(req, in)

	n, err := s.store.DeleteByTokenHash(ctx, hash)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSuchToken
	}
	return outcome
}

func (s *Service) check(req Request, in RedeemInput) error {
	if req.Expires.Before(s.now()) {
		return ErrTokenExpired
	}
	if in.Username != req.Username {
		return ErrUsernameMismatch
	}
	if in.IP != "" {
		ip, _ := identity.NormalizeIP(in.IP)
		if ip != req.IP {
			return ErrIPMismatch
		}
	}
	sum := sha256.Sum256(decodeBase64Lenient(in.ServerID))
	if subtle.ConstantTimeCompare(sum[:], req.ServerHash) != 1 {
		return ErrServerIDMismatch
	}
	return nil
}

// decodeBase64Lenient accepts the standard and URL alphabets with or
// without padding, skipping characters outside both. Servers in the wild
// send all of these for the same identifier.
func decodeBase64Lenient(s string) []byte {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
			b.WriteByte(c)
		case c == '-':
			b.WriteByte('+')
		case c == '_':
			b.WriteByte('/')
		}
	}
	clean := b.String()
	// A single trailing sextet carries no whole byte.
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}
	out, err := base64.RawStdEncoding.DecodeString(clean)
	if err != nil {
		return nil
	}
	return out
}
