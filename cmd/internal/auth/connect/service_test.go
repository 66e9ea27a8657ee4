package connect

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"log/slog"
	"net/netip"
	"strings"
	"testing"
	"time"

	"gatehouse/cmd/identity"
	"gatehouse/cmd/internal/auth/session"
	"gatehouse/cmd/internal/auth/tasks"
	"gatehouse/cmd/security/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions map[string]string

func (s stubSessions) Validate(_ context.Context, tok string) (session.Principal, error) {
	if tok == "" {
		return session.Principal{}, session.ErrNoSession
	}
	u, ok := s[tok]
	if !ok {
		return session.Principal{}, session.ErrInvalidSession
	}
	return session.Principal{Username: u, Token: tok}, nil
}

type inline struct{}

func (inline) Go(ctx context.Context, ts ...tasks.Task) {
	for _, t := range ts {
		_ = t.Fn(ctx)
	}
}

var serverID = []byte("minecraft-server-identity-0001")

func serverHashHex() string {
	sum := sha256.Sum256(serverID)
	return hex.EncodeToString(sum[:])
}

type fixture struct {
	svc   *Service
	store *MemoryStore
	users *identity.MemoryStore
	now   time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	users := identity.NewMemoryStore()
	users.Put(identity.User{Username: "Alice", PasswordHash: "x"})

	gen, err := token.NewGenerator(0, "")
	require.NoError(t, err)

	f := &fixture{
		store: NewMemoryStore(),
		users: users,
		now:   time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(cfg, log, f.store, stubSessions{"sess-alice": "Alice"}, users, gen, inline{})
	require.NoError(t, err)
	svc.now = func() time.Time { return f.now }
	f.svc = svc
	return f
}

func (f *fixture) mint(t *testing.T) string {
	t.Helper()
	tok, err := f.svc.Mint(context.Background(), MintInput{
		SessionToken:  "sess-alice",
		ServerHashHex: serverHashHex(),
		RemoteIP:      "203.0.113.7:5555",
	})
	require.NoError(t, err)
	return tok
}

func TestMint_Validation(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	cases := []struct {
		name string
		in   MintInput
		want error
	}{
		{name: "no session", in: MintInput{ServerHashHex: serverHashHex()}, want: session.ErrNoSession},
		{name: "invalid session", in: MintInput{SessionToken: "nope", ServerHashHex: serverHashHex()}, want: session.ErrInvalidSession},
		{name: "missing hash", in: MintInput{SessionToken: "sess-alice"}, want: ErrBadRequest},
		{name: "short hash", in: MintInput{SessionToken: "sess-alice", ServerHashHex: "abcd"}, want: ErrInvalidServerHash},
		{name: "not hex", in: MintInput{SessionToken: "sess-alice", ServerHashHex: strings.Repeat("zz", 32)}, want: ErrInvalidServerHash},
		{name: "long hash", in: MintInput{SessionToken: "sess-alice", ServerHashHex: strings.Repeat("ab", 33)}, want: ErrInvalidServerHash},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Mint(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, f.store.Len())
}

func TestMint_PersistsAndTracksIP(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	tok := f.mint(t)

	req, err := f.store.FindByTokenHash(context.Background(), f.svc.tokens.Hash(tok))
	require.NoError(t, err)
	assert.Equal(t, "Alice", req.Username)
	assert.Equal(t, netip.MustParseAddr("203.0.113.7"), req.IP)
	assert.Equal(t, f.now.Add(60*time.Second), req.Expires)
	assert.Len(t, req.ServerHash, ServerHashLen)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("203.0.113.7")}, f.users.KnownIPs("alice"))
}

func TestRedeem_SuccessThenSingleUse(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	tok := f.mint(t)

	in := RedeemInput{
		Token:    tok,
		Username: "Alice",
		ServerID: base64.StdEncoding.EncodeToString(serverID),
		IP:       "::ffff:203.0.113.7",
	}
	require.NoError(t, f.svc.Redeem(context.Background(), in))
	assert.ErrorIs(t, f.svc.Redeem(context.Background(), in), ErrNoSuchToken)
}

func TestRedeem_CheckOrder(t *testing.T) {
	goodID := base64.StdEncoding.EncodeToString(serverID)
	badID := base64.StdEncoding.EncodeToString([]byte("some-other-server"))

	cases := []struct {
		name    string
		advance time.Duration
		in      RedeemInput
		want    error
	}{
		{name: "expired beats everything", advance: 61 * time.Second, in: RedeemInput{Username: "bob", ServerID: badID, IP: "10.0.0.1"}, want: ErrTokenExpired},
		{name: "username is exact", in: RedeemInput{Username: "alice", ServerID: badID, IP: "10.0.0.1"}, want: ErrUsernameMismatch},
		{name: "ip before server id", in: RedeemInput{Username: "Alice", ServerID: badID, IP: "10.0.0.1"}, want: ErrIPMismatch},
		{name: "unparseable ip mismatches", in: RedeemInput{Username: "Alice", ServerID: goodID, IP: "not-an-ip"}, want: ErrIPMismatch},
		{name: "server id", in: RedeemInput{Username: "Alice", ServerID: badID}, want: ErrServerIDMismatch},
		{name: "ip omitted", in: RedeemInput{Username: "Alice", ServerID: goodID}},
		{name: "exactly at expiry", advance: 60 * time.Second, in: RedeemInput{Username: "Alice", ServerID: goodID}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			tc.in.Token = f.mint(t)
			f.now = f.now.Add(tc.advance)

			err := f.svc.Redeem(context.Background(), tc.in)
			if tc.want == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.want)
			}
			// Consumed regardless of outcome.
			assert.Zero(t, f.store.Len())
			assert.ErrorIs(t, f.svc.Redeem(context.Background(), tc.in), ErrNoSuchToken)
		})
	}
}

func TestRedeem_InputValidation(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Redeem(ctx, RedeemInput{Username: "a", ServerID: "b"}), ErrBadRequest)
	assert.ErrorIs(t, f.svc.Redeem(ctx, RedeemInput{Token: "t", ServerID: "b"}), ErrBadRequest)
	assert.ErrorIs(t, f.svc.Redeem(ctx, RedeemInput{Token: "t", Username: "a"}), ErrBadRequest)
	assert.ErrorIs(t, f.svc.Redeem(ctx, RedeemInput{Token: "t", Username: "a", ServerID: strings.Repeat("A", MaxServerIDLen+1)}), ErrInvalidServerID)
	assert.ErrorIs(t, f.svc.Redeem(ctx, RedeemInput{Token: "t", Username: "a", ServerID: strings.Repeat("A", MaxServerIDLen)}), ErrNoSuchToken)
}

// racingStore lets a second redeemer delete the row between lookup and delete.
type racingStore struct {
	*MemoryStore
	onFind func()
}

func (r racingStore) FindByTokenHash(ctx context.Context, h string) (Request, error) {
	req, err := r.MemoryStore.FindByTokenHash(ctx, h)
	if r.onFind != nil {
		r.onFind()
	}
	return req, err
}

func TestRedeem_ConcurrentConsumeReportsNoSuchToken(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	tok := f.mint(t)
	hash := f.svc.tokens.Hash(tok)

	f.svc.store = racingStore{MemoryStore: f.store, onFind: func() {
		_, _ = f.store.DeleteByTokenHash(context.Background(), hash)
	}}

	err := f.svc.Redeem(context.Background(), RedeemInput{
		Token:    tok,
		Username: "Alice",
		ServerID: base64.StdEncoding.EncodeToString(serverID),
	})
	assert.ErrorIs(t, err, ErrNoSuchToken)
}

func TestMint_EvictsBeyondMaxRequests(t *testing.T) {
	f := newFixture(t, Config{Expiry: time.Minute, MaxRequests: 2})
	for i := 0; i < 4; i++ {
		f.now = f.now.Add(time.Second)
		f.mint(t)
	}
	assert.Equal(t, 2, f.store.Len())
}

func TestDecodeBase64Lenient(t *testing.T) {
	raw := []byte{0xfb, 0xff, 0xfe, 0x01, 0x02}
	want := raw

	for _, enc := range []string{
		base64.StdEncoding.EncodeToString(raw),
		base64.RawStdEncoding.EncodeToString(raw),
		base64.URLEncoding.EncodeToString(raw),
		base64.RawURLEncoding.EncodeToString(raw),
		" " + base64.StdEncoding.EncodeToString(raw) + "\n",
	} {
		assert.Equal(t, want, decodeBase64Lenient(enc), "encoding %q", enc)
	}
	assert.Empty(t, decodeBase64Lenient("!!!"))
}
