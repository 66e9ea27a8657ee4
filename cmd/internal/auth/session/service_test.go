package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"gatehouse/cmd/identity"
	"gatehouse/cmd/internal/auth/tasks"
	"gatehouse/cmd/security/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainVerifier treats the stored hash as "plain:<password>".
type plainVerifier struct{ calls int }

func (v *plainVerifier) Verify(hash, password string) (bool, error) {
	v.calls++
	if len(hash) < 6 || hash[:6] != "plain:" {
		return false, errors.New("bad hash")
	}
	return hash[6:] == password, nil
}

// inline runs background tasks synchronously so tests can assert on them.
type inline struct{}

func (inline) Go(ctx context.Context, ts ...tasks.Task) {
	for _, t := range ts {
		_ = t.Fn(ctx)
	}
}

type fixture struct {
	svc   *Service
	store *MemoryStore
	users *identity.MemoryStore
	pw    *plainVerifier
	clock *time.Time
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()

	users := identity.NewMemoryStore()
	users.Put(identity.User{Username: "Alice", PasswordHash: "plain:hunter2"})
	users.Put(identity.User{Username: "bob", PasswordHash: "plain:pw", Disabled: true})

	gen, err := token.NewGenerator(0, "")
	require.NoError(t, err)

	store := NewMemoryStore()
	pw := &plainVerifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := NewService(cfg, log, store, users, pw, gen, inline{})
	require.NoError(t, err)

	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return fixture{svc: svc, store: store, users: users, pw: pw, clock: &now}
}

func TestLogin_Validate_Logout(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx := context.Background()

	issued, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "hunter2", RemoteIP: "203.0.113.7:4000"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", issued.Username)
	assert.Equal(t, f.clock.Add(7*24*time.Hour), issued.Expires)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("203.0.113.7")}, f.users.KnownIPs("Alice"))

	p, err := f.svc.Validate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.Username)

	require.NoError(t, f.svc.Logout(ctx, issued.Token))
	_, err = f.svc.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.ErrorIs(t, f.svc.Logout(ctx, issued.Token), ErrInvalidSession)
}

func TestLogin_Failures(t *testing.T) {
	cases := []struct {
		name      string
		in        LoginInput
		want      error
		wantCalls int
	}{
		{name: "missing username", in: LoginInput{Password: "x"}, want: ErrBadRequest},
		{name: "missing password", in: LoginInput{Username: "alice"}, want: ErrBadRequest},
		{name: "unknown user", in: LoginInput{Username: "carol", Password: "x"}, want: ErrInvalidCredentials},
		{name: "disabled skips password", in: LoginInput{Username: "bob", Password: "wrong"}, want: ErrAccountDisabled},
		{name: "wrong password", in: LoginInput{Username: "alice", Password: "nope"}, want: ErrInvalidCredentials, wantCalls: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			_, err := f.svc.Login(context.Background(), tc.in)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.wantCalls, f.pw.calls)
			assert.Zero(t, f.store.CountFor("Alice"))
		})
	}
}

func TestLogin_StoresUUIDAndSkipsBadIP(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	issued, err := f.svc.Login(context.Background(), LoginInput{Username: "Alice", Password: "hunter2", UUID: "dev-1", RemoteIP: "garbage"})
	require.NoError(t, err)

	row, err := f.store.FindByTokenHash(context.Background(), f.svc.tokens.Hash(issued.Token))
	require.NoError(t, err)
	require.NotNil(t, row.UUID)
	assert.Equal(t, "dev-1", *row.UUID)
	assert.Empty(t, f.users.KnownIPs("Alice"))
}

func TestValidate_NoSessionAndExpiry(t *testing.T) {
	f := newFixture(t, Config{Expiry: time.Hour, MaxSessions: 10})
	ctx := context.Background()

	_, err := f.svc.Validate(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = f.svc.Validate(ctx, "never-issued")
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.ErrorIs(t, f.svc.Logout(ctx, ""), ErrNoSession)

	issued, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "hunter2"})
	require.NoError(t, err)

	// Exactly at expiry the session is still good.
	later := f.clock.Add(time.Hour)
	f.svc.now = func() time.Time { return later }
	_, err = f.svc.Validate(ctx, issued.Token)
	require.NoError(t, err)

	later = later.Add(time.Millisecond)
	_, err = f.svc.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.Zero(t, f.store.CountFor("Alice"), "expired row is deleted lazily")
}

func TestLogin_EvictsBeyondMaxSessions(t *testing.T) {
	f := newFixture(t, Config{Expiry: time.Hour, MaxSessions: 3})
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 5; i++ {
		now := f.clock.Add(time.Duration(i) * time.Minute)
		f.svc.now = func() time.Time { return now }
		issued, err := f.svc.Login(ctx, LoginInput{Username: "alice", Password: "hunter2"})
		require.NoError(t, err)
		tokens = append(tokens, issued.Token)
	}

	assert.Equal(t, 3, f.store.CountFor("Alice"))
	for i, tok := range tokens {
		_, err := f.svc.Validate(ctx, tok)
		if i < 2 {
			assert.ErrorIs(t, err, ErrInvalidSession, "token %d should be evicted", i)
		} else {
			assert.NoError(t, err, "token %d should survive", i)
		}
	}
}

func TestLogin_WithRunner(t *testing.T) {
	users := identity.NewMemoryStore()
	users.Put(identity.User{Username: "Alice", PasswordHash: "plain:hunter2"})
	gen, err := token.NewGenerator(0, "")
	require.NoError(t, err)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := tasks.New(log, time.Second)

	svc, err := NewService(DefaultConfig(), log, NewMemoryStore(), users, &plainVerifier{}, gen, runner)
	require.NoError(t, err)

	// Request context already gone: side effects still land.
	ctx, cancel := context.WithCancel(context.Background())
	_, err = svc.Login(ctx, LoginInput{Username: "alice", Password: "hunter2", RemoteIP: "::ffff:198.51.100.2"})
	require.NoError(t, err)
	cancel()

	require.NoError(t, runner.Wait(context.Background()))
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("198.51.100.2")}, users.KnownIPs("Alice"))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{Expiry: 0, MaxSessions: 1}.Validate(), ErrConfig)
	assert.ErrorIs(t, Config{Expiry: time.Hour, MaxSessions: 0}.Validate(), ErrConfig)
}
