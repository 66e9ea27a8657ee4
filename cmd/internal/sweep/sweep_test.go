package sweep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gatehouse/cmd/internal/auth/connect"
	"gatehouse/cmd/internal/auth/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type failingDeleter struct{}

func (failingDeleter) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("relation does not exist")
}

type recorder struct {
	mu   sync.Mutex
	seen map[string][]int64
	errs map[string]int
}

func newRecorder() *recorder {
	return &recorder{seen: map[string][]int64{}, errs: map[string]int{}}
}

func (r *recorder) Swept(target string, n int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.errs[target]++
		return
	}
	r.seen[target] = append(r.seen[target], n)
}

func TestTick_TargetsAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	sessions := session.NewMemoryStore()
	require.NoError(t, sessions.Create(ctx, session.Session{TokenHash: "old", Username: "a", Expires: now.Add(-time.Second)}))
	require.NoError(t, sessions.Create(ctx, session.Session{TokenHash: "live", Username: "a", Expires: now.Add(time.Hour)}))

	conns := connect.NewMemoryStore()
	require.NoError(t, conns.Create(ctx, connect.Request{TokenHash: "c1", Username: "a", Expires: now.Add(-time.Minute)}))

	rec := newRecorder()
	s := New(discard(), time.Minute, []Target{
		{Name: "sessions", Deleter: sessions},
		{Name: "broken", Deleter: failingDeleter{}},
		{Name: "connecting", Deleter: conns},
	}, WithObserver(rec))
	s.now = func() time.Time { return now }

	s.Tick(ctx)

	assert.Equal(t, []int64{1}, rec.seen["sessions"])
	assert.Equal(t, []int64{1}, rec.seen["connecting"])
	assert.Equal(t, 1, rec.errs["broken"])
	assert.Equal(t, 1, sessions.CountFor("a"))
	assert.Equal(t, 0, conns.Len())
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	rec := newRecorder()
	s := New(discard(), 5*time.Millisecond, []Target{{Name: "broken", Deleter: failingDeleter{}}}, WithObserver(rec))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.errs["broken"] >= 2
	}, time.Second, 5*time.Millisecond, "failures must not stop later ticks")

	cancel()
	require.NoError(t, <-done)
}

func TestRun_Disabled(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		s := New(discard(), interval, []Target{{Name: "broken", Deleter: failingDeleter{}}})
		assert.False(t, s.Enabled())
		assert.NoError(t, s.Run(context.Background()))
	}
}
