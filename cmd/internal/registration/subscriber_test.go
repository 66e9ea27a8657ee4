package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type chanListener struct {
	ch  chan string
	err error
}

func (l chanListener) Listen(context.Context) (<-chan string, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.ch, nil
}

type fakeStore struct {
	mu      sync.Mutex
	results map[string]error
	calls   []string
}

func (s *fakeStore) Complete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, username)
	return s.results[username]
}

func (s *fakeStore) DeleteExpired(context.Context, time.Time) (int64, error) { return 0, nil }

type countObserver map[string]int

func (c countObserver) Registration(result string) { c[result]++ }

func TestSubscriber_Run(t *testing.T) {
	ch := make(chan string, 5)
	store := &fakeStore{results: map[string]error{
		"ghost":   ErrPendingNotFound,
		"pending": ErrNotSucceeded,
		"twice":   ErrAlreadyRegistered,
		"broken":  errors.New("deadlock detected"),
	}}
	obs := countObserver{}
	sub, err := NewSubscriber(discard(), chanListener{ch: ch}, store, obs)
	require.NoError(t, err)

	for _, u := range []string{"carol", "ghost", "pending", "twice", "broken"} {
		ch <- u
	}
	close(ch)

	require.NoError(t, sub.Run(context.Background()))

	assert.Equal(t, []string{"carol", "ghost", "pending", "twice", "broken"}, store.calls, "each delivery is handled once, in order")
	assert.Equal(t, countObserver{"ok": 1, "not_found": 1, "not_succeeded": 1, "duplicate": 1, "error": 1}, obs)
}

func TestSubscriber_ListenFailure(t *testing.T) {
	sub, err := NewSubscriber(discard(), chanListener{err: errors.New("no db")}, &fakeStore{}, nil)
	require.NoError(t, err)
	require.Error(t, sub.Run(context.Background()))
}

func TestNewSubscriber_RequiresDeps(t *testing.T) {
	_, err := NewSubscriber(nil, nil, &fakeStore{}, nil)
	require.ErrorIs(t, err, ErrInvalidInput)
}
