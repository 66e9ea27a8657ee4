// Package sweep periodically removes expired rows.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Deleter removes every row that expired before now and reports how many.
type Deleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Target is one table the sweeper cleans.
type Target struct {
	Name    string
	Deleter Deleter
}

// Observer receives the outcome of each target on every tick.
type Observer interface {
	Swept(target string, deleted int64, err error)
}

type nopObserver struct{}

func (nopObserver) Swept(string, int64, error) {}

// Sweeper deletes expired rows from its targets on a fixed interval.
type Sweeper struct {
	log      *slog.Logger
	interval time.Duration
	timeout  time.Duration
	targets  []Target
	obs      Observer
	now      func() time.Time
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithObserver sets the per-target outcome observer.
func WithObserver(o Observer) Option {
	return func(s *Sweeper) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithTimeout bounds a single tick. Defaults to the interval, capped at 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a Sweeper. interval <= 0 yields a disabled sweeper whose Run
// returns immediately.
func New(log *slog.Logger, interval time.Duration, targets []Target, opts ...Option) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	s := &Sweeper{
		log:      log,
		interval: interval,
		timeout:  min(interval, 30*time.Second),
		targets:  targets,
		obs:      nopObserver{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether Run will do anything.
func (s *Sweeper) Enabled() bool { return s.interval > 0 && len(s.targets) > 0 }

// Run ticks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	if !s.Enabled() {
		s.log.Info("sweep.disabled")
		return nil
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.log.Info("sweep.start", "interval", s.interval.String(), "targets", len(s.targets))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one pass over every target concurrently. A failing target does
// not affect the others.
func (s *Sweeper) Tick(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now()
	s.log.Debug("sweep.tick")

	var g errgroup.Group
	for _, target := range s.targets {
		g.Go(func() error {
			n, err := target.Deleter.DeleteExpired(tctx, now)
			s.obs.Swept(target.Name, n, err)
			if err != nil {
				s.log.Error("sweep.fail", "target", target.Name, "err", err)
				return nil
			}
			if n > 0 {
				s.log.Debug("sweep.deleted", "target", target.Name, "deleted", n)
			}
			return nil
		})
	}
	_ = g.Wait()
}
