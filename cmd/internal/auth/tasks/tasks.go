// Package tasks runs the post-response side effects of login and doconnect.
//
// Work handed to a Runner is detached from the request: it survives the
// request context being cancelled, is bounded by its own timeout, and
// never reports back to the caller. Failures are logged and observed.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one named unit of background work.
type Task struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Observer receives the outcome of every task.
type Observer interface {
	TaskDone(name string, err error)
}

type nopObserver struct{}

func (nopObserver) TaskDone(string, error) {}

// Runner owns in-flight background work so shutdown can drain it.
type Runner struct {
	log     *slog.Logger
	timeout time.Duration
	obs     Observer

	wg sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver sets the outcome observer (metrics).
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.obs = o
		}
	}
}

// New returns a Runner. timeout <= 0 selects 10s.
func New(log *slog.Logger, timeout time.Duration, opts ...Option) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Runner{log: log, timeout: timeout, obs: nopObserver{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Go starts tasks concurrently and returns immediately. Each task runs to
// completion regardless of the others. ctx contributes values only; its
// cancellation is ignored.
func (r *Runner) Go(ctx context.Context, tasks ...Task) {
	if len(tasks) == 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		var g errgroup.Group
		for _, t := range tasks {
			g.Go(func() error {
				err := t.Fn(tctx)
				r.obs.TaskDone(t.Name, err)
				if err != nil {
					r.log.Warn("tasks.fail", "task", t.Name, "err", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Wait blocks until all started work finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
