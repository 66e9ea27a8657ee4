// Package app wires the gatehouse runtime: config, logging, stores, services,
// background workers and the HTTP server.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gatehouse/cmd/identity"
	"gatehouse/cmd/internal/auth/api"
	"gatehouse/cmd/internal/auth/connect"
	"gatehouse/cmd/internal/auth/session"
	"gatehouse/cmd/internal/auth/tasks"
	"gatehouse/cmd/internal/metrics"
	"gatehouse/cmd/internal/registration"
	"gatehouse/cmd/internal/sweep"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// App owns the pool, the HTTP server and the background workers.
type App struct {
	cfg Config
	log Logger

	pool    *pgxpool.Pool
	metrics *metrics.Metrics
	runner  *tasks.Runner

	auth       *api.Handler
	sweeper    *sweep.Sweeper
	subscriber *registration.Subscriber
}

// New connects to Postgres and builds every component. The caller must
// call Run, which owns shutdown; on error nothing is left open.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := build(cfg, log, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg Config, log Logger, pool *pgxpool.Pool) (*App, error) {
	m := metrics.New()

	tokens, err := newTokenGenerator(cfg, log)
	if err != nil {
		return nil, err
	}

	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	sessionStore := session.NewPostgresStore(pool)
	connectStore := connect.NewPostgresStore(pool)
	pendingStore, err := registration.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}

	runner := tasks.New(log, time.Duration(cfg.SideEffectTimeout)*time.Second, tasks.WithObserver(m))

	sessions, err := session.NewService(cfg.SessionConfig(), log, sessionStore, users, passwordVerifier(), tokens, runner)
	if err != nil {
		return nil, err
	}
	connects, err := connect.NewService(cfg.ConnectConfig(), log, connectStore, sessions, users, tokens, runner)
	if err != nil {
		return nil, err
	}

	auth, err := api.NewHandler(log, cfg.APIConfig(), sessions, connects, api.WithRecorder(m))
	if err != nil {
		return nil, err
	}

	sweeper := sweep.New(log, cfg.CleanupInterval(), []sweep.Target{
		{Name: "sessions", Deleter: sessionStore},
		{Name: "connecting", Deleter: connectStore},
		{Name: "pending_registrations", Deleter: pendingStore},
	}, sweep.WithObserver(m))

	subscriber, err := registration.NewSubscriber(log, registration.NewPgListener(log, pool), pendingStore, m)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:        cfg,
		log:        log,
		pool:       pool,
		metrics:    m,
		runner:     runner,
		auth:       auth,
		sweeper:    sweeper,
		subscriber: subscriber,
	}, nil
}

// Handler returns the full HTTP handler chain.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.pool, a.metrics, a.auth)
	return WithRequestID(WithRequestLogging(WithSecurityHeaders(mux), a.log))
}

// Run serves HTTP and runs the workers until ctx is cancelled or the server
// fails, then drains side effects and closes the pool.
func (a *App) Run(ctx context.Context) error {
	defer a.pool.Close()

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	a.log.Info("server.start",
		"addr", srv.Addr,
		"tls", a.cfg.TLS,
		"base_url", a.cfg.BaseURL,
		"sweep_enabled", a.sweeper.Enabled(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if a.cfg.TLS {
			err = srv.ListenAndServeTLS(a.cfg.TLSCert, a.cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error { return a.sweeper.Run(gctx) })

	g.Go(func() error {
		err := a.subscriber.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error("registration.subscriber.fail", "err", err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", context.Cause(gctx))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	err := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if werr := a.runner.Wait(drainCtx); werr != nil {
		a.log.Warn("tasks.drain.incomplete", "err", werr)
	}

	a.log.Info("server.stopped")
	return err
}
