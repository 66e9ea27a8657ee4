package registration

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Channel is the NOTIFY channel the registration frontend signals on. The
// payload is the username.
const Channel = "registration_succeeded"

// Listener delivers notification payloads until ctx is done, then closes
// the channel.
type Listener interface {
	Listen(ctx context.Context) (<-chan string, error)
}

// notifyConn is the part of *pgx.Conn a listener uses.
type notifyConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// PgListener holds a dedicated connection subscribed with LISTEN. A lost
// connection is re-established with capped exponential backoff.
type PgListener struct {
	log     *slog.Logger
	dial    func(ctx context.Context) (notifyConn, error)
	channel string

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewPgListener takes a connection out of pool for the lifetime of each
// subscription. The connection is never returned to the pool.
func NewPgListener(log *slog.Logger, pool *pgxpool.Pool) *PgListener {
	return newPgListener(log, func(ctx context.Context) (notifyConn, error) {
		c, err := pool.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		return c.Hijack(), nil
	})
}

func newPgListener(log *slog.Logger, dial func(ctx context.Context) (notifyConn, error)) *PgListener {
	if log == nil {
		log = slog.Default()
	}
	return &PgListener{
		log:        log,
		dial:       dial,
		channel:    Channel,
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// Listen implements Listener. The first subscription must succeed; later
// losses are retried until ctx is done.
func (l *PgListener) Listen(ctx context.Context) (<-chan string, error) {
	conn, err := l.subscribe(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan string)
	go l.pump(ctx, conn, out)
	return out, nil
}

func (l *PgListener) subscribe(ctx context.Context) (notifyConn, error) {
	conn, err := l.dial(ctx)
	if err != nil {
		return nil, oops.Code("REGISTRATION_LISTEN_FAILED").Wrap(err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, oops.Code("REGISTRATION_LISTEN_FAILED").Wrap(err)
	}
	l.log.Info("registration.listen", "channel", l.channel)
	return conn, nil
}

func (l *PgListener) resubscribe(ctx context.Context) (notifyConn, error) {
	b := retry.WithCappedDuration(l.maxBackoff, retry.NewExponential(l.minBackoff))

	var conn notifyConn
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		c, err := l.subscribe(ctx)
		if err != nil {
			l.log.Warn("registration.listen.retry", "err", err)
			return retry.RetryableError(err)
		}
		conn = c
		return nil
	})
	return conn, err
}

func (l *PgListener) pump(ctx context.Context, conn notifyConn, out chan<- string) {
	defer close(out)
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			_ = conn.Close(context.Background())
			if ctx.Err() != nil {
				return
			}
			l.log.Warn("registration.listen.lost", "err", err)
			if conn, err = l.resubscribe(ctx); err != nil {
				return
			}
			continue
		}

		select {
		case out <- n.Payload:
		case <-ctx.Done():
			_ = conn.Close(context.Background())
			return
		}
	}
}
