package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"gatehouse/cmd/identity"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

type pgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore moves rows from pending_registrations into users.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool pgxPool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrInvalidInput
	}
	return &PostgresStore{pool: pool}, nil
}

// Complete implements Store.
func (s *PostgresStore) Complete(ctx context.Context, username string) (err error) {
	if strings.TrimSpace(username) == "" {
		return ErrInvalidInput
	}
	errb := oops.Code("REGISTRATION_COMPLETE_FAILED").With("username", username)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errb.Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var succeeded bool
	err = tx.QueryRow(ctx, `
		SELECT succeeded
		FROM pending_registrations
		WHERE username = $1
		FOR UPDATE
	`, username).Scan(&succeeded)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPendingNotFound
	}
	if err != nil {
		return errb.Wrap(err)
	}
	if !succeeded {
		return ErrNotSucceeded
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO users (username, password, ips, disabled)
		SELECT username, password, ips, FALSE
		FROM pending_registrations
		WHERE username = $1
	`, username)
	if err != nil {
		if field, ok := identity.ClassifyUniqueViolation(err); ok && field == "username" {
			return ErrAlreadyRegistered
		}
		return errb.Wrap(err)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM pending_registrations WHERE username = $1`, username); err != nil {
		return errb.Wrap(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return errb.Wrap(err)
	}
	return nil
}

// DeleteExpired implements Store.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pending_registrations WHERE expires < $1`, now)
	if err != nil {
		return 0, oops.Code("REGISTRATION_SWEEP_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
