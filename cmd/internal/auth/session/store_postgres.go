package session

import (
	"context"
	"errors"
	"time"

	"gatehouse/cmd/identity"
	"gatehouse/cmd/internal/auth/watermark"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// pgxPool is satisfied by *pgxpool.Pool and pgxmock.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over the sessions table.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindByTokenHash implements Store.
func (s *PostgresStore) FindByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	row := Session{TokenHash: tokenHash}
	err := s.pool.QueryRow(ctx, `
		SELECT username, expires, uuid
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash).Scan(&row.Username, &row.Expires, &row.UUID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, oops.Code("SESSION_FIND_FAILED").Wrap(err)
	}
	return row, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, sess Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, username, expires, uuid)
		VALUES ($1, $2, $3, $4)
	`, sess.TokenHash, sess.Username, sess.Expires, sess.UUID)
	if err != nil {
		if field, ok := identity.ClassifyUniqueViolation(err); ok && field == "token" {
			return ErrConflict
		}
		return oops.Code("SESSION_CREATE_FAILED").With("username", sess.Username).Wrap(err)
	}
	return nil
}

// DeleteByTokenHash implements Store.
func (s *PostgresStore) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired implements Store.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires < $1`, now)
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// EvictExcess implements Store.
func (s *PostgresStore) EvictExcess(ctx context.Context, username string, limit int, now time.Time) (int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT expires
		FROM sessions
		WHERE username = $1
		ORDER BY expires DESC
	`, username)
	if err != nil {
		return 0, oops.Code("SESSION_EVICT_FAILED").With("username", username).Wrap(err)
	}
	expiries, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return 0, oops.Code("SESSION_EVICT_FAILED").With("username", username).Wrap(err)
	}

	cutoff, ok := watermark.Cutoff(expiries, limit, now)
	if !ok {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM sessions
		WHERE username = $1 AND expires < $2
	`, username, cutoff)
	if err != nil {
		return 0, oops.Code("SESSION_EVICT_FAILED").With("username", username).Wrap(err)
	}
	return tag.RowsAffected(), nil
}
