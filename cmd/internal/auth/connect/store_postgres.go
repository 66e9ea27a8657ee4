package connect

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

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over the connecting table.
type PostgresStore struct {
	pool pgxPool
}

// NewPostgresStore creates a Postgres-backed connect-request store.
func NewPostgresStore(pool pgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindByTokenHash implements Store.
func (s *PostgresStore) FindByTokenHash(ctx context.Context, tokenHash string) (Request, error) {
	r := Request{TokenHash: tokenHash}
	var ip *string
	err := s.pool.QueryRow(ctx, `
		SELECT username, serverhash, host(ip), expires
		FROM connecting
		WHERE token_hash = $1
	`, tokenHash).Scan(&r.Username, &r.ServerHash, &ip, &r.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, oops.Code("CONNECT_FIND_FAILED").Wrap(err)
	}
	if ip != nil {
		r.IP, _ = identity.NormalizeIP(*ip)
	}
	return r, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, r Request) error {
	var ip any
	if r.IP.IsValid() {
		ip = r.IP
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO connecting (token_hash, username, serverhash, ip, expires)
		VALUES ($1, $2, $3, $4, $5)
	`, r.TokenHash, r.Username, r.ServerHash, ip, r.Expires)
	if err != nil {
		if field, ok := identity.ClassifyUniqueViolation(err); ok && field == "token" {
			return ErrConflict
		}
		return oops.Code("CONNECT_CREATE_FAILED").With("username", r.Username).Wrap(err)
	}
	return nil
}

// DeleteByTokenHash implements Store.
func (s *PostgresStore) DeleteByTokenHash(ctx context.Context, tokenHash string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM connecting WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return 0, oops.Code("CONNECT_DELETE_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired implements Store.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM connecting WHERE expires < $1`, now)
	if err != nil {
		return 0, oops.Code("CONNECT_SWEEP_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// EvictExcess implements Store.
func (s *PostgresStore) EvictExcess(ctx context.Context, username string, limit int, now time.Time) (int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT expires
		FROM connecting
		WHERE username = $1
		ORDER BY expires DESC
	`, username)
	if err != nil {
		return 0, oops.Code("CONNECT_EVICT_FAILED").With("username", username).Wrap(err)
	}
	expiries, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return 0, oops.Code("CONNECT_EVICT_FAILED").With("username", username).Wrap(err)
	}

	cutoff, ok := watermark.Cutoff(expiries, limit, now)
	if !ok {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM connecting
		WHERE username = $1 AND expires < $2
	`, username, cutoff)
	if err != nil {
		return 0, oops.Code("CONNECT_EVICT_FAILED").With("username", username).Wrap(err)
	}
	return tag.RowsAffected(), nil
}
