package identity

import (
	"context"
	"errors"
	"net/netip"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

// pgxQuerier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store over the users table.
// The pool is owned by the caller and never closed here.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(db pgxQuerier) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("identity: nil pool")
	}
	return &PostgresStore{db: db}, nil
}

// GetUserForLogin implements Store.
func (s *PostgresStore) GetUserForLogin(ctx context.Context, username string) (User, error) {
	const op = "identity.GetUserForLogin"

	if username == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "empty username"}
	}

	var u User
	err := s.db.QueryRow(ctx, `
		SELECT username, password, disabled
		FROM users
		WHERE lower(username) = lower($1)
	`, username).Scan(&u.Username, &u.PasswordHash, &u.Disabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, oops.Code("IDENTITY_LOOKUP_FAILED").With("username", username).Wrap(err)
	}
	return u, nil
}

// AppendKnownIP implements Store. Deduplication happens in SQL so two
// concurrent logins from the same address cannot both append it.
func (s *PostgresStore) AppendKnownIP(ctx context.Context, username string, ip netip.Addr) error {
	if !ip.IsValid() {
		return OpError{Op: "identity.AppendKnownIP", Kind: ErrInvalidInput, Msg: "invalid ip"}
	}

	_, err := s.db.Exec(ctx, `
		UPDATE users
		SET ips = ARRAY(SELECT DISTINCT unnest FROM unnest(array_append(ips, $2::inet)))
		WHERE username = $1
	`, username, ip)
	if err != nil {
		return oops.Code("IDENTITY_APPEND_IP_FAILED").With("username", username).Wrap(err)
	}
	return nil
}
