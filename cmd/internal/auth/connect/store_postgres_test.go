package connect

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresStore(mock), mock
}

func TestPostgresStore_FindByTokenHash(t *testing.T) {
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	hash := make([]byte, ServerHashLen)
	ip := "203.0.113.7"

	t.Run("with ip", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT username, serverhash, host\(ip\), expires`).
			WithArgs("h1").
			WillReturnRows(pgxmock.NewRows([]string{"username", "serverhash", "host", "expires"}).
				AddRow("alice", hash, &ip, exp))

		got, err := st.FindByTokenHash(context.Background(), "h1")
		require.NoError(t, err)
		assert.Equal(t, Request{TokenHash: "h1", Username: "alice", ServerHash: hash, IP: netip.MustParseAddr(ip), Expires: exp}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null ip", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT username, serverhash, host\(ip\), expires`).
			WithArgs("h1").
			WillReturnRows(pgxmock.NewRows([]string{"username", "serverhash", "host", "expires"}).
				AddRow("alice", hash, (*string)(nil), exp))

		got, err := st.FindByTokenHash(context.Background(), "h1")
		require.NoError(t, err)
		assert.False(t, got.IP.IsValid())
	})

	t.Run("missing", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT username, serverhash`).
			WithArgs("h1").
			WillReturnError(pgx.ErrNoRows)

		_, err := st.FindByTokenHash(context.Background(), "h1")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresStore_Create(t *testing.T) {
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	hash := make([]byte, ServerHashLen)
	ip := netip.MustParseAddr("2001:db8::1")

	t.Run("valid ip is bound", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO connecting`).
			WithArgs("h1", "alice", hash, ip, exp).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, st.Create(context.Background(), Request{TokenHash: "h1", Username: "alice", ServerHash: hash, IP: ip, Expires: exp}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero ip stored as null", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO connecting`).
			WithArgs("h1", "alice", hash, nil, exp).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, st.Create(context.Background(), Request{TokenHash: "h1", Username: "alice", ServerHash: hash, Expires: exp}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("token collision", func(t *testing.T) {
		st, mock := newMockStore(t)
		mock.ExpectExec(`INSERT INTO connecting`).
			WithArgs("h1", "alice", hash, nil, exp).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "connecting_pkey"})

		err := st.Create(context.Background(), Request{TokenHash: "h1", Username: "alice", ServerHash: hash, Expires: exp})
		require.ErrorIs(t, err, ErrConflict)
	})
}

func TestPostgresStore_EvictExcess(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	st, mock := newMockStore(t)

	// Boundary already expired: cutoff is raised to now.
	mock.ExpectQuery(`SELECT expires`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"expires"}).
			AddRow(now.Add(time.Minute)).AddRow(now.Add(-time.Minute)).AddRow(now.Add(-2 * time.Minute)))
	mock.ExpectExec(`DELETE FROM connecting`).
		WithArgs("alice", now).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := st.EvictExcess(context.Background(), "alice", 2, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredAndByToken(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	st, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM connecting WHERE expires <`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM connecting WHERE token_hash`).
		WithArgs("h1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	n, err := st.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = st.DeleteByTokenHash(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
