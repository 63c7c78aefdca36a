package identity

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

const (
	insertUserSQL = `INSERT INTO users (uid, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	selectUserSQL = `SELECT uid, email, password_hash, created_at FROM users WHERE email = $1`
)

func TestPostgresUserStore_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresUserStore(db)
	now := time.Now()
	a := Account{UID: "u1", Email: "a@b.co", PasswordHash: "hash", CreatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WithArgs(a.UID, a.Email, a.PasswordHash, a.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Create(context.Background(), a))

	mock.ExpectExec(regexp.QuoteMeta(insertUserSQL)).
		WithArgs(a.UID, a.Email, a.PasswordHash, a.CreatedAt).
		WillReturnError(&pq.Error{Code: "23505"})
	require.ErrorIs(t, store.Create(context.Background(), a), ErrEmailInUse)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresUserStore(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(selectUserSQL)).
		WithArgs("a@b.co").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "email", "password_hash", "created_at"}).
			AddRow("u1", "a@b.co", "hash", now))

	a, err := store.FindByEmail(context.Background(), "a@b.co")
	require.NoError(t, err)
	require.Equal(t, "u1", a.UID)
	require.Equal(t, "hash", a.PasswordHash)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserSQL)).
		WithArgs("missing@b.co").
		WillReturnError(sql.ErrNoRows)

	_, err = store.FindByEmail(context.Background(), "missing@b.co")
	require.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
