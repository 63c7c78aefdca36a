package identity

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, a Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (uid, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
		a.UID, a.Email, a.PasswordHash, a.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailInUse
	}
	return err
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&a.UID, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrUserNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

type MemoryUserStore struct {
	mu       sync.Mutex
	accounts map[string]Account
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{accounts: make(map[string]Account)}
}

func (s *MemoryUserStore) Create(ctx context.Context, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Email]; ok {
		return ErrEmailInUse
	}
	s.accounts[a.Email] = a
	return nil
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return a, nil
}
