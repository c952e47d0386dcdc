package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/gammonhub/gammon-server-go/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PostgresStore persists users on the shared connection pool. New
// accounts start with a zero balance; the ledger owns balance changes
// from then on.
type PostgresStore struct {
	db *store.DB
}

// NewPostgresStore creates the Postgres-backed user store.
func NewPostgresStore(db *store.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *User, passwordHash string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, name, password_hash, balance, created_at)
		VALUES ($1, $2, $3, 0, $4)`,
		u.ID, u.Name, passwordHash, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByName(ctx context.Context, name string) (*User, string, error) {
	var (
		u    User
		hash string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, name, password_hash, created_at FROM users WHERE name = $1`,
		name).Scan(&u.ID, &u.Name, &hash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get user by name: %w", err)
	}
	return &u, hash, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM users WHERE id = $1`,
		id).Scan(&u.ID, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
