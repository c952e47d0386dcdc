// Package auth is the identity service: account registration with
// bcrypt password hashes and opaque bearer tokens that every session
// channel event is resolved through.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("username already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// User is a registered account identity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists user accounts.
type Store interface {
	Create(ctx context.Context, u *User, passwordHash string) error
	GetByName(ctx context.Context, name string) (*User, string, error)
	Get(ctx context.Context, id string) (*User, error)
}

// Manager handles registration, login, and bearer token resolution.
type Manager struct {
	store  Store
	tokens *TokenStore
	logger *zap.Logger
}

// NewManager creates an identity manager issuing tokens with the
// given TTL.
func NewManager(store Store, tokenTTL time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		tokens: NewTokenStore(tokenTTL),
		logger: logger,
	}
}

// Register creates a new account.
func (m *Manager) Register(ctx context.Context, name, password string) (*User, error) {
	if name == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.Create(ctx, u, string(hash)); err != nil {
		return nil, err
	}

	m.logger.Info("user registered", zap.String("user_id", u.ID), zap.String("name", name))
	return u, nil
}

// Login verifies credentials and issues a bearer token.
func (m *Manager) Login(ctx context.Context, name, password string) (string, *User, error) {
	u, hash, err := m.store.GetByName(ctx, name)
	if errors.Is(err, ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		m.logger.Warn("login failed", zap.String("name", name))
		return "", nil, ErrInvalidCredentials
	}

	token := m.tokens.Issue(u)
	m.logger.Info("user logged in", zap.String("user_id", u.ID), zap.String("name", name))
	return token, u, nil
}

// Resolve maps a bearer token to its user identity.
func (m *Manager) Resolve(token string) (*User, error) {
	u, ok := m.tokens.Resolve(token)
	if !ok {
		return nil, ErrInvalidToken
	}
	return u, nil
}

// Revoke invalidates a bearer token.
func (m *Manager) Revoke(token string) {
	m.tokens.Revoke(token)
}

// CleanupExpiredTokens drops expired tokens until the context is
// cancelled. Run as a goroutine from main.
func (m *Manager) CleanupExpiredTokens(ctx context.Context) {
	m.tokens.Cleanup(ctx)
}
