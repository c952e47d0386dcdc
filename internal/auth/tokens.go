package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const cleanupInterval = time.Minute

type tokenEntry struct {
	user      User
	expiresAt time.Time
}

// TokenStore holds opaque bearer tokens in memory. Tokens expire
// after the configured TTL and are swept by Cleanup.
type TokenStore struct {
	mu     sync.RWMutex
	ttl    time.Duration
	tokens map[string]tokenEntry
}

// NewTokenStore creates a token store with the given TTL.
func NewTokenStore(ttl time.Duration) *TokenStore {
	return &TokenStore{
		ttl:    ttl,
		tokens: make(map[string]tokenEntry),
	}
}

// Issue mints a fresh token for the user.
func (s *TokenStore) Issue(u *User) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = tokenEntry{
		user:      *u,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token
}

// Resolve returns the user the token was issued to, if it is still
// valid.
func (s *TokenStore) Resolve(token string) (*User, bool) {
	s.mu.RLock()
	entry, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	u := entry.user
	return &u, true
}

// Revoke drops a token.
func (s *TokenStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Cleanup removes expired tokens until the context is cancelled.
func (s *TokenStore) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *TokenStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, entry := range s.tokens {
		if now.After(entry.expiresAt) {
			delete(s.tokens, token)
		}
	}
}
