package auth

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory Store used by tests and database-less
// runs.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*User
	byName map[string]*User
	hashes map[string]string
}

// NewMemoryStore creates an empty in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*User),
		byName: make(map[string]*User),
		hashes: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, u *User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[u.Name]; ok {
		return ErrUserExists
	}
	clone := *u
	s.byID[u.ID] = &clone
	s.byName[u.Name] = &clone
	s.hashes[u.ID] = passwordHash
	return nil
}

func (s *MemoryStore) GetByName(ctx context.Context, name string) (*User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byName[name]
	if !ok {
		return nil, "", ErrUserNotFound
	}
	clone := *u
	return &clone, s.hashes[u.ID], nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}
