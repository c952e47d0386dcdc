// Package store provides the persistence implementations of the match
// store: an in-memory store for tests and single-node development,
// and a Postgres store backed by pgx.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/gammonhub/gammon-server-go/internal/match"
)

// Memory is an in-memory match.Store. It enforces the same optimistic
// version check as the Postgres store so coordinator retry paths are
// exercised identically in tests.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]*match.Match
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{matches: make(map[string]*match.Match)}
}

func (s *Memory) Create(ctx context.Context, m *match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *Memory) Get(ctx context.Context, id string) (*match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, match.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *Memory) Update(ctx context.Context, m *match.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.matches[m.ID]
	if !ok {
		return match.ErrNotFound
	}
	if current.Version != m.Version {
		return match.ErrConflict
	}

	stored := m.Clone()
	stored.Version++
	s.matches[m.ID] = stored
	m.Version = stored.Version
	return nil
}

func (s *Memory) List(ctx context.Context, f match.Filter) ([]*match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*match.Match, 0)
	for _, m := range s.matches {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Variant != "" && m.Variant != f.Variant {
			continue
		}
		if f.MinStake > 0 && m.Stake < f.MinStake {
			continue
		}
		if f.MaxStake > 0 && m.Stake > f.MaxStake {
			continue
		}
		out = append(out, m.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Memory) ListUnsettled(ctx context.Context) ([]*match.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*match.Match, 0)
	for _, m := range s.matches {
		if m.Status == match.StatusCompleted && !m.Settled {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

func (s *Memory) MarkSettled(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return match.ErrNotFound
	}
	m.Settled = true
	return nil
}
