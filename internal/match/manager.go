package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/board"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// joinRetries bounds how often Join re-runs after losing a store race.
const joinRetries = 3

// Manager drives the match lifecycle against the store: created in
// waiting by player 1, active once player 2 joins (the board is
// initialized at that point), cancellable from waiting by the creator
// only. Once active, only the session coordinator mutates a match.
type Manager struct {
	store  Store
	logger *zap.Logger
}

// NewManager creates a match manager.
func NewManager(store Store, logger *zap.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Create opens a new match in waiting status.
func (mgr *Manager) Create(ctx context.Context, player1 string, variant board.Variant, stake float64) (*Match, error) {
	if !variant.Valid() {
		return nil, ErrInvalidVariant
	}
	if stake < MinStake {
		return nil, ErrInvalidStake
	}

	m := &Match{
		ID:        uuid.NewString(),
		Variant:   variant,
		Stake:     stake,
		Player1:   player1,
		Status:    StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}

	if err := mgr.store.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	mgr.logger.Info("match created",
		zap.String("match_id", m.ID),
		zap.String("variant", string(m.Variant)),
		zap.Float64("stake", m.Stake),
		zap.String("player1", player1),
	)

	return m, nil
}

// Join seats player 2 into a waiting match and initializes the board.
// Store conflicts (two players racing for the same seat) are retried;
// the loser of the race sees ErrNotJoinable on reload.
func (mgr *Manager) Join(ctx context.Context, matchID, player2 string) (*Match, error) {
	for attempt := 0; attempt < joinRetries; attempt++ {
		m, err := mgr.store.Get(ctx, matchID)
		if err != nil {
			return nil, err
		}

		if m.Status != StatusWaiting {
			return nil, ErrNotJoinable
		}
		if m.Player1 == player2 {
			return nil, ErrOwnMatch
		}

		now := time.Now().UTC()
		m.Player2 = player2
		m.Status = StatusActive
		m.StartedAt = &now
		m.Board = board.New(m.Variant)

		err = mgr.store.Update(ctx, m)
		if err == nil {
			mgr.logger.Info("match joined",
				zap.String("match_id", m.ID),
				zap.String("player2", player2),
			)
			return m, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("join match: %w", err)
		}
	}

	return nil, ErrConflict
}

// Cancel withdraws a waiting match; only the creator may do so.
func (mgr *Manager) Cancel(ctx context.Context, matchID, actor string) (*Match, error) {
	m, err := mgr.store.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}

	if m.Player1 != actor {
		return nil, ErrNotCreator
	}
	if m.Status != StatusWaiting {
		return nil, ErrNotCancellable
	}

	m.Status = StatusCancelled
	if err := mgr.store.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("cancel match: %w", err)
	}

	mgr.logger.Info("match cancelled", zap.String("match_id", m.ID))
	return m, nil
}

// Get returns a match by ID.
func (mgr *Manager) Get(ctx context.Context, matchID string) (*Match, error) {
	return mgr.store.Get(ctx, matchID)
}

// List returns matches for the lobby; an empty filter status defaults
// to open (waiting) matches.
func (mgr *Manager) List(ctx context.Context, f Filter) ([]*Match, error) {
	if f.Status == "" {
		f.Status = StatusWaiting
	}
	return mgr.store.List(ctx, f)
}
