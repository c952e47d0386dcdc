// Package settlement pays out the wager pot once a match completes.
// A match is settled at most once: the ledger's per-match idempotency
// and the store's settled flag together survive crashes between the
// two writes, with the recovery sweep retrying anything left behind.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/admin"
	"github.com/gammonhub/gammon-server-go/internal/ledger"
	"github.com/gammonhub/gammon-server-go/internal/match"
	"go.uber.org/zap"
)

// Amounts is the commission-adjusted split of a match pot.
type Amounts struct {
	Pot        float64
	Commission float64
	Payout     float64
}

// Compute derives the pot split for a stake at the given commission
// percentage.
func Compute(stake, ratePercent float64) Amounts {
	pot := stake * 2
	commission := pot * admin.ClampRate(ratePercent) / 100
	return Amounts{
		Pot:        pot,
		Commission: commission,
		Payout:     pot - commission,
	}
}

// Settler settles completed matches against the ledger.
type Settler struct {
	store  match.Store
	ledger ledger.Service
	admin  admin.Service
	logger *zap.Logger
}

// NewSettler creates a settler.
func NewSettler(store match.Store, ledgerSvc ledger.Service, adminSvc admin.Service, logger *zap.Logger) *Settler {
	return &Settler{
		store:  store,
		ledger: ledgerSvc,
		admin:  adminSvc,
		logger: logger,
	}
}

// Settle pays out one completed match. The commission rate is read
// from the admin service per call. Safe to call repeatedly: an
// already-settled match returns immediately and the ledger write is
// idempotent per match ID.
func (s *Settler) Settle(ctx context.Context, m *match.Match) error {
	if m.Status != match.StatusCompleted || m.Winner == "" {
		return fmt.Errorf("match %s is not completed", m.ID)
	}
	if m.Settled {
		return nil
	}

	rate, err := s.admin.CommissionRate(ctx)
	if err != nil {
		return fmt.Errorf("read commission rate: %w", err)
	}

	amounts := Compute(m.Stake, rate)
	loser := m.Opponent(m.Winner)

	if err := s.ledger.RecordSettlement(ctx, ledger.Settlement{
		MatchID:  m.ID,
		WinnerID: m.Winner,
		LoserID:  loser,
		Payout:   amounts.Payout,
		Stake:    m.Stake,
	}); err != nil {
		return fmt.Errorf("record settlement: %w", err)
	}

	if err := s.admin.AccrueCommission(ctx, amounts.Commission); err != nil {
		// The payout is already recorded; commission accrual is
		// reporting only, so log and continue.
		s.logger.Warn("failed to accrue commission",
			zap.String("match_id", m.ID),
			zap.Error(err),
		)
	}

	if err := s.store.MarkSettled(ctx, m.ID); err != nil {
		return fmt.Errorf("mark settled: %w", err)
	}
	m.Settled = true

	s.logger.Info("match settled",
		zap.String("match_id", m.ID),
		zap.String("winner", m.Winner),
		zap.Float64("pot", amounts.Pot),
		zap.Float64("commission", amounts.Commission),
		zap.Float64("payout", amounts.Payout),
	)

	return nil
}

// SettlePending retries settlement for every completed-but-unsettled
// match. Called once on startup and periodically by Run.
func (s *Settler) SettlePending(ctx context.Context) error {
	pending, err := s.store.ListUnsettled(ctx)
	if err != nil {
		return fmt.Errorf("list unsettled matches: %w", err)
	}

	for _, m := range pending {
		if err := s.Settle(ctx, m); err != nil {
			s.logger.Error("settlement retry failed",
				zap.String("match_id", m.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Run sweeps for unsettled matches until the context is cancelled.
func (s *Settler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SettlePending(ctx); err != nil {
				s.logger.Error("settlement sweep failed", zap.Error(err))
			}
		}
	}
}
