package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-memory ledger for tests and single-node development.
// It mirrors the Postgres implementation's contracts, including
// settlement idempotence per match.
type Memory struct {
	mu           sync.Mutex
	balances     map[string]float64
	transactions []Transaction
	settled      map[string]bool
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		balances: make(map[string]float64),
		settled:  make(map[string]bool),
	}
}

func (l *Memory) Credit(ctx context.Context, userID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	return nil
}

func (l *Memory) Debit(ctx context.Context, userID string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return ErrInsufficientFunds
	}
	l.balances[userID] -= amount
	return nil
}

func (l *Memory) RecordTransaction(ctx context.Context, userID string, kind Kind, amount float64, matchID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(userID, kind, amount, matchID)
	return nil
}

func (l *Memory) Balance(ctx context.Context, userID string) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *Memory) RecordSettlement(ctx context.Context, s Settlement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.settled[s.MatchID] {
		return nil
	}
	l.settled[s.MatchID] = true

	l.balances[s.WinnerID] += s.Payout
	l.record(s.WinnerID, KindGameWin, s.Payout, s.MatchID)
	l.record(s.LoserID, KindGameLoss, s.Stake, s.MatchID)
	return nil
}

// Transactions returns a copy of the transaction log, oldest first.
func (l *Memory) Transactions() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

func (l *Memory) record(userID string, kind Kind, amount float64, matchID string) {
	l.transactions = append(l.transactions, Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		MatchID:   matchID,
		CreatedAt: time.Now().UTC(),
	})
}
