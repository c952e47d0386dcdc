// Package ledger records balance movements and the transaction log.
// Settlement of a match is a single atomic, idempotent operation keyed
// by the match ID, so a crashed or repeated settlement never pays out
// twice.
package ledger

import (
	"context"
	"errors"
	"time"
)

// Kind classifies a ledger transaction.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdraw   Kind = "withdraw"
	KindGameWin    Kind = "game_win"
	KindGameLoss   Kind = "game_loss"
	KindCommission Kind = "commission"
)

var (
	// ErrInsufficientFunds is returned by Debit when the balance
	// cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrUserNotFound is returned when no account exists for an ID.
	ErrUserNotFound = errors.New("user not found")
)

// Transaction is one recorded ledger entry.
type Transaction struct {
	ID        string
	UserID    string
	Kind      Kind
	Amount    float64
	MatchID   string
	CreatedAt time.Time
}

// Settlement describes the outcome of one completed match.
type Settlement struct {
	MatchID  string
	WinnerID string
	LoserID  string
	Payout   float64
	Stake    float64
}

// Service is the ledger consumed by settlement and the lobby.
type Service interface {
	Credit(ctx context.Context, userID string, amount float64) error
	Debit(ctx context.Context, userID string, amount float64) error
	RecordTransaction(ctx context.Context, userID string, kind Kind, amount float64, matchID string) error
	Balance(ctx context.Context, userID string) (float64, error)

	// RecordSettlement atomically credits the winner's payout and
	// writes the game_win/game_loss pair for the match. Calling it
	// again for the same match is a no-op.
	RecordSettlement(ctx context.Context, s Settlement) error
}
