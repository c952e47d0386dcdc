package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Postgres implements Service on the shared connection pool. The
// settlement path relies on the unique (match_id, kind) index on
// transactions: the game_win insert doubles as the idempotency check.
type Postgres struct {
	db *store.DB
}

// NewPostgres creates the Postgres-backed ledger.
func NewPostgres(db *store.DB) *Postgres {
	return &Postgres{db: db}
}

func (l *Postgres) Credit(ctx context.Context, userID string, amount float64) error {
	tag, err := l.db.Exec(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("credit user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (l *Postgres) Debit(ctx context.Context, userID string, amount float64) error {
	tag, err := l.db.Exec(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id = $1 AND balance >= $2`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("debit user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if checkErr := l.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("debit user: %w", checkErr)
		}
		if !exists {
			return ErrUserNotFound
		}
		return ErrInsufficientFunds
	}
	return nil
}

func (l *Postgres) RecordTransaction(ctx context.Context, userID string, kind Kind, amount float64, matchID string) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, match_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)`,
		uuid.NewString(), userID, kind, amount, matchID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return nil
}

func (l *Postgres) Balance(ctx context.Context, userID string) (float64, error) {
	var balance float64
	err := l.db.QueryRow(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (l *Postgres) RecordSettlement(ctx context.Context, s Settlement) error {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	// The unique (match_id, kind) index makes this insert the
	// idempotency gate: a second settlement of the same match hits
	// the conflict, returns no row, and leaves the ledger untouched.
	var winTxID string
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, match_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id, kind) WHERE match_id IS NOT NULL DO NOTHING
		RETURNING id`,
		uuid.NewString(), s.WinnerID, KindGameWin, s.Payout, s.MatchID, now,
	).Scan(&winTxID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("record win: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, user_id, kind, amount, match_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), s.LoserID, KindGameLoss, s.Stake, s.MatchID, now,
	); err != nil {
		return fmt.Errorf("record loss: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id = $1`,
		s.WinnerID, s.Payout,
	); err != nil {
		return fmt.Errorf("credit winner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit settlement: %w", err)
	}
	return nil
}
