package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/admin"
	"github.com/gammonhub/gammon-server-go/internal/board"
	"github.com/gammonhub/gammon-server-go/internal/ledger"
	"github.com/gammonhub/gammon-server-go/internal/match"
	"github.com/gammonhub/gammon-server-go/internal/settlement"
	"github.com/gammonhub/gammon-server-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		stake float64
		rate  float64
		want  settlement.Amounts
	}{
		{"five percent", 10, 5, settlement.Amounts{Pot: 20, Commission: 1, Payout: 19}},
		{"zero rate", 10, 0, settlement.Amounts{Pot: 20, Commission: 0, Payout: 20}},
		{"max rate", 100, 15, settlement.Amounts{Pot: 200, Commission: 30, Payout: 170}},
		{"rate above cap clamps", 10, 50, settlement.Amounts{Pot: 20, Commission: 3, Payout: 17}},
		{"negative rate clamps to zero", 10, -5, settlement.Amounts{Pot: 20, Commission: 0, Payout: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, settlement.Compute(tt.stake, tt.rate))
		})
	}
}

func completedMatch(id string) *match.Match {
	now := time.Now().UTC()
	return &match.Match{
		ID:          id,
		Variant:     board.VariantShort,
		Stake:       10,
		Player1:     "alice",
		Player2:     "bob",
		Status:      match.StatusCompleted,
		Winner:      "alice",
		CreatedAt:   now,
		CompletedAt: &now,
	}
}

func TestSettlePaysWinnerAndRecordsLedger(t *testing.T) {
	ctx := context.Background()
	matches := store.NewMemory()
	books := ledger.NewMemory()
	settings := admin.NewStatic(5)
	settler := settlement.NewSettler(matches, books, settings, zaptest.NewLogger(t))

	m := completedMatch("m1")
	require.NoError(t, matches.Create(ctx, m))

	require.NoError(t, settler.Settle(ctx, m))
	assert.True(t, m.Settled)

	balance, err := books.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 19.0, balance)

	txs := books.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.KindGameWin, txs[0].Kind)
	assert.Equal(t, 19.0, txs[0].Amount)
	assert.Equal(t, "alice", txs[0].UserID)
	assert.Equal(t, "m1", txs[0].MatchID)
	assert.Equal(t, ledger.KindGameLoss, txs[1].Kind)
	assert.Equal(t, 10.0, txs[1].Amount)
	assert.Equal(t, "bob", txs[1].UserID)
	assert.Equal(t, "m1", txs[1].MatchID)

	assert.Equal(t, 1.0, settings.TotalCommission())

	stored, err := matches.Get(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, stored.Settled)
}

func TestSettleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	matches := store.NewMemory()
	books := ledger.NewMemory()
	settler := settlement.NewSettler(matches, books, admin.NewStatic(5), zaptest.NewLogger(t))

	m := completedMatch("m1")
	require.NoError(t, matches.Create(ctx, m))

	require.NoError(t, settler.Settle(ctx, m))
	require.NoError(t, settler.Settle(ctx, m))

	// A fresh copy that missed the settled flag still cannot double-pay:
	// the ledger's per-match idempotency absorbs the duplicate.
	fresh := completedMatch("m1")
	require.NoError(t, settler.Settle(ctx, fresh))

	balance, err := books.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 19.0, balance)
	assert.Len(t, books.Transactions(), 2)
}

func TestSettleRejectsUnfinishedMatch(t *testing.T) {
	ctx := context.Background()
	settler := settlement.NewSettler(store.NewMemory(), ledger.NewMemory(), admin.NewStatic(5), zaptest.NewLogger(t))

	m := completedMatch("m1")
	m.Status = match.StatusActive
	m.Winner = ""
	assert.Error(t, settler.Settle(ctx, m))
}

func TestSettlePendingRecoversUnsettled(t *testing.T) {
	ctx := context.Background()
	matches := store.NewMemory()
	books := ledger.NewMemory()
	settler := settlement.NewSettler(matches, books, admin.NewStatic(5), zaptest.NewLogger(t))

	// A completed match whose settlement never ran, as after a crash.
	m := completedMatch("m1")
	require.NoError(t, matches.Create(ctx, m))

	// And one that is already settled.
	done := completedMatch("m2")
	done.Settled = true
	require.NoError(t, matches.Create(ctx, done))

	require.NoError(t, settler.SettlePending(ctx))

	balance, err := books.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 19.0, balance)

	unsettled, err := matches.ListUnsettled(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsettled)
}
