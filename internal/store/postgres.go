package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gammonhub/gammon-server-go/internal/board"
	"github.com/gammonhub/gammon-server-go/internal/match"
	"github.com/jackc/pgx/v5"
)

// Postgres implements match.Store on the shared pgx pool. The board
// state is stored as a JSONB document; Update performs a version
// compare-and-set so concurrent writers lose with match.ErrConflict
// instead of clobbering each other.
type Postgres struct {
	db *DB
}

// NewPostgres creates the Postgres-backed match store.
func NewPostgres(db *DB) *Postgres {
	return &Postgres{db: db}
}

const matchColumns = `id, variant, stake, player1, player2, status, winner,
	settled, board, version, created_at, started_at, completed_at`

func (s *Postgres) Create(ctx context.Context, m *match.Match) error {
	boardJSON, err := json.Marshal(m.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13)`,
		m.ID, m.Variant, m.Stake, m.Player1, m.Player2, m.Status, m.Winner,
		m.Settled, boardJSON, m.Version, m.CreatedAt, m.StartedAt, m.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, id string) (*match.Match, error) {
	row := s.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)

	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, match.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (s *Postgres) Update(ctx context.Context, m *match.Match) error {
	boardJSON, err := json.Marshal(m.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}

	var newVersion int
	err = s.db.QueryRow(ctx, `
		UPDATE matches
		SET player2 = NULLIF($2, ''), status = $3, winner = NULLIF($4, ''),
			settled = $5, board = $6, version = version + 1,
			started_at = $7, completed_at = $8
		WHERE id = $1 AND version = $9
		RETURNING version`,
		m.ID, m.Player2, m.Status, m.Winner, m.Settled, boardJSON,
		m.StartedAt, m.CompletedAt, m.Version,
	).Scan(&newVersion)

	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a lost race from a missing row.
		var exists bool
		if checkErr := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, m.ID,
		).Scan(&exists); checkErr != nil {
			return fmt.Errorf("update match: %w", checkErr)
		}
		if !exists {
			return match.ErrNotFound
		}
		return match.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	m.Version = newVersion
	return nil
}

func (s *Postgres) List(ctx context.Context, f match.Filter) ([]*match.Match, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Variant != "" {
		add("variant = $%d", f.Variant)
	}
	if f.MinStake > 0 {
		add("stake >= $%d", f.MinStake)
	}
	if f.MaxStake > 0 {
		add("stake <= $%d", f.MaxStake)
	}

	query := `SELECT ` + matchColumns + ` FROM matches`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

func (s *Postgres) ListUnsettled(ctx context.Context) ([]*match.Match, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE status = $1 AND settled = FALSE`,
		match.StatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("list unsettled matches: %w", err)
	}
	defer rows.Close()

	return collectMatches(rows)
}

func (s *Postgres) MarkSettled(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `UPDATE matches SET settled = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark match settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return match.ErrNotFound
	}
	return nil
}

func collectMatches(rows pgx.Rows) ([]*match.Match, error) {
	out := make([]*match.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (*match.Match, error) {
	var (
		m         match.Match
		player2   *string
		winner    *string
		boardJSON []byte
	)

	err := row.Scan(&m.ID, &m.Variant, &m.Stake, &m.Player1, &player2,
		&m.Status, &winner, &m.Settled, &boardJSON, &m.Version,
		&m.CreatedAt, &m.StartedAt, &m.CompletedAt)
	if err != nil {
		return nil, err
	}

	if player2 != nil {
		m.Player2 = *player2
	}
	if winner != nil {
		m.Winner = *winner
	}

	var state board.State
	if err := json.Unmarshal(boardJSON, &state); err != nil {
		return nil, fmt.Errorf("unmarshal board: %w", err)
	}
	m.Board = state

	return &m, nil
}
