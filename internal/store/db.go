package store

import (
	"context"
	"fmt"

	"github.com/gammonhub/gammon-server-go/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB wraps the shared pgx connection pool used by the match store,
// ledger and admin settings.
type DB struct {
	*pgxpool.Pool
}

// NewDB connects to Postgres and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected", zap.Int32("max_conns", poolCfg.MaxConns))

	return &DB{Pool: pool}, nil
}

// migrations is the idempotent schema for all server tables.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		balance DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id UUID PRIMARY KEY,
		variant TEXT NOT NULL,
		stake DOUBLE PRECISION NOT NULL,
		player1 UUID NOT NULL,
		player2 UUID,
		status TEXT NOT NULL,
		winner UUID,
		settled BOOLEAN NOT NULL DEFAULT FALSE,
		board JSONB NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches (status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_unsettled ON matches (settled) WHERE status = 'completed'`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		kind TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		match_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_settlement
		ON transactions (match_id, kind) WHERE match_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS admin_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		commission_rate DOUBLE PRECISION NOT NULL DEFAULT 5,
		total_commission DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`INSERT INTO admin_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
}

// Migrate applies the schema. Safe to run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
