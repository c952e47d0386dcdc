// Package admin exposes the externally-owned match commission
// settings. The rate is fetched per settlement call rather than held
// as a process-wide mutable value.
package admin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammonhub/gammon-server-go/internal/store"
)

// MaxCommissionRate caps the commission percentage.
const MaxCommissionRate = 15.0

// ClampRate forces a rate into the allowed [0, MaxCommissionRate]
// percentage range.
func ClampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > MaxCommissionRate {
		return MaxCommissionRate
	}
	return rate
}

// Service provides the commission configuration and accrues the
// running commission total.
type Service interface {
	CommissionRate(ctx context.Context) (float64, error)
	AccrueCommission(ctx context.Context, amount float64) error
}

// Static is a fixed-rate Service for tests and database-less runs.
type Static struct {
	mu    sync.Mutex
	rate  float64
	total float64
}

// NewStatic creates a static commission provider.
func NewStatic(rate float64) *Static {
	return &Static{rate: ClampRate(rate)}
}

func (s *Static) CommissionRate(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate, nil
}

func (s *Static) AccrueCommission(ctx context.Context, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total += amount
	return nil
}

// TotalCommission returns the accrued commission sum.
func (s *Static) TotalCommission() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Postgres reads and updates the single admin_settings row.
type Postgres struct {
	db *store.DB
}

// NewPostgres creates the Postgres-backed settings service.
func NewPostgres(db *store.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) CommissionRate(ctx context.Context) (float64, error) {
	var rate float64
	err := p.db.QueryRow(ctx,
		`SELECT commission_rate FROM admin_settings WHERE id = 1`).Scan(&rate)
	if err != nil {
		return 0, fmt.Errorf("get commission rate: %w", err)
	}
	return ClampRate(rate), nil
}

func (p *Postgres) AccrueCommission(ctx context.Context, amount float64) error {
	_, err := p.db.Exec(ctx, `
		UPDATE admin_settings
		SET total_commission = total_commission + $1, updated_at = $2
		WHERE id = 1`,
		amount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("accrue commission: %w", err)
	}
	return nil
}

// SetCommissionRate updates the configured rate, clamped to range.
func (p *Postgres) SetCommissionRate(ctx context.Context, rate float64) error {
	_, err := p.db.Exec(ctx, `
		UPDATE admin_settings
		SET commission_rate = $1, updated_at = $2
		WHERE id = 1`,
		ClampRate(rate), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set commission rate: %w", err)
	}
	return nil
}
