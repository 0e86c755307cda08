package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SpendingStore implements store.SpendingLimiter against spending_state
// (one row per active reservation plus a running daily_spent_usd counter
// keyed by UTC date), reclaimed lazily the same way the in-memory store
// does.
type SpendingStore struct {
	pool *pgxpool.Pool
}

func (s *SpendingStore) CheckAndReserve(ctx context.Context, amountUsd float64, ttl time.Duration) (string, bool, float64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", false, 0, fmt.Errorf("begin spending tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM spending_reservations WHERE expires_at < now()`); err != nil {
		return "", false, 0, fmt.Errorf("reclaim expired reservations: %w", err)
	}

	budget, spent, reserved, err := s.budgetTotalsLocked(ctx, tx)
	if err != nil {
		return "", false, 0, err
	}
	remaining := budget - spent - reserved
	if amountUsd > remaining {
		return "", false, remaining, tx.Commit(ctx)
	}

	id := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO spending_reservations (id, amount_usd, expires_at) VALUES ($1, $2, $3)`,
		id, amountUsd, time.Now().Add(ttl)); err != nil {
		return "", false, 0, fmt.Errorf("insert reservation: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", false, 0, err
	}
	return id, true, remaining - amountUsd, nil
}

func (s *SpendingStore) budgetTotalsLocked(ctx context.Context, tx pgxQuerier) (budget, spent, reserved float64, err error) {
	err = tx.QueryRow(ctx, `SELECT coalesce(daily_budget_usd, 0) FROM spending_state WHERE day = current_date`).Scan(&budget)
	if err != nil {
		budget = 0
	}
	if budget <= 0 {
		budget = 1e9
	}
	_ = tx.QueryRow(ctx, `SELECT coalesce(spent_usd, 0) FROM spending_state WHERE day = current_date`).Scan(&spent)
	_ = tx.QueryRow(ctx, `SELECT coalesce(sum(amount_usd), 0) FROM spending_reservations`).Scan(&reserved)
	return budget, spent, reserved, nil
}

func (s *SpendingStore) Confirm(ctx context.Context, reservationID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var amount float64
	if err := tx.QueryRow(ctx, `DELETE FROM spending_reservations WHERE id = $1 RETURNING amount_usd`, reservationID).Scan(&amount); err != nil {
		return nil // already released/reclaimed
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO spending_state (day, spent_usd, daily_budget_usd) VALUES (current_date, $1, 0)
		ON CONFLICT (day) DO UPDATE SET spent_usd = spending_state.spent_usd + excluded.spent_usd`, amount); err != nil {
		return fmt.Errorf("credit spend: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *SpendingStore) Release(ctx context.Context, reservationID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM spending_reservations WHERE id = $1`, reservationID)
	return err
}

func (s *SpendingStore) RemainingToday(ctx context.Context) (float64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)
	budget, spent, reserved, err := s.budgetTotalsLocked(ctx, tx)
	if err != nil {
		return 0, err
	}
	return budget - spent - reserved, nil
}
