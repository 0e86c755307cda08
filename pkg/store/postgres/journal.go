package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpctl/tradeagent/pkg/models"
)

// JournalStore implements store.Journal against decision_artifacts.
type JournalStore struct {
	pool *pgxpool.Pool
}

func (s *JournalStore) Append(ctx context.Context, e *models.JournalEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO decision_artifacts (kind, created_at, payload_json) VALUES ($1, $2, $3)`,
		"journal", timeOrNow(e.CreatedAt), payload)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (s *JournalStore) Recent(ctx context.Context, limit int) ([]*models.JournalEntry, error) {
	return s.query(ctx,
		`SELECT payload_json FROM decision_artifacts WHERE kind = 'journal' ORDER BY created_at DESC LIMIT $1`, limit)
}

func (s *JournalStore) Today(ctx context.Context) ([]*models.JournalEntry, error) {
	return s.query(ctx,
		`SELECT payload_json FROM decision_artifacts WHERE kind = 'journal' AND created_at >= date_trunc('day', now() at time zone 'utc') ORDER BY created_at ASC`)
}

func (s *JournalStore) RecentClosesPnL(ctx context.Context, n int) ([]float64, error) {
	entries, err := s.Recent(ctx, 500)
	if err != nil {
		return nil, err
	}
	var out []float64
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		if entries[i].ContextPackTrace == nil {
			continue
		}
		if pnl, ok := entries[i].ContextPackTrace["close_pnl_usd"].(float64); ok {
			out = append(out, pnl)
		}
	}
	return out, nil
}

func (s *JournalStore) query(ctx context.Context, query string, args ...any) ([]*models.JournalEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []*models.JournalEntry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		var e models.JournalEntry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal journal entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
