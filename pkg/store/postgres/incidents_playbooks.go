package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpctl/tradeagent/pkg/models"
)

// IncidentStore implements store.Incidents against incident_records.
type IncidentStore struct {
	pool *pgxpool.Pool
}

func (s *IncidentStore) Record(ctx context.Context, rec *models.IncidentRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO incident_records (tool_name, blocker_kind, detail, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ToolName, rec.BlockerKind, rec.Detail, timeOrNow(rec.CreatedAt))
	return err
}

func (s *IncidentStore) FirstOccurrence(ctx context.Context, toolName, blockerKind string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM incident_records WHERE tool_name = $1 AND blocker_kind = $2`,
		toolName, blockerKind).Scan(&count)
	return count == 0, err
}

func (s *IncidentStore) Top(ctx context.Context, limit int) ([]*models.IncidentRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tool_name, blocker_kind, detail, created_at FROM incident_records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.IncidentRecord
	for rows.Next() {
		var r models.IncidentRecord
		if err := rows.Scan(&r.ToolName, &r.BlockerKind, &r.Detail, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// PlaybookStore implements store.Playbooks against playbooks.
type PlaybookStore struct {
	pool *pgxpool.Pool
}

func (s *PlaybookStore) Seed(ctx context.Context, p *models.Playbook) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO playbooks (key, title, content, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO NOTHING`,
		p.Key, p.Title, p.Content)
	return err
}

func (s *PlaybookStore) Get(ctx context.Context, key string) (*models.Playbook, bool, error) {
	var p models.Playbook
	err := s.pool.QueryRow(ctx,
		`SELECT key, title, content, updated_at FROM playbooks WHERE key = $1`, key).
	Scan(&p.Key, &p.Title, &p.Content, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get playbook %q: %w", key, err)
	}
	return &p, true, nil
}

func (s *PlaybookStore) MatchingTop(ctx context.Context, goal string, limit int) ([]*models.Playbook, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, title, content, updated_at FROM playbooks WHERE $1 ILIKE '%' || key || '%' ORDER BY updated_at DESC LIMIT $2`,
		goal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Playbook
	for rows.Next() {
		var p models.Playbook
		if err := rows.Scan(&p.Key, &p.Title, &p.Content, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
