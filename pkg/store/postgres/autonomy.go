package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpctl/tradeagent/pkg/models"
)

// PolicyStore implements store.AutonomyPolicyStore against
// autonomy_policy_state, a single-row table (row id always 1). Mutate
// takes the row lock with SELECT ... FOR UPDATE inside a transaction so
// load-apply-write is atomic across concurrent owners.
type PolicyStore struct {
	pool *pgxpool.Pool
}

func (s *PolicyStore) Get(ctx context.Context) (*models.AutonomyPolicyState, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload_json FROM autonomy_policy_state WHERE id = 1`).Scan(&payload)
	if err != nil {
		return models.NewAutonomyPolicyState(), nil
	}
	var st models.AutonomyPolicyState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("unmarshal autonomy policy state: %w", err)
	}
	return &st, nil
}

func (s *PolicyStore) Mutate(ctx context.Context, fn func(*models.AutonomyPolicyState) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin autonomy policy tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var payload []byte
	row := tx.QueryRow(ctx, `SELECT payload_json FROM autonomy_policy_state WHERE id = 1 FOR UPDATE`)
	st := models.NewAutonomyPolicyState()
	if err := row.Scan(&payload); err == nil {
		if err := json.Unmarshal(payload, st); err != nil {
			return fmt.Errorf("unmarshal autonomy policy state: %w", err)
		}
	}

	if err := fn(st); err != nil {
		return err
	}

	next, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal autonomy policy state: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO autonomy_policy_state (id, payload_json) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET payload_json = excluded.payload_json`, next); err != nil {
		return fmt.Errorf("write autonomy policy state: %w", err)
	}
	return tx.Commit(ctx)
}
