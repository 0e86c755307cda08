package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpctl/tradeagent/pkg/store"
)

// SchedulerStore implements store.SchedulerStore against scheduler_jobs,
// the leased scheduling control plane. ClaimDue is a single
// compare-and-set UPDATE so two processes racing on the same poll tick
// cannot both win the same job's lease.
type SchedulerStore struct {
	pool *pgxpool.Pool
}

func (s *SchedulerStore) Upsert(ctx context.Context, name string, nextRunAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scheduler_jobs (name, next_run_at) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET next_run_at = excluded.next_run_at`,
		name, nextRunAt)
	if err != nil {
		return fmt.Errorf("upsert scheduler job %q: %w", name, err)
	}
	return nil
}

func (s *SchedulerStore) ClaimDue(ctx context.Context, now time.Time, owner string, leaseFor time.Duration) ([]*store.JobSpec, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE scheduler_jobs
		SET lease_owner = $1, lease_until = $2
		WHERE next_run_at <= $3 AND (lease_owner IS NULL OR lease_until <= $3)
		RETURNING name, next_run_at, lease_owner, lease_until`,
		owner, now.Add(leaseFor), now)
	if err != nil {
		return nil, fmt.Errorf("claim due scheduler jobs: %w", err)
	}
	defer rows.Close()

	var won []*store.JobSpec
	for rows.Next() {
		j := &store.JobSpec{}
		if err := rows.Scan(&j.Name, &j.NextRunAt, &j.LeaseOwner, &j.LeaseUntil); err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		won = append(won, j)
	}
	return won, rows.Err()
}

func (s *SchedulerStore) Release(ctx context.Context, name, owner string, nextRunAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE scheduler_jobs SET lease_owner = NULL, lease_until = NULL, next_run_at = $1
		WHERE name = $2 AND lease_owner = $3`,
		nextRunAt, name, owner)
	if err != nil {
		return fmt.Errorf("release scheduler job %q: %w", name, err)
	}
	return nil
}

func (s *SchedulerStore) Get(ctx context.Context, name string) (*store.JobSpec, error) {
	j := &store.JobSpec{Name: name}
	var owner, until any
	err := s.pool.QueryRow(ctx,
		`SELECT next_run_at, lease_owner, lease_until FROM scheduler_jobs WHERE name = $1`, name).
	Scan(&j.NextRunAt, &owner, &until)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduler job %q: %w", name, err)
	}
	if v, ok := owner.(string); ok {
		j.LeaseOwner = v
	}
	if v, ok := until.(time.Time); ok {
		j.LeaseUntil = v
	}
	return j, nil
}
