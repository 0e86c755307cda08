package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpctl/tradeagent/pkg/store"
)

// TaskStore implements store.ScheduledTasks against scheduled_tasks, the
// durable record behind every `/schedule` chat command.
type TaskStore struct {
	pool *pgxpool.Pool
}

func (s *TaskStore) Create(ctx context.Context, t *store.ScheduledTask) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Active = true
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scheduled_tasks
		(id, scheduler_job_name, channel, recipient_id, schedule_kind, run_at, daily_time, interval_minutes, instruction, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true)`,
		t.ID, t.SchedulerJobName, t.Channel, t.RecipientID, t.ScheduleKind, t.RunAt, t.DailyTime, t.IntervalMinutes, t.Instruction)
	if err != nil {
		return fmt.Errorf("insert scheduled task: %w", err)
	}
	return nil
}

func (s *TaskStore) Get(ctx context.Context, id string) (*store.ScheduledTask, bool, error) {
	t := &store.ScheduledTask{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, scheduler_job_name, channel, recipient_id, schedule_kind, run_at, daily_time, interval_minutes, instruction, active
		FROM scheduled_tasks WHERE id = $1`, id).
	Scan(&t.ID, &t.SchedulerJobName, &t.Channel, &t.RecipientID, &t.ScheduleKind, &t.RunAt, &t.DailyTime, &t.IntervalMinutes, &t.Instruction, &t.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get scheduled task %q: %w", id, err)
	}
	return t, true, nil
}

func (s *TaskStore) ListActive(ctx context.Context) ([]*store.ScheduledTask, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, scheduler_job_name, channel, recipient_id, schedule_kind, run_at, daily_time, interval_minutes, instruction, active
		FROM scheduled_tasks WHERE active = true`)
	if err != nil {
		return nil, fmt.Errorf("list active scheduled tasks: %w", err)
	}
	defer rows.Close()

	var out []*store.ScheduledTask
	for rows.Next() {
		t := &store.ScheduledTask{}
		if err := rows.Scan(&t.ID, &t.SchedulerJobName, &t.Channel, &t.RecipientID, &t.ScheduleKind, &t.RunAt, &t.DailyTime, &t.IntervalMinutes, &t.Instruction, &t.Active); err != nil {
			return nil, fmt.Errorf("scan scheduled task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *TaskStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `UPDATE scheduled_tasks SET active = false WHERE id = $1`, id)
	return err
}
