// Package store defines the persistence interfaces the orchestrator,
// autonomy loop and scheduler depend on.
// Concrete implementations live in store/postgres (pgx-backed, for
// production) and store/memstore (for tests); the core never imports
// either directly, only these interfaces.
package store

import (
	"context"
	"time"

	"github.com/perpctl/tradeagent/pkg/models"
)

// Journal is the append-only log of per-order-attempt decision records
// (decision_artifacts table).
type Journal interface {
	Append(ctx context.Context, e *models.JournalEntry) error
	Recent(ctx context.Context, limit int) ([]*models.JournalEntry, error)
	Today(ctx context.Context) ([]*models.JournalEntry, error)
	// RecentClosesPnL returns the P&L (in USD) of the last n closed trades,
	// most recent first; used by the loss-streak pause.
	RecentClosesPnL(ctx context.Context, n int) ([]float64, error)
}

// Incidents is the append-only failure log keyed by (toolName, blockerKind).
type Incidents interface {
	Record(ctx context.Context, rec *models.IncidentRecord) error
	// FirstOccurrence reports whether this is the first time this
	// (toolName, blockerKind) pair has ever been recorded — used to decide
	// whether to seed a Playbook.
	FirstOccurrence(ctx context.Context, toolName, blockerKind string) (bool, error)
	Top(ctx context.Context, limit int) ([]*models.IncidentRecord, error)
}

// Playbooks stores remediation hints keyed by a blocker/tool key.
type Playbooks interface {
	Seed(ctx context.Context, p *models.Playbook) error
	Get(ctx context.Context, key string) (*models.Playbook, bool, error)
	MatchingTop(ctx context.Context, goal string, limit int) ([]*models.Playbook, error)
}

// AutonomyPolicyStore is the process-wide single-row policy state store
// (autonomy_policy_state table: writes take a row lock and happen inside
// a named transaction).
type AutonomyPolicyStore interface {
	Get(ctx context.Context) (*models.AutonomyPolicyState, error)
	// Mutate loads the current state, applies fn, and writes it back
	// atomically (row-lock semantics, "updated only through named
	// transactions").
	Mutate(ctx context.Context, fn func(*models.AutonomyPolicyState) error) error
}

// SpendingLimiter is the process-wide daily spending/risk budget
// (spending_state table).
type SpendingLimiter interface {
	// CheckAndReserve atomically checks remaining budget/trade-count and,
	// if amountUsd fits, reserves it, returning a reservation id.
	// Unconfirmed/unreleased reservations are reclaimed after ttl.
	CheckAndReserve(ctx context.Context, amountUsd float64, ttl time.Duration) (reservationID string, ok bool, remainingUsd float64, err error)
	Confirm(ctx context.Context, reservationID string) error
	Release(ctx context.Context, reservationID string) error
	RemainingToday(ctx context.Context) (float64, error)
}

// JobSpec describes one entry in the scheduling control plane
// (scheduler_jobs table).
type JobSpec struct {
	Name string
	NextRunAt time.Time
	LeaseOwner string
	LeaseUntil time.Time
}

// SchedulerStore is the leased-job compare-and-set primitive backing the
// scheduling control plane.
type SchedulerStore interface {
	// Upsert registers or updates a job's schedule metadata without
	// touching its lease.
	Upsert(ctx context.Context, name string, nextRunAt time.Time) error
	// ClaimDue attempts to claim every job whose NextRunAt <= now and whose
	// lease is free or expired, setting (owner, leaseUntil) via
	// compare-and-set. Returns the jobs this call won.
	ClaimDue(ctx context.Context, now time.Time, owner string, leaseFor time.Duration) ([]*JobSpec, error)
	// Release clears the lease and sets the next run time (owner must
	// still hold the lease; otherwise this is a no-op, a late completion
	// after a reaped lease must not clobber a new owner's claim).
	Release(ctx context.Context, name, owner string, nextRunAt time.Time) error
	Get(ctx context.Context, name string) (*JobSpec, error)
}

// ScheduledTask is a user-scheduled chat instruction
// (scheduled_tasks table).
type ScheduledTask struct {
	ID string
	SchedulerJobName string
	Channel string
	RecipientID string
	ScheduleKind string // once | interval | daily
	RunAt *time.Time
	DailyTime string
	IntervalMinutes int
	Instruction string
	Active bool
}

// ScheduledTasks persists user `/schedule` requests.
type ScheduledTasks interface {
	Create(ctx context.Context, t *ScheduledTask) error
	Get(ctx context.Context, id string) (*ScheduledTask, bool, error)
	ListActive(ctx context.Context) ([]*ScheduledTask, error)
	Deactivate(ctx context.Context, id string) error
}
