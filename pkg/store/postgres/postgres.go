// Package postgres implements every pkg/store interface using pgx
// directly, generalized away from ent since the generated ent runtime
// cannot be hand-authored here — see DESIGN.md.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perpctl/tradeagent/pkg/store"
)

// Bundle groups one pgx-backed implementation of each store interface over
// a shared connection pool, mirroring memstore.Bundle so orchestrator,
// autonomy and scheduler wiring (cmd/tradeagent) is identical regardless
// of backend. Splitting by interface — rather than one god Store type —
// avoids colliding method names across interfaces that each define their
// own Get (Playbooks.Get, AutonomyPolicyStore.Get, SchedulerStore.Get all
// take different arguments).
type Bundle struct {
	Journal *JournalStore
	Incidents *IncidentStore
	Playbooks *PlaybookStore
	Policy *PolicyStore
	Spending *SpendingStore
	Scheduler *SchedulerStore
	Tasks *TaskStore
}

var (
	_ store.Journal = (*JournalStore)(nil)
	_ store.Incidents = (*IncidentStore)(nil)
	_ store.Playbooks = (*PlaybookStore)(nil)
	_ store.AutonomyPolicyStore = (*PolicyStore)(nil)
	_ store.SpendingLimiter = (*SpendingStore)(nil)
	_ store.SchedulerStore = (*SchedulerStore)(nil)
	_ store.ScheduledTasks = (*TaskStore)(nil)
)

// New wraps an already-connected pool. Migrations are applied separately
// via RunMigrations, run from cmd/tradeagent before New is called.
func New(pool *pgxpool.Pool) *Bundle {
	return &Bundle{
		Journal: &JournalStore{pool: pool},
		Incidents: &IncidentStore{pool: pool},
		Playbooks: &PlaybookStore{pool: pool},
		Policy: &PolicyStore{pool: pool},
		Spending: &SpendingStore{pool: pool},
		Scheduler: &SchedulerStore{pool: pool},
		Tasks: &TaskStore{pool: pool},
	}
}
