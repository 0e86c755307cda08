// Package memstore is an in-process implementation of every pkg/store
// interface, used by orchestrator/autonomy/scheduler unit tests in place
// of Postgres.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/store"
)

// Bundle groups one in-memory implementation of each store interface so
// tests can wire a whole orchestrator/autonomy/scheduler stack with a
// single constructor call.
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

// Ping always succeeds: an in-memory store has no connection to lose.
// Satisfies api.Pinger so Bundle can be wired into the health endpoint
// the same way as a real pgxpool.Pool, for tests and local/dev runs that
// don't use Postgres.
func (b *Bundle) Ping(ctx context.Context) error { return nil }

// New returns a Bundle of empty, independent in-memory stores.
func New() *Bundle {
	return &Bundle{
		Journal: &JournalStore{},
		Incidents: &IncidentStore{seen: map[string]bool{}},
		Playbooks: &PlaybookStore{playbooks: map[string]*models.Playbook{}},
		Policy: &PolicyStore{policy: &models.AutonomyPolicyState{UpdatedAt: time.Now()}},
		Spending: &SpendingStore{DailyBudgetUsd: 1e9, reservations: map[string]reservation{}},
		Scheduler: &SchedulerStore{jobs: map[string]*store.JobSpec{}},
		Tasks: &TaskStore{tasks: map[string]*store.ScheduledTask{}},
	}
}

// --- Journal ---

// JournalStore implements store.Journal.
type JournalStore struct {
	mu sync.Mutex
	entries []*models.JournalEntry
}

func (s *JournalStore) Append(_ context.Context, e *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *JournalStore) Recent(_ context.Context, limit int) ([]*models.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if limit > 0 && limit < n {
		return append([]*models.JournalEntry{}, s.entries[n-limit:]...), nil
	}
	return append([]*models.JournalEntry{}, s.entries...), nil
}

func (s *JournalStore) Today(_ context.Context) ([]*models.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	var out []*models.JournalEntry
	for _, e := range s.entries {
		if e.CreatedAt.UTC().After(today) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *JournalStore) RecentClosesPnL(_ context.Context, n int) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []float64
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		e := s.entries[i]
		if e.ContextPackTrace == nil {
			continue
		}
		if pnl, ok := e.ContextPackTrace["close_pnl_usd"].(float64); ok {
			out = append(out, pnl)
		}
	}
	return out, nil
}

// --- Incidents ---

// IncidentStore implements store.Incidents.
type IncidentStore struct {
	mu sync.Mutex
	incidents []*models.IncidentRecord
	seen map[string]bool
}

func (s *IncidentStore) Record(_ context.Context, rec *models.IncidentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.incidents = append(s.incidents, rec)
	s.seen[rec.ToolName+"|"+rec.BlockerKind] = true
	return nil
}

func (s *IncidentStore) FirstOccurrence(_ context.Context, toolName, blockerKind string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.seen[toolName+"|"+blockerKind], nil
}

func (s *IncidentStore) Top(_ context.Context, limit int) ([]*models.IncidentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.incidents)
	if limit > 0 && limit < n {
		return append([]*models.IncidentRecord{}, s.incidents[n-limit:]...), nil
	}
	return append([]*models.IncidentRecord{}, s.incidents...), nil
}

// --- Playbooks ---

// PlaybookStore implements store.Playbooks.
type PlaybookStore struct {
	mu sync.Mutex
	playbooks map[string]*models.Playbook
}

func (s *PlaybookStore) Seed(_ context.Context, p *models.Playbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.playbooks[p.Key]; exists {
		return nil
	}
	p.UpdatedAt = time.Now()
	s.playbooks[p.Key] = p
	return nil
}

func (s *PlaybookStore) Get(_ context.Context, key string) (*models.Playbook, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playbooks[key]
	return p, ok, nil
}

func (s *PlaybookStore) MatchingTop(_ context.Context, _ string, limit int) ([]*models.Playbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Playbook
	for _, p := range s.playbooks {
		out = append(out, p)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// --- AutonomyPolicyStore ---

// PolicyStore implements store.AutonomyPolicyStore.
type PolicyStore struct {
	mu sync.Mutex
	policy *models.AutonomyPolicyState
}

func (s *PolicyStore) Get(_ context.Context) (*models.AutonomyPolicyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.policy
	return &cp, nil
}

func (s *PolicyStore) Mutate(_ context.Context, fn func(*models.AutonomyPolicyState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.policy
	if err := fn(&cp); err != nil {
		return err
	}
	cp.UpdatedAt = time.Now()
	s.policy = &cp
	return nil
}

// --- SpendingLimiter ---

type reservation struct {
	amount float64
	expires time.Time
}

// SpendingStore implements store.SpendingLimiter. DailyBudgetUsd is
// exported so tests can configure the cap directly.
type SpendingStore struct {
	mu sync.Mutex
	DailyBudgetUsd float64
	dailySpentUsd float64
	reservations map[string]reservation
}

func (s *SpendingStore) CheckAndReserve(_ context.Context, amountUsd float64, ttl time.Duration) (string, bool, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reclaimExpiredLocked()

	reserved := 0.0
	for _, r := range s.reservations {
		reserved += r.amount
	}
	budget := s.DailyBudgetUsd
	if budget <= 0 {
		budget = 1e9
	}
	remaining := budget - s.dailySpentUsd - reserved
	if amountUsd > remaining {
		return "", false, remaining, nil
	}
	id := uuid.NewString()
	s.reservations[id] = reservation{amount: amountUsd, expires: time.Now().Add(ttl)}
	return id, true, remaining - amountUsd, nil
}

func (s *SpendingStore) reclaimExpiredLocked() {
	now := time.Now()
	for id, r := range s.reservations {
		if now.After(r.expires) {
			delete(s.reservations, id)
		}
	}
}

func (s *SpendingStore) Confirm(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return nil
	}
	s.dailySpentUsd += r.amount
	delete(s.reservations, reservationID)
	return nil
}

func (s *SpendingStore) Release(_ context.Context, reservationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reservations, reservationID)
	return nil
}

func (s *SpendingStore) RemainingToday(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reserved := 0.0
	for _, r := range s.reservations {
		reserved += r.amount
	}
	budget := s.DailyBudgetUsd
	if budget <= 0 {
		budget = 1e9
	}
	return budget - s.dailySpentUsd - reserved, nil
}

// --- SchedulerStore ---

// SchedulerStore implements store.SchedulerStore.
type SchedulerStore struct {
	mu sync.Mutex
	jobs map[string]*store.JobSpec
}

func (s *SchedulerStore) Upsert(_ context.Context, name string, nextRunAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		j = &store.JobSpec{Name: name}
		s.jobs[name] = j
	}
	j.NextRunAt = nextRunAt
	return nil
}

func (s *SchedulerStore) ClaimDue(_ context.Context, now time.Time, owner string, leaseFor time.Duration) ([]*store.JobSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var won []*store.JobSpec
	for _, j := range s.jobs {
		if j.NextRunAt.After(now) {
			continue
		}
		if j.LeaseOwner != "" && j.LeaseUntil.After(now) {
			continue // held by a live lease
		}
		j.LeaseOwner = owner
		j.LeaseUntil = now.Add(leaseFor)
		cp := *j
		won = append(won, &cp)
	}
	return won, nil
}

func (s *SchedulerStore) Release(_ context.Context, name, owner string, nextRunAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok || j.LeaseOwner != owner {
		return nil // lost the lease to a reaper; don't clobber the new owner
	}
	j.LeaseOwner = ""
	j.LeaseUntil = time.Time{}
	j.NextRunAt = nextRunAt
	return nil
}

func (s *SchedulerStore) Get(_ context.Context, name string) (*store.JobSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, nil
	}
	cp := *j
	return &cp, nil
}

// --- ScheduledTasks ---

// TaskStore implements store.ScheduledTasks.
type TaskStore struct {
	mu sync.Mutex
	tasks map[string]*store.ScheduledTask
}

func (s *TaskStore) Create(_ context.Context, t *store.ScheduledTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Active = true
	s.tasks[t.ID] = t
	return nil
}

func (s *TaskStore) Get(_ context.Context, id string) (*store.ScheduledTask, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok, nil
}

func (s *TaskStore) ListActive(_ context.Context) ([]*store.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.ScheduledTask
	for _, t := range s.tasks {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *TaskStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		t.Active = false
	}
	return nil
}
