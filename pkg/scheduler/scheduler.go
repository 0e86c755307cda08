// Package scheduler implements the leased, single-owner job control
// plane that drives the autonomy loop, daily reports, and
// user-scheduled chat instructions: a small poller claims due work by
// compare-and-set lease, runs it, and releases the lease with the next
// run time. A "job" here is a named recurring entry, not a one-shot row,
// and orphan recovery is folded into the poll itself since
// store.SchedulerStore.ClaimDue already treats an expired lease as free
// — no separate orphan-scan goroutine is needed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/store"
	"github.com/perpctl/tradeagent/pkg/telemetry"
)

// HandlerOutcome lets a handler override the schedule's natural next run
// time, e.g. the autonomy scan job feeding back its adapted cadence.
type HandlerOutcome struct {
	NextRunOverride time.Time
}

// Handler executes one claimed run of a job. ctx is cancelled if Stop is
// called while the handler is in flight; handlers should cooperate.
type Handler func(ctx context.Context) (*HandlerOutcome, error)

// Job is one entry in the scheduling control plane.
type Job struct {
	Name string
	Schedule Schedule
	Handler Handler
}

// Scheduler polls store.SchedulerStore for due jobs and runs their
// handlers under a lease, at most one concurrent run per job name across
// every Scheduler instance sharing the same store.
type Scheduler struct {
	store store.SchedulerStore
	config *config.SchedulerConfig
	ownerID string

	mu sync.Mutex
	jobs map[string]*Job

	stopCh chan struct{}
	stopOnce sync.Once
	wg sync.WaitGroup
}

// New creates a Scheduler. ownerID identifies this process for lease
// compare-and-set and should be stable for the process lifetime but
// unique across concurrently running owners.
func New(st store.SchedulerStore, cfg *config.SchedulerConfig, ownerID string) *Scheduler {
	return &Scheduler{
		store: st,
		config: cfg,
		ownerID: ownerID,
		jobs: make(map[string]*Job),
		stopCh: make(chan struct{}),
	}
}

// Register adds a job definition and, if the store has never seen this
// job name before, seeds its first nextRunAt. Re-registering a
// previously-seen job (e.g. across a restart) leaves its persisted
// nextRunAt untouched so a run that was already due is not pushed back.
func (s *Scheduler) Register(ctx context.Context, job *Job) error {
	if job.Name == "" {
		return fmt.Errorf("scheduler: job name is required")
	}
	if job.Schedule == nil {
		return fmt.Errorf("scheduler: job %q has no schedule", job.Name)
	}
	if job.Handler == nil {
		return fmt.Errorf("scheduler: job %q has no handler", job.Name)
	}

	s.mu.Lock()
	s.jobs[job.Name] = job
	s.mu.Unlock()

	existing, err := s.store.Get(ctx, job.Name)
	if err != nil {
		return fmt.Errorf("scheduler: checking existing job %q: %w", job.Name, err)
	}
	if existing != nil {
		return nil
	}
	return s.store.Upsert(ctx, job.Name, job.Schedule.Next(time.Now().UTC()))
}

// Start begins the poll loop in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop halts the poller and waits for any in-flight handlers to finish.
// It is safe to call Stop multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	interval := s.config.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Scheduler) pollOnce(ctx context.Context) {
	now := time.Now().UTC()
	claimed, err := s.store.ClaimDue(ctx, now, s.ownerID, s.config.LeaseDuration)
	if err != nil {
		slog.Error("scheduler: claim poll failed", "error", err)
		return
	}
	for _, spec := range claimed {
		s.mu.Lock()
		job, ok := s.jobs[spec.Name]
		s.mu.Unlock()
		if !ok {
			// Claimed a job this process doesn't know how to run (e.g. a
			// fresh deploy that dropped a handler); release it immediately
			// so another owner that still registers it can pick it up.
			if err := s.store.Release(ctx, spec.Name, s.ownerID, now.Add(s.leaseDuration())); err != nil {
				slog.Error("scheduler: releasing unknown job", "job", spec.Name, "error", err)
			}
			continue
		}
		s.wg.Add(1)
		go s.runJob(ctx, job, now)
	}
}

func (s *Scheduler) leaseDuration() time.Duration {
	if s.config.LeaseDuration <= 0 {
		return time.Minute
	}
	return s.config.LeaseDuration
}

func (s *Scheduler) runJob(parent context.Context, job *Job, claimedAt time.Time) {
	defer s.wg.Done()

	jobCtx, cancel := context.WithCancel(parent)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-done:
		}
	}()

	log := slog.With("job", job.Name, "owner", s.ownerID)
	log.Info("scheduler: job claimed")

	jobCtx, span := telemetry.StartSchedulerSpan(jobCtx, job.Name)
	outcome, err := job.Handler(jobCtx)
	telemetry.Default.Count(jobCtx, "scheduler.runs.total")
	telemetry.EndSpan(span, err)

	next := job.Schedule.Next(claimedAt)
	if !job.Schedule.Recurring() {
		next = Never
	}
	if err != nil {
		log.Error("scheduler: job failed", "error", err)
	} else if outcome != nil && !outcome.NextRunOverride.IsZero() {
		next = outcome.NextRunOverride
	}

	// Release on a background context: the job context may already be
	// cancelled by Stop, but the lease must still be handed back.
	if relErr := s.store.Release(context.Background(), job.Name, s.ownerID, next); relErr != nil {
		log.Error("scheduler: releasing lease failed", "error", relErr)
	} else {
		log.Info("scheduler: job released", "next_run_at", next)
	}
}

// JobStatus returns the current persisted state of a named job, or nil if
// it has never been registered against this store.
func (s *Scheduler) JobStatus(ctx context.Context, name string) (*store.JobSpec, error) {
	return s.store.Get(ctx, name)
}
