package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/perpctl/tradeagent/pkg/orchestrator"
	"github.com/perpctl/tradeagent/pkg/scheduler"
	"github.com/perpctl/tradeagent/pkg/store"
)

// Notifier delivers scheduled-task output to a channel/recipient outside
// the request/response cycle that created the task — the push half of an
// adapter that a synchronous webhook can't provide on its own.
type Notifier interface {
	Deliver(ctx context.Context, channel, recipientID, text string) error
}

// GoalRunner is the subset of *orchestrator.Orchestrator that chat
// needs: one call in, one result out. Depending on the interface rather
// than the concrete type keeps HandleMessage's command/NL-routing logic
// testable without standing up a full planner/reflector/critic stack.
type GoalRunner interface {
	Run(ctx context.Context, opts orchestrator.RunOptions) *orchestrator.RunResult
}

// Service implements its chat-adapter interface plus the
// /schedule command surface, sitting on top of the orchestrator (for
// both ad hoc goals and scheduled instructions) and the scheduling
// control plane (for registering the jobs those instructions run under).
type Service struct {
	Orchestrator GoalRunner
	Scheduler *scheduler.Scheduler
	Tasks store.ScheduledTasks
	Notifier Notifier
}

// HandleMessage is the core entry point every adapter calls
// → string").
func (s *Service) HandleMessage(ctx context.Context, sessionKey string, msg Message, onProgress ProgressFunc) (string, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return "", nil
	}

	if isCommand(text) {
		return s.handleCommand(ctx, msg, text)
	}

	if parsed, instruction, ok := DetectNaturalLanguageSchedule(text, time.Now()); ok {
		return s.createScheduledTask(ctx, msg, parsed, instruction)
	}

	if onProgress != nil {
		onProgress("Working on it...")
	}
	result := s.Orchestrator.Run(ctx, orchestrator.RunOptions{SessionID: sessionKey, Goal: text})
	if result.Response != "" {
		return result.Response, nil
	}
	return result.Summary, nil
}

// RestoreActiveTasks re-registers every active scheduled task's job
// against the scheduler. Needed after every process restart: a job's
// handler is a Go closure, so the in-process job registry doesn't
// survive one even though the persisted schedule/lease row does.
func (s *Service) RestoreActiveTasks(ctx context.Context) error {
	tasks, err := s.Tasks.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		job, err := s.buildJob(task)
		if err != nil {
			slog.Error("chat: skipping malformed scheduled task on restore", "task_id", task.ID, "error", err)
			continue
		}
		if err := s.Scheduler.Register(ctx, job); err != nil {
			slog.Error("chat: failed to re-register scheduled task", "task_id", task.ID, "error", err)
		}
	}
	return nil
}
