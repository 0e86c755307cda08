package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/orchestrator"
	"github.com/perpctl/tradeagent/pkg/scheduler"
	"github.com/perpctl/tradeagent/pkg/store"
)

const scheduleHelp = `Usage: /schedule <spec> | <instruction>
<spec> is one of:
tomorrow H[:MM]am|pm
today H[:MM]am|pm
daily HH:MM
every N[m|h]
in N[s|m|h]
All times are UTC. Example: /schedule tomorrow 9:45am | send today's PnL

Other commands:
/scheduled_tasks list your active scheduled tasks
/unschedule_task <id-prefix> cancel a scheduled task
/schedule help show this message`

func isCommand(text string) bool {
	return strings.HasPrefix(text, "/schedule") || strings.HasPrefix(text, "/unschedule_task")
}

func (s *Service) handleCommand(ctx context.Context, msg Message, text string) (string, error) {
	switch {
	case text == "/schedule" || text == "/schedule help":
		return scheduleHelp, nil
	case strings.HasPrefix(text, "/schedule "):
		return s.handleScheduleCommand(ctx, msg, strings.TrimPrefix(text, "/schedule "))
	case text == "/scheduled_tasks" || strings.HasPrefix(text, "/scheduled_tasks "):
		return s.handleListTasks(ctx, msg)
	case strings.HasPrefix(text, "/unschedule_task"):
		return s.handleUnscheduleTask(ctx, strings.TrimSpace(strings.TrimPrefix(text, "/unschedule_task")))
	default:
		return "", fmt.Errorf("unrecognized command %q (try /schedule help)", text)
	}
}

func (s *Service) handleScheduleCommand(ctx context.Context, msg Message, rest string) (string, error) {
	parts := strings.SplitN(rest, "|", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed /schedule command: expected \"<spec> | <instruction>\"\n\n%s", scheduleHelp)
	}
	spec := strings.TrimSpace(parts[0])
	instruction := strings.TrimSpace(parts[1])
	if instruction == "" {
		return "", fmt.Errorf("missing instruction after '|'")
	}

	parsed, err := ParseScheduleSpec(spec, time.Now())
	if err != nil {
		return "", err
	}
	return s.createScheduledTask(ctx, msg, parsed, instruction)
}

func (s *Service) createScheduledTask(ctx context.Context, msg Message, parsed *ParsedSchedule, instruction string) (string, error) {
	id := uuid.NewString()
	task := &store.ScheduledTask{
		ID: id,
		SchedulerJobName: "chat_task_" + id,
		Channel: msg.Channel,
		RecipientID: msg.SenderID,
		ScheduleKind: string(parsed.Kind),
		Instruction: instruction,
		Active: true,
	}
	switch parsed.Kind {
	case KindOnce:
		runAt := parsed.RunAt
		task.RunAt = &runAt
	case KindDaily:
		task.DailyTime = parsed.DailyTime
	case KindInterval:
		task.IntervalMinutes = parsed.IntervalMinutes
	}

	if err := s.Tasks.Create(ctx, task); err != nil {
		return "", fmt.Errorf("saving scheduled task: %w", err)
	}

	job, err := s.buildJob(task)
	if err != nil {
		return "", err
	}
	if err := s.Scheduler.Register(ctx, job); err != nil {
		return "", fmt.Errorf("registering scheduled job: %w", err)
	}

	return fmt.Sprintf("Scheduled (%s): %s\nid: %s", describeSchedule(task), instruction, id[:8]), nil
}

func (s *Service) buildJob(task *store.ScheduledTask) (*scheduler.Job, error) {
	var sched scheduler.Schedule
	switch ScheduleKind(task.ScheduleKind) {
	case KindOnce:
		if task.RunAt == nil {
			return nil, fmt.Errorf("scheduled task %s missing run_at for a once schedule", task.ID)
		}
		sched = scheduler.Once(*task.RunAt)
	case KindDaily:
		parsed, err := scheduler.ParseDailyTime(task.DailyTime)
		if err != nil {
			return nil, fmt.Errorf("scheduled task %s has invalid daily_time %q: %w", task.ID, task.DailyTime, err)
		}
		sched = parsed
	case KindInterval:
		if task.IntervalMinutes <= 0 {
			return nil, fmt.Errorf("scheduled task %s has non-positive interval_minutes", task.ID)
		}
		sched = scheduler.Interval(time.Duration(task.IntervalMinutes) * time.Minute)
	default:
		return nil, fmt.Errorf("scheduled task %s has unknown schedule_kind %q", task.ID, task.ScheduleKind)
	}

	return &scheduler.Job{
		Name: task.SchedulerJobName,
		Schedule: sched,
		Handler: s.scheduledTaskHandler(task),
	}, nil
}

// scheduledTaskHandler re-reads the task before every run so a
// /unschedule_task issued between two interval/daily firings is honored:
// an inactive task is pinned to scheduler.Never instead of executing.
func (s *Service) scheduledTaskHandler(task *store.ScheduledTask) scheduler.Handler {
	return func(ctx context.Context) (*scheduler.HandlerOutcome, error) {
		current, ok, err := s.Tasks.Get(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if !ok || !current.Active {
			return &scheduler.HandlerOutcome{NextRunOverride: scheduler.Never}, nil
		}

		result := s.Orchestrator.Run(ctx, orchestrator.RunOptions{
			SessionID: "scheduled:" + task.ID,
			Goal: current.Instruction,
		})
		if s.Notifier != nil {
			if err := s.Notifier.Deliver(ctx, task.Channel, task.RecipientID, result.Response); err != nil {
				slog.Warn("chat: delivering scheduled task output failed", "task_id", task.ID, "error", err)
			}
		}
		if task.ScheduleKind == string(KindOnce) {
			if err := s.Tasks.Deactivate(ctx, task.ID); err != nil {
				slog.Warn("chat: deactivating completed scheduled task failed", "task_id", task.ID, "error", err)
			}
		}
		return nil, nil
	}
}

func (s *Service) handleListTasks(ctx context.Context, msg Message) (string, error) {
	tasks, err := s.Tasks.ListActive(ctx)
	if err != nil {
		return "", err
	}
	var mine []*store.ScheduledTask
	for _, t := range tasks {
		if t.RecipientID == msg.SenderID {
			mine = append(mine, t)
		}
	}
	if len(mine) == 0 {
		return "No active scheduled tasks.", nil
	}

	var b strings.Builder
	for _, t := range mine {
		fmt.Fprintf(&b, "%s [%s] %s\n", t.ID[:8], describeSchedule(t), t.Instruction)
	}
	return b.String(), nil
}

func describeSchedule(t *store.ScheduledTask) string {
	switch ScheduleKind(t.ScheduleKind) {
	case KindOnce:
		if t.RunAt != nil {
			return "once at " + t.RunAt.UTC().Format("2006-01-02 15:04") + " UTC"
		}
		return "once"
	case KindDaily:
		return "daily at " + t.DailyTime + " UTC"
	case KindInterval:
		return fmt.Sprintf("every %dm", t.IntervalMinutes)
	default:
		return t.ScheduleKind
	}
}

func (s *Service) handleUnscheduleTask(ctx context.Context, idPrefix string) (string, error) {
	if idPrefix == "" {
		return "", fmt.Errorf("usage: /unschedule_task <id-prefix>")
	}
	tasks, err := s.Tasks.ListActive(ctx)
	if err != nil {
		return "", err
	}

	var match *store.ScheduledTask
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, idPrefix) {
			if match != nil {
				return "", fmt.Errorf("ambiguous id prefix %q matches multiple tasks", idPrefix)
			}
			match = t
		}
	}
	if match == nil {
		return "", fmt.Errorf("no active scheduled task matches %q", idPrefix)
	}

	if err := s.Tasks.Deactivate(ctx, match.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Unscheduled %s: %s", match.ID[:8], match.Instruction), nil
}
