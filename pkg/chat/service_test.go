package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/orchestrator"
	"github.com/perpctl/tradeagent/pkg/scheduler"
	"github.com/perpctl/tradeagent/pkg/store"
	"github.com/perpctl/tradeagent/pkg/store/memstore"
)

func newTestTask() *store.ScheduledTask {
	id := uuid.NewString()
	return &store.ScheduledTask{
		ID: id,
		SchedulerJobName: "chat_task_" + id,
		Active: true,
	}
}

// stubRunner is a GoalRunner that records every call it receives and
// returns a scripted response, standing in for a full orchestrator stack
// in tests that only care about chat's own routing and scheduling logic.
type stubRunner struct {
	calls []orchestrator.RunOptions
	response string
	summary string
}

func (r *stubRunner) Run(_ context.Context, opts orchestrator.RunOptions) *orchestrator.RunResult {
	r.calls = append(r.calls, opts)
	return &orchestrator.RunResult{Response: r.response, Summary: r.summary, Success: true}
}

func testService(t *testing.T) (*Service, *stubRunner, *memstore.Bundle) {
	t.Helper()
	bundle := memstore.New()
	runner := &stubRunner{response: "done"}
	sched := scheduler.New(bundle.Scheduler, &config.SchedulerConfig{PollInterval: time.Second, LeaseDuration: time.Minute}, "test-owner")
	return &Service{
		Orchestrator: runner,
		Scheduler: sched,
		Tasks: bundle.Tasks,
	}, runner, bundle
}

func TestService_HandleMessage_PlainGoalGoesToOrchestrator(t *testing.T) {
	svc, runner, _ := testService(t)

	var progress []string
	reply, err := svc.HandleMessage(context.Background(), "sess-1", Message{Channel: "C1", SenderID: "U1", Text: "what is my BTC exposure"}, func(u string) {
		progress = append(progress, u)
	})
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "sess-1", runner.calls[0].SessionID)
	assert.Equal(t, "what is my BTC exposure", runner.calls[0].Goal)
	assert.Equal(t, []string{"Working on it..."}, progress)
}

func TestService_HandleMessage_FallsBackToSummaryWhenNoResponse(t *testing.T) {
	svc, runner, _ := testService(t)
	runner.response = ""
	runner.summary = "summary text"

	reply, err := svc.HandleMessage(context.Background(), "sess-1", Message{Channel: "C1", SenderID: "U1", Text: "status check"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "summary text", reply)
}

func TestService_HandleMessage_EmptyTextIsNoop(t *testing.T) {
	svc, runner, _ := testService(t)
	reply, err := svc.HandleMessage(context.Background(), "sess-1", Message{Channel: "C1", SenderID: "U1", Text: " "}, nil)
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Empty(t, runner.calls)
}

func TestService_HandleMessage_ScheduleCommandCreatesTaskAndJob(t *testing.T) {
	svc, _, bundle := testService(t)

	reply, err := svc.HandleMessage(context.Background(), "sess-1", Message{Channel: "C1", SenderID: "U1", Text: "/schedule in 5m | send pnl"}, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Scheduled")

	tasks, err := bundle.Tasks.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "send pnl", tasks[0].Instruction)

	status, err := svc.Scheduler.JobStatus(context.Background(), tasks[0].SchedulerJobName)
	require.NoError(t, err)
	require.NotNil(t, status)
}

func TestService_HandleMessage_NaturalLanguageSchedulingCreatesTask(t *testing.T) {
	svc, runner, bundle := testService(t)

	reply, err := svc.HandleMessage(context.Background(), "sess-1", Message{Channel: "C1", SenderID: "U1", Text: "in 10m run a scan"}, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Scheduled")
	assert.Empty(t, runner.calls, "natural language scheduling should not invoke the orchestrator synchronously")

	tasks, err := bundle.Tasks.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
}

func TestService_ScheduledTasks_ListFiltersBySender(t *testing.T) {
	svc, _, _ := testService(t)

	_, err := svc.HandleMessage(context.Background(), "s1", Message{Channel: "C1", SenderID: "U1", Text: "/schedule in 5m | task one"}, nil)
	require.NoError(t, err)
	_, err = svc.HandleMessage(context.Background(), "s2", Message{Channel: "C1", SenderID: "U2", Text: "/schedule in 5m | task two"}, nil)
	require.NoError(t, err)

	reply, err := svc.HandleMessage(context.Background(), "s1", Message{Channel: "C1", SenderID: "U1", Text: "/scheduled_tasks"}, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "task one")
	assert.NotContains(t, reply, "task two")
}

func TestService_UnscheduleTask(t *testing.T) {
	svc, _, bundle := testService(t)

	reply, err := svc.HandleMessage(context.Background(), "s1", Message{Channel: "C1", SenderID: "U1", Text: "/schedule in 5m | one-off job"}, nil)
	require.NoError(t, err)
	tasks, err := bundle.Tasks.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	id := tasks[0].ID

	reply, err = svc.HandleMessage(context.Background(), "s1", Message{Channel: "C1", SenderID: "U1", Text: "/unschedule_task " + id[:8]}, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "Unscheduled")

	remaining, err := bundle.Tasks.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestService_UnscheduleTask_NoMatch(t *testing.T) {
	svc, _, _ := testService(t)
	_, err := svc.HandleMessage(context.Background(), "s1", Message{Channel: "C1", SenderID: "U1", Text: "/unschedule_task zzzzzzzz"}, nil)
	assert.Error(t, err)
}

func TestService_ScheduledTaskHandler_SkipsWhenDeactivated(t *testing.T) {
	svc, runner, bundle := testService(t)

	task := newTestTask()
	task.Instruction = "send pnl"
	task.Channel = "C1"
	task.RecipientID = "U1"
	task.ScheduleKind = string(KindInterval)
	task.IntervalMinutes = 5
	require.NoError(t, bundle.Tasks.Create(context.Background(), task))
	require.NoError(t, bundle.Tasks.Deactivate(context.Background(), task.ID))

	handler := svc.scheduledTaskHandler(task)
	outcome, err := handler(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, scheduler.Never, outcome.NextRunOverride)
	assert.Empty(t, runner.calls, "deactivated task must not invoke the orchestrator")
}

func TestService_RestoreActiveTasks_ReregistersJobs(t *testing.T) {
	svc, _, bundle := testService(t)

	task := newTestTask()
	task.Instruction = "daily report"
	task.Channel = "C1"
	task.RecipientID = "U1"
	task.ScheduleKind = string(KindDaily)
	task.DailyTime = "09:00"
	require.NoError(t, bundle.Tasks.Create(context.Background(), task))

	require.NoError(t, svc.RestoreActiveTasks(context.Background()))

	status, err := svc.Scheduler.JobStatus(context.Background(), task.SchedulerJobName)
	require.NoError(t, err)
	require.NotNil(t, status)
}
