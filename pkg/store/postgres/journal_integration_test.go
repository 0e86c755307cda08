package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/store"
	util "github.com/perpctl/tradeagent/test/util"
)

// These tests exercise the real SQL against a per-test schema on a shared
// testcontainer-provisioned Postgres instance (see test/util/database.go):
// one container shared across the package, an isolated schema per test.

func TestJournalStore_AppendAndRecent(t *testing.T) {
	bundle, _ := util.SetupTestDatabase(t)
	ctx := context.Background()

	entry := &models.JournalEntry{
		ID: "j1",
		CreatedAt: time.Now().UTC(),
		Outcome: models.JournalExecuted,
		Symbol: "BTC",
		ConfidenceRaw: 0.7,
		ContextPackTrace: map[string]any{
			"close_pnl_usd": 12.5,
		},
	}
	require.NoError(t, bundle.Journal.Append(ctx, entry))

	recent, err := bundle.Journal.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "BTC", recent[0].Symbol)
	assert.InDelta(t, 0.7, recent[0].ConfidenceRaw, 0.0001)

	pnls, err := bundle.Journal.RecentClosesPnL(ctx, 5)
	require.NoError(t, err)
	require.Len(t, pnls, 1)
	assert.InDelta(t, 12.5, pnls[0], 0.0001)
}

func TestJournalStore_Today_FiltersToCurrentDay(t *testing.T) {
	bundle, _ := util.SetupTestDatabase(t)
	ctx := context.Background()

	require.NoError(t, bundle.Journal.Append(ctx, &models.JournalEntry{
		ID: "today", CreatedAt: time.Now().UTC(), Outcome: models.JournalExecuted,
	}))
	require.NoError(t, bundle.Journal.Append(ctx, &models.JournalEntry{
		ID: "yesterday", CreatedAt: time.Now().UTC().AddDate(0, 0, -1), Outcome: models.JournalExecuted,
	}))

	today, err := bundle.Journal.Today(ctx)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "today", today[0].ID)
}

func TestTaskStore_CreateListDeactivate(t *testing.T) {
	bundle, _ := util.SetupTestDatabase(t)
	ctx := context.Background()

	task := &store.ScheduledTask{
		SchedulerJobName: "chat_task_1",
		Channel: "C1",
		RecipientID: "U1",
		ScheduleKind: "interval",
		IntervalMinutes: 15,
		Instruction: "send pnl",
	}
	require.NoError(t, bundle.Tasks.Create(ctx, task))
	assert.NotEmpty(t, task.ID)
	assert.True(t, task.Active)

	fetched, ok, err := bundle.Tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "send pnl", fetched.Instruction)

	active, err := bundle.Tasks.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, bundle.Tasks.Deactivate(ctx, task.ID))
	active, err = bundle.Tasks.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
