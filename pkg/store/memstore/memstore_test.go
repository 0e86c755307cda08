package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpendingStore_ReserveConfirmRelease(t *testing.T) {
	ctx := context.Background()
	s := &SpendingStore{DailyBudgetUsd: 100, reservations: map[string]reservation{}}

	id, ok, remaining, err := s.CheckAndReserve(ctx, 60, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 40.0, remaining)

	_, ok, _, err = s.CheckAndReserve(ctx, 50, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second reservation should not fit in the remaining budget")

	require.NoError(t, s.Confirm(ctx, id))
	left, err := s.RemainingToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40.0, left)
}

func TestSpendingStore_ReclaimsExpiredReservations(t *testing.T) {
	ctx := context.Background()
	s := &SpendingStore{DailyBudgetUsd: 100, reservations: map[string]reservation{}}

	_, ok, _, err := s.CheckAndReserve(ctx, 90, time.Nanosecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(time.Millisecond)

	_, ok, remaining, err := s.CheckAndReserve(ctx, 90, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired reservation should have been reclaimed")
	assert.Equal(t, 10.0, remaining)
}

func TestSchedulerStore_ClaimDueRespectsLease(t *testing.T) {
	ctx := context.Background()
	s := New().Scheduler
	require.NoError(t, s.Upsert(ctx, "scan", time.Now().Add(-time.Minute)))

	won, err := s.ClaimDue(ctx, time.Now(), "owner-a", time.Minute)
	require.NoError(t, err)
	require.Len(t, won, 1)

	won2, err := s.ClaimDue(ctx, time.Now(), "owner-b", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, won2, "a live lease must not be claimed by a second owner")

	require.NoError(t, s.Release(ctx, "scan", "owner-a", time.Now().Add(time.Hour)))
	won3, err := s.ClaimDue(ctx, time.Now(), "owner-b", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, won3, "next run was pushed an hour out")
}

func TestIncidentStore_FirstOccurrence(t *testing.T) {
	ctx := context.Background()
	s := New().Incidents

	first, err := s.FirstOccurrence(ctx, "perp_place_order", "rate_limited")
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, s.Record(ctx, &models.IncidentRecord{ToolName: "perp_place_order", BlockerKind: "rate_limited"}))

	again, err := s.FirstOccurrence(ctx, "perp_place_order", "rate_limited")
	require.NoError(t, err)
	assert.False(t, again)
}
