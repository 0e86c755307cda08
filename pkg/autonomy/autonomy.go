// Package autonomy implements the scheduled scan pipeline:
// discover candidate trade expressions, filter them through adaptive
// policy gates, size them with fractional Kelly plus session weighting,
// risk-check and submit them through the same trade-contract executor
// the orchestrator uses, and journal the outcome regardless. Cadence
// adaptation and the daily report are likewise exposed as plain methods
// rather than owning a timer loop: the scheduling control plane
// (pkg/scheduler) is what actually drives each tick, as an interval job
// plus a daily report job.
package autonomy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/store"
	"github.com/perpctl/tradeagent/pkg/tools"
	"github.com/perpctl/tradeagent/pkg/venue"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// Discoverer produces candidate trade expressions for one scan. Pluggable
// so the signal-generation strategy can evolve independently of the
// gating/sizing/submission pipeline around it.
type Discoverer interface {
	Discover(ctx context.Context) ([]*models.ExpressionPlan, error)
}

// Notifier emits a free-text line to the configured chat channels, both
// per-scan and for the daily report. Nil is a no-op, mirroring the
// orchestrator's OnConfirmation-is-optional pattern.
type Notifier func(ctx context.Context, message string)

// Engine owns one autonomy loop's dependencies. Like pkg/orchestrator's
// Orchestrator, it carries no run-local mutable state of its own — each
// Scan call is independently safe to run from any process holding the
// scheduler lease for the autonomy job.
type Engine struct {
	Config *config.AutonomyConfig
	Market venue.MarketClient
	Executor tools.Executor
	Journal store.Journal
	Policy store.AutonomyPolicyStore
	Limiter store.SpendingLimiter
	Discover Discoverer
	Notify Notifier

	// Symbols is the configured venue symbol set used for the volatility
	// pulse and discovery fan-out.
	Symbols []string
}

// ScanResult is one Scan call's outcome: what it decided and the
// scheduler-facing cadence decision for the next interval tick.
type ScanResult struct {
	Submitted int
	Blocked int
	Failed int
	NextIntervalSecs int
	ObservationOnly bool
}

// Scan runs one full pass steps 1-9: policy reflection,
// the observation-only gate, discovery, filtering, sizing, risk check,
// submission and journaling. It always returns the next interval the
// scheduler should use to reschedule the interval job, even on error.
func (e *Engine) Scan(ctx context.Context) (*ScanResult, error) {
	result := &ScanResult{NextIntervalSecs: e.Config.BaseIntervalSeconds}

	if err := e.applyReflectionMutation(ctx); err != nil {
		slog.Warn("autonomy: policy reflection mutation failed", "error", err)
	}

	if err := e.applyLossStreakPause(ctx); err != nil {
		slog.Warn("autonomy: loss-streak pause check failed", "error", err)
	}

	policy, err := e.Policy.Get(ctx)
	if err != nil {
		return result, err
	}

	nowMs := nowMillis()
	observationOnly := policy.ObservationOnly(nowMs)
	result.ObservationOnly = observationOnly

	result.NextIntervalSecs = e.nextInterval(ctx)

	candidates, err := e.discover(ctx)
	if err != nil {
		slog.Warn("autonomy: discovery failed", "error", err)
		return result, nil
	}

	surviving := e.applyGates(candidates, policy)
	for _, expr := range surviving {
		outcome := e.sizeAndSubmit(ctx, expr, policy, observationOnly)
		switch outcome.outcome {
		case models.JournalExecuted:
			result.Submitted++
		case models.JournalBlocked:
			result.Blocked++
		case models.JournalFailed:
			result.Failed++
		}
		e.journalOutcome(ctx, expr, outcome)
	}

	return result, nil
}

func (e *Engine) discover(ctx context.Context) ([]*models.ExpressionPlan, error) {
	if e.Discover == nil {
		return nil, nil
	}
	return e.Discover.Discover(ctx)
}

func (e *Engine) notify(ctx context.Context, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	slog.Info("autonomy: " + msg)
	if e.Notify != nil {
		e.Notify(ctx, msg)
	}
}
