package autonomy

import (
	"context"
	"fmt"

	"github.com/perpctl/tradeagent/pkg/models"
)

// applyReflectionMutation implements step 1: before each scan,
// the loop reflects on recent journal activity and tightens or relaxes
// its own gates. The rule is deliberately conservative and one-sided —
// it only ever tightens min edge / lowers the per-scan trade cap in
// response to a run of failures or blocks, and lets those overrides
// expire back to config defaults once recent history is clean again,
// rather than ever loosening below the configured baseline.
func (e *Engine) applyReflectionMutation(ctx context.Context) error {
	recent, err := e.Journal.Recent(ctx, 20)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}

	failed, blocked := 0, 0
	for _, entry := range recent {
		switch entry.Outcome {
		case models.JournalFailed:
			failed++
		case models.JournalBlocked:
			blocked++
		}
	}
	troubled := failed + blocked
	ratio := float64(troubled) / float64(len(recent))

	return e.Policy.Mutate(ctx, func(p *models.AutonomyPolicyState) error {
		switch {
		case ratio >= 0.5:
			edge := e.Config.MinEdge * 1.5
			scanCap := 1
			p.MinEdgeOverride = &edge
			p.MaxTradesPerScanOverride = &scanCap
			p.Reason = fmt.Sprintf("tightened after %d/%d recent entries failed or blocked", troubled, len(recent))
		case ratio >= 0.25:
			edge := e.Config.MinEdge * 1.2
			p.MinEdgeOverride = &edge
			p.Reason = fmt.Sprintf("mildly tightened after %d/%d recent entries failed or blocked", troubled, len(recent))
		default:
			p.MinEdgeOverride = nil
			p.MaxTradesPerScanOverride = nil
			p.Reason = ""
		}
		return nil
	})
}

// applyLossStreakPause implements its loss-streak pause: n
// consecutive closed-trade losses suppress new submissions for a
// configured window by setting ObservationOnlyUntilMs, reusing the same
// gate the scan pipeline already checks every tick.
// The window lapses on its own on a later tick once time has passed, so
// there is no separate resume path to maintain.
func (e *Engine) applyLossStreakPause(ctx context.Context) error {
	threshold := e.Config.LossStreakThreshold
	if threshold <= 0 {
		return nil
	}
	pnls, err := e.Journal.RecentClosesPnL(ctx, threshold)
	if err != nil {
		return err
	}
	if len(pnls) < threshold {
		return nil
	}
	for _, pnl := range pnls {
		if pnl >= 0 {
			return nil
		}
	}

	pauseSeconds := e.Config.LossStreakPauseSeconds
	if pauseSeconds <= 0 {
		pauseSeconds = e.Config.MaxIntervalSeconds
	}
	until := nowMillis() + int64(pauseSeconds)*1000

	return e.Policy.Mutate(ctx, func(p *models.AutonomyPolicyState) error {
		if p.ObservationOnlyUntilMs != nil && *p.ObservationOnlyUntilMs >= until {
			return nil
		}
		p.ObservationOnlyUntilMs = &until
		p.Reason = fmt.Sprintf("observation-only after %d consecutive losing closes", threshold)
		return nil
	})
}
