package autonomy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/models"
)

// submitOutcome is one candidate's terminal classification after sizing,
// risk check and submission (or observation-only suppression).
type submitOutcome struct {
	outcome models.JournalOutcome
	sizing *sizingResult
	clientOrderID string
	errMsg string
}

// sizeAndSubmit implements steps 5-8 for one gated candidate:
// size it, risk-check it, and submit it through the same trade-contract
// executor the orchestrator uses (pkg/tradecontract.Enforcer.PlaceOrder),
// which owns its own budget reservation lifecycle — autonomy never calls
// the spending limiter directly.
func (e *Engine) sizeAndSubmit(ctx context.Context, g *gatedExpression, policy *models.AutonomyPolicyState, observationOnly bool) *submitOutcome {
	if observationOnly {
		return &submitOutcome{outcome: models.JournalBlocked, errMsg: "observation-only window active"}
	}

	sizing, err := e.size(ctx, g, policy)
	if err != nil {
		return &submitOutcome{outcome: models.JournalFailed, errMsg: fmt.Sprintf("sizing failed: %v", err)}
	}
	if sizing == nil {
		return &submitOutcome{outcome: models.JournalBlocked, errMsg: "probe size below minimum order notional after clamping"}
	}

	riskCfg := &autonomyRiskConfig{PerTradeCapUsd: e.Config.PerTradeCapUsd, LeverageCap: e.Config.LeverageCap}
	if err := checkPerpRiskLimits(riskCfg, sizing); err != nil {
		return &submitOutcome{outcome: models.JournalBlocked, sizing: sizing, errMsg: err.Error()}
	}

	if e.Executor == nil {
		return &submitOutcome{outcome: models.JournalFailed, sizing: sizing, errMsg: "no executor wired"}
	}

	input := buildOrderInput(g.Plan, sizing)
	result := e.Executor.PlaceOrder(ctx, input)
	if !result.Success {
		return &submitOutcome{outcome: models.JournalFailed, sizing: sizing, errMsg: result.Error}
	}

	clientOrderID, _ := input["client_order_id"].(string)
	return &submitOutcome{outcome: models.JournalExecuted, sizing: sizing, clientOrderID: clientOrderID}
}

// buildOrderInput maps an ExpressionPlan + its resolved sizing onto a
// perp_place_order input map, filling in the entry-contract fields
// ValidateEntry requires for a non-reduce-only order that discovery
// doesn't itself model: a conservative archetype/hold/exit contract
// rather than a genuine per-trade thesis, since the autonomy loop has no
// discretionary exit plan beyond the venue-side TP/SL the executor
// attaches.
func buildOrderInput(plan *models.ExpressionPlan, sizing *sizingResult) map[string]any {
	archetype := "intraday"
	minHold := time.Hour
	if plan.NewsTrigger {
		archetype = "scalp"
		minHold = 5 * time.Minute
	}
	timeStopAtMs := time.Now().UnixMilli() + minHold.Milliseconds() + int64(5*time.Minute/time.Millisecond)

	return map[string]any{
		"symbol": plan.Symbol,
		"side": plan.Side,
		"size": sizing.SizeCoins,
		"leverage": sizing.Leverage,
		"reduce_only": false,
		"client_order_id": "auto-" + uuid.NewString(),
		"trade_archetype": archetype,
		"invalidation_type": "signal_reversal",
		"time_stop_at_ms": timeStopAtMs,
		"take_profit_r": 2.0,
		"trail_mode": "atr",
		"entry_trigger": plan.SignalClass,
		"market_regime": plan.Regime,
	}
}

// journalOutcome implements step 9: exactly one journal entry
// per candidate regardless of outcome, carrying the full context pack
// trace and session-weighted confidence.
func (e *Engine) journalOutcome(ctx context.Context, g *gatedExpression, outcome *submitOutcome) {
	if e.Journal == nil {
		return
	}
	plan := g.Plan

	trace := map[string]any{}
	for k, v := range plan.ContextPack {
		trace[k] = v
	}
	trace["signal_kinds"] = plan.SignalKinds
	trace["sample_count"] = plan.SampleCount
	if outcome.clientOrderID != "" {
		trace["client_order_id"] = outcome.clientOrderID
	}

	entry := &models.JournalEntry{
		ID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Outcome: outcome.outcome,
		Symbol: plan.Symbol,
		Side: plan.Side,
		SignalClass: plan.SignalClass,
		Regime: plan.Regime,
		VolatilityBucket: volatilityBucket(plan.Regime),
		LiquidityBucket: liquidityBucket(g.SessionWeight),
		ConfidenceRaw: plan.Confidence,
		ConfidenceWeighted: g.ConfidenceWeighted,
		SizingModifier: g.SessionWeight,
		ContextPackTrace: trace,
		Error: outcome.errMsg,
	}
	if plan.NewsTrigger {
		entry.NewsProvenance = "news_trigger"
	}
	if outcome.sizing != nil {
		entry.SizeUsd = outcome.sizing.ProbeSizeUsd
		entry.Leverage = outcome.sizing.Leverage
		entry.KellyFraction = outcome.sizing.KellyFraction
	}

	if err := e.Journal.Append(ctx, entry); err != nil {
		e.notify(ctx, "journal append failed for %s: %v", plan.Symbol, err)
	}
}

func volatilityBucket(regime string) string {
	switch regime {
	case "high_vol_expansion":
		return "high"
	case "low_vol_compression":
		return "low"
	default:
		return "normal"
	}
}

func liquidityBucket(weight float64) string {
	switch {
	case weight >= 0.9:
		return "deep"
	case weight >= 0.6:
		return "normal"
	default:
		return "thin"
	}
}
