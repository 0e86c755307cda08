package orchestrator

import (
	"context"
	"fmt"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/tools"
)

// maybeRunFragilityScan implements phase 5: before the first
// perp_place_order execution in a run, if a market client and a scan
// function are wired, run a one-shot fragility scan on the inferred
// market and store it on state. The scan never blocks the run on
// failure, and runs at most once per run.
func (o *Orchestrator) maybeRunFragilityScan(ctx context.Context, state *models.AgentState, step *models.PlanStep, tc *tools.Context) {
	if step.ToolName != "perp_place_order" {
		return
	}
	if state.FragilityScore != nil {
		return
	}
	if o.FragilityScan == nil || o.Market == nil {
		return
	}

	market, _ := step.ToolInput["symbol"].(string)
	if market == "" {
		market = inferSymbol(state.Goal, o.Config.Venue.ConfiguredSymbols)
	}
	if market == "" {
		return
	}

	score, err := o.FragilityScan(ctx, market)
	if err != nil {
		state.RecordWarning(fmt.Sprintf("fragility scan failed for %s: %v", market, err))
		return
	}

	state.FragilityScore = &score
	state.FragilityMarket = market
}
