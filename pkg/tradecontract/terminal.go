package tradecontract

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/models"
)

// InjectedByTerminal tags a step appended by terminal-contract injection.
const InjectedByTerminal = "terminal_contract"

// InjectTerminalContract appends the read-steps-then-order chain when
// goal has execution intent, the plan has no terminal trade step, and no
// NO_TRADE_DECISION step exists. availableTools names the
// tools the current mode actually allows; injection silently skips any
// read step whose tool isn't available, and emits a warning instead of
// injecting at all if perp_place_order itself isn't available.
func InjectTerminalContract(plan *models.Plan, goal string, availableTools map[string]bool) (warnings []string) {
	if !RequiresTerminalContract(goal) {
		return nil
	}
	if plan.HasTerminalTradeStep() {
		return nil
	}
	for _, s := range plan.Steps {
		if !s.RequiresTool && len(s.Description) >= len(models.NoTradeDecisionPrefix) &&
		s.Description[:len(models.NoTradeDecisionPrefix)] == models.NoTradeDecisionPrefix {
			return nil
		}
	}
	if !availableTools["perp_place_order"] {
		return []string{"terminal contract injection skipped: perp_place_order is not available in this mode"}
	}

	var lastID string
	readTools := []string{"get_portfolio", "perp_open_orders"}
	for _, tool := range readTools {
		if !availableTools[tool] {
			continue
		}
		step := &models.PlanStep{
			ID: fmt.Sprintf("terminal-read-%s", uuid.NewString()),
			Description: fmt.Sprintf("Read %s before placing the terminal order.", tool),
			RequiresTool: true,
			ToolName: tool,
			ToolInput: map[string]any{},
			Status: models.StepPending,
			InjectedBy: InjectedByTerminal,
		}
		if lastID != "" {
			step.DependsOn = []string{lastID}
		}
		plan.Steps = append(plan.Steps, step)
		lastID = step.ID
	}

	orderStep := &models.PlanStep{
		ID: fmt.Sprintf("terminal-order-%s", uuid.NewString()),
		Description: "Place the terminal order implied by the goal.",
		RequiresTool: true,
		ToolName: "perp_place_order",
		ToolInput: map[string]any{
			"symbol": "to_be_determined_from_step_results",
			"side": "to_be_determined_from_step_results",
			"size": "to_be_determined_from_step_results",
		},
		Status: models.StepPending,
		InjectedBy: InjectedByTerminal,
	}
	if lastID != "" {
		orderStep.DependsOn = []string{lastID}
	}
	plan.Steps = append(plan.Steps, orderStep)
	plan.RecomputeComplete()
	return nil
}
