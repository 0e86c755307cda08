package planner

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/tools"
)

// keywordToolTable is the deterministic parse-failure fallback: a goal
// containing one of these keywords yields a minimal single-step plan
// against the matching tool.
var keywordToolTable = []struct {
	keywords []string
	tool string
}{
	{[]string{"portfolio", "positions", "holdings"}, "get_portfolio"},
	{[]string{"news", "headline", "intel"}, "intel_search"},
	{[]string{"market", "price", "funding"}, "perp_market_list"},
	{[]string{"wallet", "balance", "withdrawable"}, "get_wallet_info"},
}

// fallbackResult builds a CreateResult from the keyword table, or a
// single non-tool "respond from context" step with confidence 0.3 and a
// recorded blocker if no keyword matches.
func fallbackResult(goal string, allowedSchemas []tools.LLMSchema) CreateResult {
	plan := fallbackPlan(goal, schemaNames(allowedSchemas))
	return CreateResult{
		Plan: plan,
		Reasoning: "deterministic fallback: planner call failed or returned unparseable output",
		Warnings: []string{"used deterministic plan fallback"},
	}
}

func fallbackPlan(goal string, allowed map[string]bool) *models.Plan {
	now := time.Now().UTC()
	lower := strings.ToLower(goal)

	for _, entry := range keywordToolTable {
		if allowed != nil && !allowed[entry.tool] {
			continue
		}
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return &models.Plan{
					ID: uuid.NewString(),
					Goal: goal,
					Steps: []*models.PlanStep{{
						ID: uuid.NewString(),
						Description: "fallback: " + entry.tool,
						RequiresTool: true,
						ToolName: entry.tool,
						ToolInput: map[string]any{},
						Status: models.StepPending,
					}},
					Confidence: 0.5,
					CreatedAt: now,
					UpdatedAt: now,
				}
			}
		}
	}

	return &models.Plan{
		ID: uuid.NewString(),
		Goal: goal,
		Steps: []*models.PlanStep{{
			ID: uuid.NewString(),
			Description: "respond from context",
			Status: models.StepPending,
		}},
		Confidence: 0.3,
		Blockers: []string{"no planner rule matched this goal; responding from context only"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
