// Package planner turns a goal into a Plan and revises it mid-run. It is
// the one place an LLM call is translated into the DAG-shaped PlanStep
// structure the orchestrator executes; everything downstream of
// createPlan/revisePlan only ever sees models.Plan.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/tools"
)

// Planner owns the single LLM seam used for plan creation and revision.
type Planner struct {
	client llm.Client
}

// New builds a Planner over client.
func New(client llm.Client) *Planner {
	return &Planner{client: client}
}

// CreateResult is createPlan's return shape.
type CreateResult struct {
	Plan *models.Plan
	Reasoning string
	Warnings []string
}

// wirePlan is the JSON shape the LLM is asked to produce — concrete tool
// inputs, no placeholders.
type wireStep struct {
	ID string `json:"id"`
	Description string `json:"description"`
	ToolName string `json:"tool_name,omitempty"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
	DependsOn []string `json:"depends_on,omitempty"`
}

type wirePlan struct {
	Steps []wireStep `json:"steps"`
	Confidence float64 `json:"confidence"`
	Reasoning string `json:"reasoning"`
}

// CreatePlan asks the LLM for a plan over goal, given the allowed tool
// schemas and an identity preamble, and normalizes the reply into a
// models.Plan. On any parse failure or empty reply, FallbackPlan is used
// instead.
func (p *Planner) CreatePlan(ctx context.Context, goal, memoryContext, identity string, mode models.Mode, allowedSchemas []tools.LLMSchema) (CreateResult, error) {
	if p.client == nil {
		return fallbackResult(goal, allowedSchemas), nil
	}

	prompt := buildPlanningPrompt(goal, memoryContext, mode, allowedSchemas)
	completion, err := p.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: identity},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.CompleteOptions{Temperature: 0.2})
	if err != nil {
		return fallbackResult(goal, allowedSchemas), fmt.Errorf("planner: create plan: %w", err)
	}

	wp, ok := parseWirePlan(completion.Content)
	if !ok {
		return fallbackResult(goal, allowedSchemas), nil
	}

	allowed := schemaNames(allowedSchemas)
	plan, warnings := planFromWire(goal, wp, allowed)
	return CreateResult{Plan: plan, Reasoning: wp.Reasoning, Warnings: warnings}, nil
}

// buildPlanningPrompt assembles the planning call's user turn: goal,
// memory, tool schemas and — for trade mode — the terminal-contract
// instruction.
func buildPlanningPrompt(goal, memoryContext string, mode models.Mode, schemas []tools.LLMSchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\n", goal)
	if memoryContext != "" {
		fmt.Fprintf(&b, "Context:\n%s\n\n", memoryContext)
	}
	b.WriteString("Available tools:\n")
	for _, s := range schemas {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	if mode == models.ModeTrade {
		b.WriteString("\nIf this goal calls for a trade, the plan must end in either the " +
			"perp_place_order or perp_cancel_order tool, or a non-tool step whose description " +
			"begins exactly \"NO_TRADE_DECISION:\". Use at most 3 pre-trade analysis steps.\n")
	}
	b.WriteString("\nReply with ONLY a JSON object: " +
		"{\"steps\": [{\"id\", \"description\", \"tool_name\"?, \"tool_input\"?, \"depends_on\"?}], " +
		"\"confidence\": 0..1, \"reasoning\": \"...\"}. Tool inputs must be concrete values, never placeholders.")
	return b.String()
}

func parseWirePlan(content string) (wirePlan, bool) {
	raw := extractJSONObject(content)
	if raw == "" {
		return wirePlan{}, false
	}
	var wp wirePlan
	if err := json.Unmarshal([]byte(raw), &wp); err != nil {
		return wirePlan{}, false
	}
	if len(wp.Steps) == 0 {
		return wirePlan{}, false
	}
	return wp, true
}

func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func schemaNames(schemas []tools.LLMSchema) map[string]bool {
	out := make(map[string]bool, len(schemas))
	for _, s := range schemas {
		out[s.Name] = true
	}
	return out
}

// planFromWire converts the LLM's wire plan into a models.Plan, remapping
// known tool aliases and downgrading unknown tools to non-tool steps.
func planFromWire(goal string, wp wirePlan, allowed map[string]bool) (*models.Plan, []string) {
	var warnings []string
	now := time.Now().UTC()
	steps := make([]*models.PlanStep, 0, len(wp.Steps))
	for _, ws := range wp.Steps {
		step := &models.PlanStep{
			ID: nonEmpty(ws.ID, uuid.NewString()),
			Description: ws.Description,
			ToolInput: ws.ToolInput,
			DependsOn: ws.DependsOn,
			Status: models.StepPending,
		}
		toolName := ws.ToolName
		if toolName != "" {
			if remapped, ok := ToolAliases[toolName]; ok {
				warnings = append(warnings, fmt.Sprintf("remapped unknown tool %q to %q", toolName, remapped))
				toolName = remapped
			}
			if allowed != nil && !allowed[toolName] {
				warnings = append(warnings, fmt.Sprintf("plan referenced unavailable tool %q; downgraded to a non-tool step", toolName))
				toolName = ""
			}
		}
		if toolName != "" {
			step.RequiresTool = true
			step.ToolName = toolName
		}
		steps = append(steps, step)
	}

	confidence := wp.Confidence
	if confidence <= 0 {
		confidence = 0.6
	}
	plan := &models.Plan{
		ID: uuid.NewString(),
		Goal: goal,
		Steps: steps,
		Confidence: confidence,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return plan, warnings
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ToolAliases remaps tool names the LLM commonly invents to the actual
// registered name.
var ToolAliases = map[string]string{
	"symbol_resolve": "perp_market_list",
	"market_lookup": "perp_market_list",
	"get_positions": "perp_positions",
	"get_open_orders": "perp_open_orders",
	"list_positions": "perp_positions",
	"journal_list": "perp_trade_journal_list",
	"review_trades": "trade_review",
	"news_search": "intel_search",
	"knowledge_query": "qmd_query",
	"place_order": "perp_place_order",
	"cancel_order": "perp_cancel_order",
	"wallet_info": "get_wallet_info",
	"portfolio": "get_portfolio",
}
