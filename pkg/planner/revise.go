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
)

// ReviseResult is revisePlan's return shape.
type ReviseResult struct {
	Plan *models.Plan
	Changes []string
	Confidence float64
}

type wireRevision struct {
	Steps []wireStep `json:"steps"`
	Confidence float64 `json:"confidence"`
	Changes []string `json:"changes"`
}

// RevisePlan asks the LLM to revise plan given reason and the triggering
// step's tool result, preserving prior step state unless the LLM
// explicitly supplies new values, and reduces confidence by ×0.9 on a
// successful parse or ×0.8 on parse failure.
func (p *Planner) RevisePlan(ctx context.Context, plan *models.Plan, reason string, memoryContext string, toolResult map[string]any, triggerStepID string) (ReviseResult, error) {
	if p.client == nil {
		return degradedRevision(plan), nil
	}

	prompt := buildRevisionPrompt(plan, reason, memoryContext, toolResult, triggerStepID)
	completion, err := p.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You revise an in-progress trading plan. Preserve completed/failed step results unless you have new information."},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.CompleteOptions{Temperature: 0.2})
	if err != nil {
		return degradedRevision(plan), fmt.Errorf("planner: revise plan: %w", err)
	}

	raw := extractJSONObject(completion.Content)
	if raw == "" {
		return degradedRevision(plan), nil
	}
	var wr wireRevision
	if err := json.Unmarshal([]byte(raw), &wr); err != nil || len(wr.Steps) == 0 {
		return degradedRevision(plan), nil
	}

	revised := mergeRevision(plan, wr)
	return ReviseResult{Plan: revised, Changes: wr.Changes, Confidence: revised.Confidence}, nil
}

func buildRevisionPrompt(plan *models.Plan, reason, memoryContext string, toolResult map[string]any, triggerStepID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Revision reason: %s\n", reason)
	fmt.Fprintf(&b, "Triggering step: %s\n", triggerStepID)
	if memoryContext != "" {
		fmt.Fprintf(&b, "Context:\n%s\n", memoryContext)
	}
	if toolResult != nil {
		b.WriteString("Triggering tool result:\n")
		if data, err := json.Marshal(toolResult); err == nil {
			b.Write(data)
			b.WriteString("\n")
		}
	}
	b.WriteString("Current plan steps:\n")
	for _, s := range plan.Steps {
		fmt.Fprintf(&b, "- %s [%s] %s (tool=%s)\n", s.ID, s.Status, s.Description, s.ToolName)
	}
	b.WriteString("\nReply with ONLY a JSON object: {\"steps\": [...], \"confidence\": 0..1, \"changes\": [\"...\"]}. " +
		"Include every step id that should remain, in its prior status unless you supply a new tool_input for a pending step.")
	return b.String()
}

// mergeRevision preserves prior step statuses/results/errors for any step
// id the LLM echoes back, applying only the fields it explicitly
// supplies (tool_input, description) to pending steps; new step ids are
// appended as fresh pending steps.
func mergeRevision(plan *models.Plan, wr wireRevision) *models.Plan {
	byID := plan.ByID()
	steps := make([]*models.PlanStep, 0, len(wr.Steps))
	for _, ws := range wr.Steps {
		if prior, ok := byID[ws.ID]; ok {
			updated := *prior
			if ws.ToolInput != nil && updated.Status == models.StepPending {
				updated.ToolInput = ws.ToolInput
			}
			if ws.Description != "" {
				updated.Description = ws.Description
			}
			if len(ws.DependsOn) > 0 {
				updated.DependsOn = ws.DependsOn
			}
			steps = append(steps, &updated)
			continue
		}
		steps = append(steps, &models.PlanStep{
			ID: nonEmpty(ws.ID, uuid.NewString()),
			Description: ws.Description,
			ToolName: ws.ToolName,
			ToolInput: ws.ToolInput,
			DependsOn: ws.DependsOn,
			RequiresTool: ws.ToolName != "",
			Status: models.StepPending,
		})
	}

	confidence := plan.Confidence * 0.9
	if wr.Confidence > 0 {
		confidence = wr.Confidence
	}
	plan.Steps = steps
	plan.Confidence = confidence
	plan.RevisionCount++
	plan.UpdatedAt = time.Now().UTC()
	plan.RecomputeComplete()
	return plan
}

// degradedRevision is applied when the LLM call or parse fails: the plan
// is returned unchanged except for the ×0.8 confidence penalty and an
// incremented revision count.
func degradedRevision(plan *models.Plan) ReviseResult {
	plan.Confidence *= 0.8
	plan.RevisionCount++
	plan.UpdatedAt = time.Now().UTC()
	return ReviseResult{Plan: plan, Changes: []string{"revision call failed; confidence reduced"}, Confidence: plan.Confidence}
}
