// Package reflector implements the post-tool belief update and the
// final-response audit: the Reflector turns one tool execution into a
// Reflection, and the Critic passes judgment on the synthesized
// response before it reaches the user.
package reflector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/models"
)

// Reflector is a pure LLM call over (state, toolContext) → Reflection.
type Reflector struct {
	client llm.Client
}

// New builds a Reflector over client.
func New(client llm.Client) *Reflector {
	return &Reflector{client: client}
}

type wireReflection struct {
	HypothesisUpdates map[string]string `json:"hypothesis_updates"`
	AssumptionUpdates map[string]string `json:"assumption_updates"`
	ConfidenceChange float64 `json:"confidence_change"`
	NewInformation []string `json:"new_information"`
	NextStep string `json:"next_step"`
	SuggestRevision bool `json:"suggest_revision"`
	RevisionReason string `json:"revision_reason"`
}

// revisionTriggerTerms is the closed set of reason substrings that let a
// suggested revision actually fire.
var revisionTriggerTerms = []string{
	"failed", "error", "unexpected", "mismatch", "invalid", "missing",
	"insufficient", "blocked", "no data",
}

// Reflect produces a Reflection over the just-completed execution and
// returns it already clamped/merged against state — callers apply the
// result's deltas via ApplyTo.
func (r *Reflector) Reflect(ctx context.Context, state *models.AgentState, exec *models.ToolExecution) (*models.Reflection, error) {
	if r.client == nil {
		return passthroughReflection(exec), nil
	}

	prompt := buildReflectionPrompt(state, exec)
	completion, err := r.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You update beliefs about an in-progress trading plan after one tool executes. Reply with ONLY a JSON object."},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.CompleteOptions{Temperature: 0.2})
	if err != nil {
		return passthroughReflection(exec), fmt.Errorf("reflector: %w", err)
	}

	raw := extractJSONObject(completion.Content)
	var wr wireReflection
	if raw == "" || json.Unmarshal([]byte(raw), &wr) != nil {
		return passthroughReflection(exec), nil
	}

	refl := &models.Reflection{
		HypothesisUpdates: wr.HypothesisUpdates,
		AssumptionUpdates: wr.AssumptionUpdates,
		ConfidenceChange: wr.ConfidenceChange,
		NewInformation: wr.NewInformation,
		NextStep: wr.NextStep,
		SuggestRevision: wr.SuggestRevision && shouldRevise(exec, wr.RevisionReason),
		RevisionReason: wr.RevisionReason,
	}
	return refl, nil
}

// shouldRevise implements its gate: SuggestRevision only fires
// when the last execution failed, or the reason matches a trigger term.
func shouldRevise(exec *models.ToolExecution, reason string) bool {
	if exec != nil && !exec.Success {
		return true
	}
	lower := strings.ToLower(reason)
	for _, term := range revisionTriggerTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// passthroughReflection is used when no LLM is configured or the call
// fails/parses badly — a no-op reflection that still lets the
// failed-execution revision gate fire.
func passthroughReflection(exec *models.ToolExecution) *models.Reflection {
	refl := &models.Reflection{}
	if exec != nil && !exec.Success {
		refl.SuggestRevision = true
		refl.RevisionReason = exec.Error
	}
	return refl
}

func buildReflectionPrompt(state *models.AgentState, exec *models.ToolExecution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\nMode: %s\nIteration: %d\n\n", state.Goal, state.Mode, state.Iteration)
	if exec != nil {
		fmt.Fprintf(&b, "Just executed: %s (success=%v)\n", exec.ToolName, exec.Success)
		if exec.Success {
			if data, err := json.Marshal(exec.Data); err == nil {
				fmt.Fprintf(&b, "Result: %s\n", data)
			}
		} else {
			fmt.Fprintf(&b, "Error: %s\n", exec.Error)
		}
	}
	b.WriteString("\nReply with ONLY: {\"hypothesis_updates\": {...}, \"assumption_updates\": {...}, " +
		"\"confidence_change\": -1..1, \"new_information\": [...], \"next_step\": \"...\", " +
		"\"suggest_revision\": bool, \"revision_reason\": \"...\"}.")
	return b.String()
}

// ApplyTo merges refl's deltas into state: confidence is clamped to
// [0,1], hypothesis/assumption maps are merged by key.
func ApplyTo(state *models.AgentState, refl *models.Reflection) {
	if refl == nil {
		return
	}
	state.Confidence += refl.ConfidenceChange
	if state.Confidence < 0 {
		state.Confidence = 0
	}
	if state.Confidence > 1 {
		state.Confidence = 1
	}
	for id, v := range refl.HypothesisUpdates {
		state.Hypotheses[id] = v
	}
	for id, v := range refl.AssumptionUpdates {
		state.Assumptions[id] = v
	}
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
