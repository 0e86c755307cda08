package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/tools"
)

// synthesize implements phase 6: one LLM call over the goal,
// memory, tool results, hypotheses and assumptions, at the mode's
// configured synthesis temperature.
func (o *Orchestrator) synthesize(ctx context.Context, state *models.AgentState, modeCfg *config.ModeConfig) string {
	if o.LLMClient == nil {
		return fallbackSynthesis(state)
	}

	prompt := buildSynthesisPrompt(state)
	completion, err := o.LLMClient.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: o.Identity},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.CompleteOptions{Temperature: modeCfg.SynthesisTemperature})
	if err != nil {
		state.RecordWarning(fmt.Sprintf("synthesis failed: %v", err))
		return fallbackSynthesis(state)
	}
	if strings.TrimSpace(completion.Content) == "" {
		return fallbackSynthesis(state)
	}
	return completion.Content
}

func buildSynthesisPrompt(state *models.AgentState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\nMode: %s\n\n", state.Goal, state.Mode)
	if state.MemoryContext != "" {
		fmt.Fprintf(&b, "Memory:\n%s\n\n", state.MemoryContext)
	}

	b.WriteString("Tool results:\n")
	for _, e := range state.ToolExecutions {
		if e.Skipped {
			fmt.Fprintf(&b, "- %s: skipped (%v)\n", e.ToolName, e.Data["skip_reason"])
			continue
		}
		if e.Success {
			fmt.Fprintf(&b, "- %s: %s\n", e.ToolName, tools.CanonicalJSON(e.Data))
		} else {
			fmt.Fprintf(&b, "- %s: FAILED: %s\n", e.ToolName, e.Error)
		}
	}

	if len(state.Hypotheses) > 0 {
		b.WriteString("\nHypotheses:\n")
		for k, v := range state.Hypotheses {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	if len(state.Assumptions) > 0 {
		b.WriteString("\nAssumptions:\n")
		for k, v := range state.Assumptions {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}

	fmt.Fprintf(&b, "\nConfidence: %.2f\n\n", state.Confidence)
	b.WriteString("Synthesize a final response for the user grounded only in the tool results above.")
	return b.String()
}

// fallbackSynthesis is used when no LLM client is wired or the call
// fails; it never blocks a run on an LLM outage.
func fallbackSynthesis(state *models.AgentState) string {
	successCount := 0
	for _, e := range state.ToolExecutions {
		if e.Success {
			successCount++
		}
	}
	return fmt.Sprintf("Completed %d/%d tool calls for: %s", successCount, len(state.ToolExecutions), state.Goal)
}
