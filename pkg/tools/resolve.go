package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/perpctl/tradeagent/pkg/llm"
)

// placeholderPatterns is the closed set of tokens that mark a plan step's
// toolInput as not-yet-concrete.
var placeholderPatterns = []string{
	"to_be_", "to_be_determined", "based_on_step", "tbd", "placeholder",
	"{...step...}", "fill_in",
}

// HasPlaceholder reports whether any value in input matches a placeholder
// pattern, triggering dynamic resolution before execution.
func HasPlaceholder(input map[string]any) bool {
	for _, v := range input {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		for _, p := range placeholderPatterns {
			if strings.Contains(lower, p) {
				return true
			}
		}
	}
	return false
}

const maxCompletedStepChars = 2000

// TruncateStepResult truncates a step's JSON result to the per-step
// budget used when building dynamic-resolution context.
func TruncateStepResult(resultJSON string) string {
	if len(resultJSON) <= maxCompletedStepChars {
		return resultJSON
	}
	return resultJSON[:maxCompletedStepChars]
}

// ResolveDynamicInput asks the LLM (temperature 0.1) to produce concrete
// parameters for a placeholder-bearing toolInput, using the JSON of
// previously completed steps and the tool's schema when available. On
// any failure to parse a JSON object back out, the original input is
// returned unchanged.
func ResolveDynamicInput(ctx context.Context, client llm.Client, toolName string, input map[string]any, schema map[string]any, completed []CompletedStep) map[string]any {
	if client == nil {
		return input
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tool %q requires concrete input parameters. The planner left placeholder values in:\n%s\n\n", toolName, CanonicalJSON(input))
	if schema != nil {
		fmt.Fprintf(&b, "Its input schema is:\n%s\n\n", CanonicalJSON(schema))
	}
	b.WriteString("Previously completed steps (truncated):\n")
	for _, s := range completed {
		fmt.Fprintf(&b, "- step %s (%s): %s\n", s.StepID, s.ToolName, TruncateStepResult(s.ResultJSON))
	}
	b.WriteString("\nReply with ONLY a JSON object of concrete parameter values for this tool call, no prose.")

	completion, err := client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You resolve placeholder tool parameters into concrete values from prior plan-step results."},
		{Role: llm.RoleUser, Content: b.String()},
	}, llm.CompleteOptions{Temperature: 0.1})
	if err != nil {
		return input
	}

	var resolved map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(completion.Content)), &resolved); err != nil {
		return input
	}
	return resolved
}

// extractJSONObject trims leading/trailing prose and code fences around a
// JSON object, the same tolerant-parse idiom the planner uses for plan
// JSON responses.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// symbolRequiredTools must have a symbol; symbolBenefitsTools strongly
// benefit from one but can run without.
var symbolRequiredTools = map[string]bool{
	"perp_market_get": true,
	"perp_analyze": true,
	"perp_place_order": true,
}

var symbolBenefitsTools = map[string]bool{
	"perp_open_orders": true,
	"perp_positions": true,
}

// ApplyDefaultSymbol inserts defaultSymbol (or "BTC") into input["symbol"]
// when toolName needs one and the planner omitted it.
func ApplyDefaultSymbol(toolName string, input map[string]any, defaultSymbol string) map[string]any {
	if !symbolRequiredTools[toolName] && !symbolBenefitsTools[toolName] {
		return input
	}
	if s, ok := input["symbol"].(string); ok && s != "" {
		return input
	}
	if defaultSymbol == "" {
		defaultSymbol = "BTC"
	}
	out := make(map[string]any, len(input)+1)
	for k, v := range input {
		out[k] = v
	}
	out["symbol"] = defaultSymbol
	return out
}
