package reflector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/models"
)

// Critic audits a synthesized response once per run.
type Critic struct {
	client llm.Client
}

// NewCritic builds a Critic over client.
func NewCritic(client llm.Client) *Critic {
	return &Critic{client: client}
}

// FragilityContext is folded into the critic prompt when a pre-trade
// fragility scan ran.
type FragilityContext struct {
	Market string
	Score float64
}

type wireCritic struct {
	Approved bool `json:"approved"`
	Issues []string `json:"issues"`
	RevisedResponse string `json:"revised_response"`
}

// Review audits response against state and an optional fragility
// context. On any LLM failure or unparseable reply, the response is
// approved unchanged — a critic outage must never block synthesis.
func (c *Critic) Review(ctx context.Context, state *models.AgentState, response string, fragility *FragilityContext) *models.CriticResult {
	if c.client == nil {
		return &models.CriticResult{Approved: true}
	}

	prompt := buildCriticPrompt(state, response, fragility)
	completion, err := c.client.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "You audit a trading agent's final response for contradictions with its own tool results. Reply with ONLY a JSON object."},
		{Role: llm.RoleUser, Content: prompt},
	}, llm.CompleteOptions{Temperature: 0.1})
	if err != nil {
		return &models.CriticResult{Approved: true}
	}

	raw := extractJSONObject(completion.Content)
	var wc wireCritic
	if raw == "" || json.Unmarshal([]byte(raw), &wc) != nil {
		return &models.CriticResult{Approved: true}
	}
	return &models.CriticResult{Approved: wc.Approved, Issues: wc.Issues, RevisedResponse: wc.RevisedResponse}
}

func buildCriticPrompt(state *models.AgentState, response string, fragility *FragilityContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\nMode: %s\n\nFinal response:\n%s\n\n", state.Goal, state.Mode, response)
	if fragility != nil {
		fmt.Fprintf(&b, "Pre-trade fragility scan: market=%s score=%.3f\n\n", fragility.Market, fragility.Score)
	}
	b.WriteString("Tool executions this run:\n")
	for _, e := range state.ToolExecutions {
		fmt.Fprintf(&b, "- %s success=%v error=%q\n", e.ToolName, e.Success, e.Error)
	}
	b.WriteString("\nReply with ONLY: {\"approved\": bool, \"issues\": [...], \"revised_response\": \"...\" (omit or empty if no revision)}.")
	return b.String()
}

// DeterministicFailureResponse builds the fallback response used when the
// critic disapproves and supplies no revision: successes,
// failed-attempt count, last error, a per-attempt breakdown of up to
// three failures, and the full list of tools run.
func DeterministicFailureResponse(executions []*models.ToolExecution) string {
	var successes, failures []*models.ToolExecution
	var executedTrades int
	for _, e := range executions {
		if e.Success {
			successes = append(successes, e)
			if models.IsTerminalTradeTool(e.ToolName) {
				executedTrades++
			}
		} else {
			failures = append(failures, e)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Action: Unable to complete the request safely; %d of %d tool calls succeeded, %d failed.\n",
		len(successes), len(executions), len(failures))

	if executedTrades > 0 {
		fmt.Fprintf(&b, "Book State: %d perp order(s) executed this run; verify current exposure directly.\n", executedTrades)
	} else {
		b.WriteString("Book State: unchanged by this run.\n")
	}

	switch {
	case len(failures) > 0:
		last := failures[len(failures)-1]
		fmt.Fprintf(&b, "Risk: last error was %q.\n", last.Error)
	case executedTrades > 0:
		b.WriteString("Risk: a trade executed this run but the response was rejected; confirm the fill and current exposure before acting further.\n")
	default:
		b.WriteString("Risk: no trade attempts were made.\n")
	}
	b.WriteString("Next Action: review the attempt breakdown below before retrying.\n\n")

	if len(failures) > 0 {
		b.WriteString("Failed attempts:\n")
		shown := failures
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for _, f := range shown {
			symbol, _ := f.Input["symbol"].(string)
			side, _ := f.Input["side"].(string)
			size, _ := f.Input["size"].(float64)
			reduceOnly, _ := f.Input["reduce_only"].(bool)
			fmt.Fprintf(&b, "- %s symbol=%s side=%s size=%v reduce_only=%v error=%q\n",
				f.ToolName, symbol, side, size, reduceOnly, f.Error)
		}
	}

	names := make([]string, 0, len(executions))
	for _, e := range executions {
		names = append(names, e.ToolName)
	}
	fmt.Fprintf(&b, "\nTools run: %s\n", strings.Join(names, ", "))
	return b.String()
}
