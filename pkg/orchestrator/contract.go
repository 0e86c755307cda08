package orchestrator

import (
	"fmt"
	"strings"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/tradecontract"
)

// hasContractShape reports whether response already contains all four
// contract lines, in order, each on its own line.
func hasContractShape(response string) bool {
	labels := []string{"Action:", "Book State:", "Risk:", "Next Action:"}
	idx := 0
	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if idx < len(labels) && strings.HasPrefix(trimmed, labels[idx]) {
			idx++
		}
	}
	return idx == len(labels)
}

// deterministicActionLine builds the deterministic "Action:" line: a
// count of executed terminal trade tool calls, or the last
// perp_place_order failure.
func deterministicActionLine(executions []*models.ToolExecution) string {
	executed := 0
	var lastPlaceOrderErr string
	for _, e := range executions {
		if e.Skipped || !models.IsTerminalTradeTool(e.ToolName) {
			continue
		}
		if e.Success {
			executed++
		} else if e.ToolName == "perp_place_order" {
			lastPlaceOrderErr = e.Error
		}
	}
	if executed > 0 {
		return fmt.Sprintf("Action: I executed %d perp order(s).", executed)
	}
	if lastPlaceOrderErr != "" {
		return fmt.Sprintf("Action: I did not execute a new perp order. Last perp_place_order failed: %s", lastPlaceOrderErr)
	}
	return "Action: I did not execute a new perp order."
}

// replaceActionLine overwrites response's first "Action:" line with
// deterministic, leaving the rest of the contract untouched.
func replaceActionLine(response, deterministic string) string {
	lines := strings.Split(response, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Action:") {
			lines[i] = deterministic
			return strings.Join(lines, "\n")
		}
	}
	return response
}

// buildFullContract replaces the entire reply with a four-line contract
// when the LLM's response didn't already carry that shape.
func buildFullContract(state *models.AgentState, deterministic string) string {
	var b strings.Builder
	b.WriteString(deterministic)
	b.WriteString("\n")
	b.WriteString("Book State: unchanged by this run.\n")
	if len(state.Plan.Blockers) > 0 {
		fmt.Fprintf(&b, "Risk: %d blocker(s) encountered during execution.\n", len(state.Plan.Blockers))
	} else {
		b.WriteString("Risk: no new blockers encountered.\n")
	}
	b.WriteString("Next Action: review the tool execution trace before retrying.")
	return b.String()
}

// EnforceResponseContract implements phase 8: in trade mode with
// execution intent, or whenever a terminal trade tool ran, the response
// must match the four-line Action/Book State/Risk/Next Action contract.
// An already-shaped reply only has its Action line overwritten with the
// deterministic summary; anything else is replaced wholesale.
func EnforceResponseContract(state *models.AgentState, response string) string {
	requiresContract := (state.Mode == models.ModeTrade && tradecontract.RequiresTerminalContract(state.Goal)) ||
	state.Plan.HasTerminalTradeStep()
	if !requiresContract {
		return response
	}

	deterministic := deterministicActionLine(state.ToolExecutions)
	if hasContractShape(response) {
		return replaceActionLine(response, deterministic)
	}
	return buildFullContract(state, deterministic)
}
