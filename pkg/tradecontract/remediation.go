package tradecontract

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/models"
)

// Blocker is one tag in the closed classification set below.
type Blocker string

const (
	BlockerMissingSigner Blocker = "hyperliquid_missing_signer"
	BlockerNetworkTransient Blocker = "network_transient"
	BlockerRateLimited Blocker = "rate_limited"
	BlockerInvalidInput Blocker = "invalid_input"
	BlockerUnknownTool Blocker = "unknown_tool"
	BlockerMarketUnavailable Blocker = "market_unavailable"
	BlockerInsufficientBalance Blocker = "insufficient_balance"
	BlockerLeverageExceeded Blocker = "leverage_exceeded"
	BlockerReduceOnlyImpossible Blocker = "reduce_only_impossible"
	BlockerUnknown Blocker = "unknown"
)

// classifiers is evaluated in order; the first substring match wins.
var classifiers = []struct {
	blocker Blocker
	terms []string
}{
	{BlockerMissingSigner, []string{"missing signer", "no signer", "wallet not configured", "signing key"}},
	{BlockerNetworkTransient, []string{"timeout", "connection reset", "i/o timeout", "temporary failure", "context deadline exceeded"}},
	{BlockerRateLimited, []string{"rate limit", "429", "too many requests"}},
	{BlockerInvalidInput, []string{"invalid input", "validation failed", "bad request", "malformed"}},
	{BlockerUnknownTool, []string{"unknown tool"}},
	{BlockerMarketUnavailable, []string{"market unavailable", "symbol not found", "unknown market", "delisted"}},
	{BlockerInsufficientBalance, []string{"insufficient balance", "insufficient margin", "not enough margin", "insufficient funds"}},
	{BlockerLeverageExceeded, []string{"leverage exceeded", "max leverage", "leverage cap"}},
	{BlockerReduceOnlyImpossible, []string{"reduce-only", "reduce_only", "no position to reduce", "would increase position"}},
}

// ClassifyBlocker maps a tool error string to the closed blocker tag
// set above by substring match. Unmatched errors classify as BlockerUnknown.
func ClassifyBlocker(errMsg string) Blocker {
	lower := strings.ToLower(errMsg)
	for _, c := range classifiers {
		for _, term := range c.terms {
			if strings.Contains(lower, term) {
				return c.blocker
			}
		}
	}
	return BlockerUnknown
}

// remediationTable maps a blocker to the read-only tool(s) worth running
// before retrying. Mutating tools are never suggested here — remediation only
// gathers fresher information for the retry.
var remediationTable = map[Blocker][]string{
	BlockerNetworkTransient: {"get_portfolio"},
	BlockerRateLimited: {},
	BlockerMarketUnavailable: {"perp_market_list"},
	BlockerInsufficientBalance: {"get_wallet_info"},
	BlockerLeverageExceeded: {"perp_market_get"},
	BlockerReduceOnlyImpossible: {"perp_positions"},
}

// InjectRemediation appends remediation steps for failedStep's blocker,
// limited to tools named in availableTools, followed by a single retry
// step depending on every remediation step it added. Returns
// the ids of the steps it appended, in order, ending with the retry step;
// returns nil if the blocker has no remediation or nothing is available.
func InjectRemediation(plan *models.Plan, failedStep *models.PlanStep, blocker Blocker, availableTools map[string]bool) []string {
	candidates := remediationTable[blocker]
	var remediationIDs []string
	for _, tool := range candidates {
		if !availableTools[tool] {
			continue
		}
		step := &models.PlanStep{
			ID: fmt.Sprintf("remediation-%s", uuid.NewString()),
			Description: fmt.Sprintf("Remediation for %s: refresh via %s.", blocker, tool),
			RequiresTool: true,
			ToolName: tool,
			ToolInput: map[string]any{},
			Status: models.StepPending,
			InjectedBy: "remediation:" + string(blocker),
		}
		plan.Steps = append(plan.Steps, step)
		remediationIDs = append(remediationIDs, step.ID)
	}

	retry := &models.PlanStep{
		ID: fmt.Sprintf("retry-%s", uuid.NewString()),
		Description: fmt.Sprintf("Retry %s after remediation.", failedStep.ToolName),
		RequiresTool: true,
		ToolName: failedStep.ToolName,
		ToolInput: cloneInput(failedStep.ToolInput),
		Status: models.StepPending,
		DependsOn: append([]string{}, remediationIDs...),
		InjectedBy: "remediation:" + string(blocker),
	}
	plan.Steps = append(plan.Steps, retry)
	plan.RecomputeComplete()
	return append(remediationIDs, retry.ID)
}

func cloneInput(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
