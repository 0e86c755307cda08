// Package orchestrator implements the run(goal, context, options) state
// machine : mode detection, memory assembly, conditional
// prefetch, planning with terminal-contract enforcement, the execution
// loop (trade progress guard, skip rules, parallel read batching,
// fragility scan, blocker/remediation handling, reflection), synthesis,
// critic review and the final four-line response contract, finishing
// with a decision audit write.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/masking"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/planner"
	"github.com/perpctl/tradeagent/pkg/reflector"
	"github.com/perpctl/tradeagent/pkg/store"
	"github.com/perpctl/tradeagent/pkg/tools"
	"github.com/perpctl/tradeagent/pkg/tradecontract"
	"github.com/perpctl/tradeagent/pkg/venue"
)

// maxParallelReadSteps caps the concurrent read batch phase
// 5 ("MAX_PARALLEL_READ_STEPS=3").
const maxParallelReadSteps = 3

// maxConsecutiveNonTerminalTradeSteps is the trade progress guard
// threshold phase 5.
const maxConsecutiveNonTerminalTradeSteps = 3

// maxRevisionCount caps planner revisions per run.
const maxRevisionCount = 3

// Orchestrator owns every dependency a run needs. It holds no per-run
// mutable state itself — many runs may execute concurrently across
// sessions, each owning its own *models.AgentState and
// *tools.Context.
type Orchestrator struct {
	Config *config.Config
	Registry *tools.Registry
	Planner *planner.Planner
	Reflector *reflector.Reflector
	Critic *reflector.Critic

	Market venue.MarketClient
	Journal store.Journal
	Incidents store.Incidents
	Playbooks store.Playbooks
	LLMClient llm.Client
	Executor tools.Executor
	Limiter store.SpendingLimiter
	KnowledgeBase *tools.MCPClient
	IntelSearch tools.IntelSearchFunc
	OnConfirmation func(ctx context.Context, toolName string, input map[string]any) (bool, error)

	// Masker redacts credentials/wallet material from tool error text
	// before it is written to the journal. Nil disables
	// masking entirely; *masking.Service itself also tolerates a nil
	// receiver so callers never need to guard this field.
	Masker *masking.Service

	Identity string

	// FragilityScan computes the one-shot pre-trade fragility score of
	// phase 5, if wired. Nil disables the scan entirely.
	FragilityScan func(ctx context.Context, market string) (float64, error)
}

// RunOptions configures one orchestrator run").
type RunOptions struct {
	SessionID string
	Goal string
	SessionMemory string
	ForceMode models.Mode
	SkipPlanning bool
	ResumePlan *models.Plan
}

// RunResult is the run's outcome.
type RunResult struct {
	State *models.AgentState
	Response string
	Success bool
	Summary string
}

func (o *Orchestrator) newToolContext() *tools.Context {
	return &tools.Context{
		Config: o.Config,
		Market: o.Market,
		Journal: o.Journal,
		Incidents: o.Incidents,
		Playbooks: o.Playbooks,
		LLMClient: o.LLMClient,
		Executor: o.Executor,
		Limiter: o.Limiter,
		KnowledgeBase: o.KnowledgeBase,
		IntelSearch: o.IntelSearch,
		OnConfirmation: o.OnConfirmation,
	}
}

// Run executes one full orchestrator pass. It never returns a non-nil
// error for business-logic failures — the failure model
// folds planner/reflector/critic/tool exceptions into warnings or failed
// steps; only a cancelled context flips success=false via the "cancelled"
// error marker.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) *RunResult {
	mode := DetectMode(opts.Goal, opts.ForceMode)
	modeCfg, ok := o.Config.ModeByName(string(mode))
	if !ok {
		mode = models.ModeAnalysis
		modeCfg, _ = o.Config.ModeByName(string(mode))
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	state := models.NewAgentState(sessionID, opts.Goal, mode)
	state.Plan = &models.Plan{Goal: opts.Goal}
	tc := o.newToolContext()
	allowedTools := allowedToolSet(modeCfg)

	state.MemoryContext = o.AssembleMemory(ctx, opts.Goal, opts.SessionMemory, func(w string) { state.RecordWarning(w) })
	if prefetched := o.ConditionalPrefetch(ctx, state, opts.Goal, tc); prefetched != "" {
		state.MemoryContext = joinNonEmpty(state.MemoryContext, prefetched)
	}

	if ctx.Err() != nil {
		return o.cancelledResult(state)
	}

	o.plan(ctx, state, opts, modeCfg, allowedTools)

	if ctx.Err() != nil {
		return o.cancelledResult(state)
	}

	o.executionLoop(ctx, state, tc, modeCfg)

	if ctx.Err() != nil {
		return o.cancelledResult(state)
	}

	response := o.synthesize(ctx, state, modeCfg)

	var fragilityCtx *reflector.FragilityContext
	if state.FragilityScore != nil {
		fragilityCtx = &reflector.FragilityContext{Market: state.FragilityMarket, Score: *state.FragilityScore}
	}

	requiresCritic := modeCfg.RequireCritic || state.Plan.HasTerminalTradeStep()
	if requiresCritic && o.Critic != nil {
		result := o.Critic.Review(ctx, state, response, fragilityCtx)
		state.CriticResult = result
		if !result.Approved {
			if result.RevisedResponse != "" {
				response = result.RevisedResponse
			} else {
				response = reflector.DeterministicFailureResponse(state.ToolExecutions)
			}
		}
	}

	response = EnforceResponseContract(state, response)
	state.Response = response

	o.writeDecisionAudit(ctx, state)

	return &RunResult{
		State: state,
		Response: response,
		Success: len(state.Errors) == 0,
		Summary: summarize(state),
	}
}

func (o *Orchestrator) cancelledResult(state *models.AgentState) *RunResult {
	state.Cancelled = true
	state.RecordError("cancelled")
	return &RunResult{State: state, Response: "", Success: false, Summary: "run cancelled"}
}

func allowedToolSet(modeCfg *config.ModeConfig) map[string]bool {
	out := make(map[string]bool, len(modeCfg.AllowedTools))
	for _, t := range modeCfg.AllowedTools {
		out[t] = true
	}
	return out
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n\n" + b
}

func summarize(state *models.AgentState) string {
	return fmt.Sprintf("mode=%s iterations=%d tool_calls=%d warnings=%d errors=%d",
		state.Mode, state.Iteration, len(state.ToolExecutions), len(state.Warnings), len(state.Errors))
}

func (o *Orchestrator) plan(ctx context.Context, state *models.AgentState, opts RunOptions, modeCfg *config.ModeConfig, allowedTools map[string]bool) {
	if opts.SkipPlanning {
		return
	}
	if opts.ResumePlan != nil && opts.ResumePlan.Goal == opts.Goal {
		state.Plan = opts.ResumePlan
	} else {
		schemas := filterSchemas(o.Registry.GetLLMSchemas(), allowedTools)
		result, err := o.Planner.CreatePlan(ctx, opts.Goal, state.MemoryContext, o.Identity, state.Mode, schemas)
		if err != nil {
			state.RecordWarning(fmt.Sprintf("planning failed: %v", err))
		}
		state.Plan = result.Plan
		state.Warnings = append(state.Warnings, result.Warnings...)
	}

	if state.Mode == models.ModeTrade {
		warnings := tradecontract.InjectTerminalContract(state.Plan, opts.Goal, allowedTools)
		state.Warnings = append(state.Warnings, warnings...)
	}
}

func filterSchemas(all []tools.LLMSchema, allowed map[string]bool) []tools.LLMSchema {
	out := make([]tools.LLMSchema, 0, len(all))
	for _, s := range all {
		if allowed[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

func (o *Orchestrator) writeDecisionAudit(ctx context.Context, state *models.AgentState) {
	if o.Journal == nil {
		return
	}
	if state.Mode != models.ModeTrade && !state.Plan.HasTerminalTradeStep() {
		return
	}

	outcome := models.JournalExecuted
	var lastErr string
	for _, e := range state.ToolExecutions {
		if !e.Success {
			outcome = models.JournalFailed
			lastErr = e.Error
		}
	}

	trace := map[string]any{
		"goal": state.Goal,
		"mode": string(state.Mode),
		"iterations": state.Iteration,
		"confidence": state.Confidence,
		"critic_approved": state.CriticResult != nil && state.CriticResult.Approved,
		"tool_calls": o.toolCallTrace(state.ToolExecutions),
		"plan_trace": planTrace(state.Plan),
	}
	if state.CriticResult != nil {
		trace["critic_issues"] = state.CriticResult.Issues
	}
	if state.FragilityScore != nil {
		trace["fragility_score"] = *state.FragilityScore
		trace["fragility_market"] = state.FragilityMarket
	}

	entry := &models.JournalEntry{
		ID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Outcome: outcome,
		ConfidenceRaw: state.Confidence,
		ContextPackTrace: trace,
		Error: o.Masker.Mask(lastErr),
	}
	if symbol := inferSymbol(state.Goal, o.Config.Venue.ConfiguredSymbols); symbol != "" {
		entry.Symbol = symbol
	}
	if err := o.Journal.Append(ctx, entry); err != nil {
		state.RecordWarning(fmt.Sprintf("decision audit write failed: %v", err))
	}
}

func (o *Orchestrator) toolCallTrace(execs []*models.ToolExecution) []map[string]any {
	out := make([]map[string]any, 0, len(execs))
	for _, e := range execs {
		out = append(out, map[string]any{
			"tool": e.ToolName, "success": e.Success, "error": o.Masker.Mask(e.Error), "cached": e.Cached, "skipped": e.Skipped,
			"input": o.Masker.MaskToolResult(tools.CanonicalJSON(e.Input)),
			"result": o.Masker.MaskToolResult(tools.CanonicalJSON(e.Data)),
		})
	}
	return out
}

func planTrace(plan *models.Plan) []map[string]any {
	if plan == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		out = append(out, map[string]any{
			"id": s.ID, "tool": s.ToolName, "status": string(s.Status), "injected_by": s.InjectedBy,
		})
	}
	return out
}
