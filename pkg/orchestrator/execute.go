package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/planner"
	"github.com/perpctl/tradeagent/pkg/reflector"
	"github.com/perpctl/tradeagent/pkg/tools"
	"github.com/perpctl/tradeagent/pkg/tradecontract"
)

func shouldContinue(state *models.AgentState) bool {
	return state.Plan != nil && !state.Plan.Complete && !state.Cancelled
}

// executionLoop implements phase 5 in full.
func (o *Orchestrator) executionLoop(ctx context.Context, state *models.AgentState, tc *tools.Context, modeCfg *config.ModeConfig) {
	if state.Plan == nil {
		return
	}

	for shouldContinue(state) && state.Iteration < modeCfg.MaxIterations {
		if ctx.Err() != nil {
			return
		}

		if state.Mode == models.ModeTrade {
			o.applyTradeProgressGuard(state)
		}

		ready := state.Plan.ReadySteps()
		if len(ready) == 0 {
			state.Plan.RecomputeComplete()
			break
		}

		first := ready[0]
		if reason := o.skipReason(state, first, modeCfg); reason != "" {
			recordSyntheticSkip(state, first, reason)
			state.Iteration++
			continue
		}

		batch := o.collectReadBatch(ready)
		if len(batch) > 1 {
			results, cached := o.executeBatch(ctx, batch, tc)
			for i, step := range batch {
				o.applyExecutionResult(ctx, state, step, results[i], cached[i], tc, false)
			}
		} else {
			o.maybeRunFragilityScan(ctx, state, first, tc)
			result, cached := o.Registry.Execute(ctx, first.ToolName, o.resolveStepInput(ctx, first, tc), tc)
			o.applyExecutionResult(ctx, state, first, result, cached, tc, true)
		}

		state.Iteration++
	}
	state.Plan.RecomputeComplete()
}

// resolveStepInput applies the default-symbol guardrail and dynamic input
// resolution before a step executes.
func (o *Orchestrator) resolveStepInput(ctx context.Context, step *models.PlanStep, tc *tools.Context) map[string]any {
	input := step.ToolInput
	if input == nil {
		input = map[string]any{}
	}

	defaultSymbol := o.Config.TradeContract.DefaultSymbol
	if defaultSymbol == "" {
		defaultSymbol = "BTC"
	}
	if len(o.Config.Venue.ConfiguredSymbols) > 0 {
		defaultSymbol = o.Config.Venue.ConfiguredSymbols[0]
	}
	input = tools.ApplyDefaultSymbol(step.ToolName, input, defaultSymbol)

	if tools.HasPlaceholder(input) {
		var schema *tools.LLMSchema
		if d, ok := o.Registry.Get(step.ToolName); ok {
			schema = &tools.LLMSchema{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
		}
		input = tools.ResolveDynamicInput(ctx, o.LLMClient, step.ToolName, input, schema, tc.CompletedSteps)
	}

	step.ToolInput = input
	return input
}

// skipReason implements its two skip rules; empty string means
// the step should execute normally.
func (o *Orchestrator) skipReason(state *models.AgentState, step *models.PlanStep, modeCfg *config.ModeConfig) string {
	if !step.RequiresTool {
		return ""
	}

	if step.ToolName == "tools.list" {
		seenUnknownToolFailure := false
		alreadyListed := false
		for _, e := range state.ToolExecutions {
			if e.ToolName == "tools.list" && e.Success {
				alreadyListed = true
			}
			if !e.Success && strings.Contains(strings.ToLower(e.Error), "unknown tool") {
				seenUnknownToolFailure = true
			}
		}
		if alreadyListed && !seenUnknownToolFailure {
			return "redundant tools.list"
		}
	}

	if d, ok := o.Registry.Get(step.ToolName); ok && d.SideEffects {
		if !tradecontract.RequiresTerminalContract(state.Goal) {
			return "mutating tool skipped for an analysis-style goal"
		}
	}

	return ""
}

func recordSyntheticSkip(state *models.AgentState, step *models.PlanStep, reason string) {
	step.Status = models.StepSkipped
	state.ToolExecutions = append(state.ToolExecutions, &models.ToolExecution{
		ToolName: step.ToolName,
		Input: step.ToolInput,
		Success: true,
		Data: map[string]any{"skip_reason": reason},
		Timestamp: time.Now().UTC(),
		Cached: true,
		Skipped: true,
	})
}

// collectReadBatch gathers the prefix of ready that is entirely read-only
// (SideEffects=false, RequiresConfirmation=false), up to
// maxParallelReadSteps.
func (o *Orchestrator) collectReadBatch(ready []*models.PlanStep) []*models.PlanStep {
	var batch []*models.PlanStep
	for _, step := range ready {
		if len(batch) >= maxParallelReadSteps {
			break
		}
		if !step.RequiresTool {
			break
		}
		d, ok := o.Registry.Get(step.ToolName)
		if !ok || d.SideEffects || d.RequiresConfirmation {
			break
		}
		batch = append(batch, step)
	}
	if len(batch) < 2 {
		return nil
	}
	return batch
}

func (o *Orchestrator) executeBatch(ctx context.Context, batch []*models.PlanStep, tc *tools.Context) ([]tools.Result, []bool) {
	results := make([]tools.Result, len(batch))
	cached := make([]bool, len(batch))
	var wg sync.WaitGroup
	for i, step := range batch {
		wg.Add(1)
		go func(i int, step *models.PlanStep) {
			defer wg.Done()
			input := o.resolveStepInput(ctx, step, tc)
			res, hit := o.Registry.Execute(ctx, step.ToolName, input, tc)
			results[i] = res
			cached[i] = hit
		}(i, step)
	}
	wg.Wait()
	return results, cached
}

// applyExecutionResult marks step terminal, records the ToolExecution,
// runs blocker detection + remediation injection on failure, reflects,
// and — when allowRevision — conditionally calls plan revision (disabled
// for batched steps).
func (o *Orchestrator) applyExecutionResult(ctx context.Context, state *models.AgentState, step *models.PlanStep, result tools.Result, cached bool, tc *tools.Context, allowRevision bool) {
	exec := &models.ToolExecution{
		ToolName: step.ToolName,
		Input: step.ToolInput,
		Success: result.Success,
		Data: result.Data,
		Error: result.Error,
		Timestamp: time.Now().UTC(),
		Cached: cached,
	}
	state.ToolExecutions = append(state.ToolExecutions, exec)
	tc.CompletedSteps = append(tc.CompletedSteps, tools.CompletedStep{
		StepID: step.ID, ToolName: step.ToolName, ResultJSON: tools.CanonicalJSON(result.Data),
	})

	if result.Success {
		step.Status = models.StepComplete
		step.Result = result.Data
		o.updateTradeProgressCounter(state, step, true)
	} else {
		step.Status = models.StepFailed
		step.Error = result.Error
		o.updateTradeProgressCounter(state, step, false)

		blocker := tradecontract.ClassifyBlocker(result.Error)
		state.Plan.Blockers = append(state.Plan.Blockers, string(blocker))
		o.recordIncident(ctx, step.ToolName, blocker, result.Error)

		allowed := make(map[string]bool)
		for _, name := range o.Registry.ListNames() {
			allowed[name] = true
		}
		tradecontract.InjectRemediation(state.Plan, step, blocker, allowed)
	}

	refl, err := o.Reflector.Reflect(ctx, state, exec)
	if err != nil {
		state.RecordWarning(fmt.Sprintf("reflection failed: %v", err))
	}
	if refl != nil {
		reflector.ApplyTo(state, refl)
		if allowRevision && refl.SuggestRevision && state.Plan.RevisionCount < maxRevisionCount {
			o.reviseAfterReflection(ctx, state, step, refl, result)
		}
	}
}

func (o *Orchestrator) reviseAfterReflection(ctx context.Context, state *models.AgentState, step *models.PlanStep, refl *models.Reflection, result tools.Result) {
	revResult, err := o.Planner.RevisePlan(ctx, state.Plan, refl.RevisionReason, state.MemoryContext, result.Data, step.ID)
	if err != nil {
		state.RecordWarning(fmt.Sprintf("revision failed: %v", err))
		return
	}
	state.Plan = revResult.Plan
	if cycleErr := planner.AssertAcyclic(state.Plan); cycleErr != nil {
		state.RecordWarning(cycleErr.Error())
	}
}

func (o *Orchestrator) recordIncident(ctx context.Context, toolName string, blocker tradecontract.Blocker, detail string) {
	if o.Incidents == nil {
		return
	}
	first, err := o.Incidents.FirstOccurrence(ctx, toolName, string(blocker))
	if err == nil {
		_ = o.Incidents.Record(ctx, &models.IncidentRecord{
			ID: uuid.NewString(), ToolName: toolName, BlockerKind: string(blocker), Detail: detail, CreatedAt: time.Now().UTC(),
		})
		if first && o.Playbooks != nil {
			_ = o.Playbooks.Seed(ctx, &models.Playbook{
				Key: toolName + ":" + string(blocker),
				Title: fmt.Sprintf("%s failures: %s", toolName, blocker),
				Content: fmt.Sprintf("First observed %s on %s: %s. Consider the remediation table entry for this blocker before retrying.", blocker, toolName, detail),
				UpdatedAt: time.Now().UTC(),
			})
		}
	}
}

// updateTradeProgressCounter maintains AgentState's consecutive
// non-terminal trade tool step counter.
func (o *Orchestrator) updateTradeProgressCounter(state *models.AgentState, step *models.PlanStep, succeeded bool) {
	if state.Mode != models.ModeTrade || !step.RequiresTool {
		return
	}
	if step.IsTerminalTrade() {
		state.ConsecutiveNonTerminalTradeToolSteps = 0
		return
	}
	if succeeded {
		state.ConsecutiveNonTerminalTradeToolSteps++
	}
}

// applyTradeProgressGuard implements phase 5: past the
// threshold with no pending terminal step, skip remaining non-terminal
// pending steps and inject a terminal fallback.
func (o *Orchestrator) applyTradeProgressGuard(state *models.AgentState) {
	if state.ConsecutiveNonTerminalTradeToolSteps <= maxConsecutiveNonTerminalTradeSteps {
		return
	}
	if state.Plan.HasPendingTerminalTradeStep() {
		return
	}

	for _, s := range state.Plan.Steps {
		if s.Status == models.StepPending && !s.IsTerminalTrade() {
			s.Status = models.StepSkipped
		}
	}

	fallback := &models.PlanStep{
		ID: fmt.Sprintf("guard-fallback-%s", uuid.NewString()),
		Description: "Trade progress guard fallback: place the terminal order now.",
		RequiresTool: true,
		ToolName: "perp_place_order",
		ToolInput: map[string]any{
			"symbol": "to_be_determined_from_step_results",
			"side": "to_be_determined_from_step_results",
			"size": "to_be_determined_from_step_results",
		},
		Status: models.StepPending,
		InjectedBy: "trade_progress_guard",
	}
	state.Plan.Steps = append(state.Plan.Steps, fallback)
	state.ConsecutiveNonTerminalTradeToolSteps = 0
	state.RecordWarning("trade progress guard: too many non-terminal steps, injecting fallback order step")
}
