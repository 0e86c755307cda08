// Package models holds the core entities shared across the orchestrator,
// planner, autonomy loop and trade-contract layer. Types here are plain
// data — no package in this module depends on a specific store or LLM
// backend just to construct one of these.
package models

import "time"

// StepStatus is the one-shot lifecycle of a PlanStep.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepComplete StepStatus = "complete"
	StepFailed StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// PlanStep is an atomic, possibly tool-bound action within a Plan.
// Dependencies form a DAG: a step is ready iff every id in DependsOn has
// status StepComplete.
type PlanStep struct {
	ID string
	Description string
	RequiresTool bool
	ToolName string
	ToolInput map[string]any
	Status StepStatus
	DependsOn []string
	Result map[string]any
	Error string
	InjectedBy string // "" for planner-authored, else the remediation/terminal-fallback tag that injected this step
}

// Ready reports whether every dependency of the step has completed.
func (s *PlanStep) Ready(byID map[string]*PlanStep) bool {
	if s.Status != StepPending {
		return false
	}
	for _, dep := range s.DependsOn {
		d, ok := byID[dep]
		if !ok || d.Status != StepComplete {
			return false
		}
	}
	return true
}

// IsTerminalTrade reports whether this step satisfies the terminal trade
// contract : a terminal tool call, or a NO_TRADE_DECISION note.
func (s *PlanStep) IsTerminalTrade() bool {
	if s.RequiresTool && IsTerminalTradeTool(s.ToolName) {
		return true
	}
	return !s.RequiresTool && len(s.Description) >= len(NoTradeDecisionPrefix) &&
	s.Description[:len(NoTradeDecisionPrefix)] == NoTradeDecisionPrefix
}

// NoTradeDecisionPrefix marks a non-tool step as the plan's deliberate
// decision not to trade.
const NoTradeDecisionPrefix = "NO_TRADE_DECISION:"

// TerminalTradeTools is the closed set of tools that end a trade-mode plan.
var TerminalTradeTools = map[string]bool{
	"perp_place_order": true,
	"perp_cancel_order": true,
}

// IsTerminalTradeTool reports whether toolName is in the terminal set.
func IsTerminalTradeTool(toolName string) bool {
	return TerminalTradeTools[toolName]
}

// Plan is an ordered sequence of PlanSteps plus plan-level bookkeeping.
type Plan struct {
	ID string
	Goal string
	Steps []*PlanStep
	Confidence float64
	Blockers []string
	RevisionCount int
	Complete bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ByID indexes the plan's steps for O(1) dependency lookups.
func (p *Plan) ByID() map[string]*PlanStep {
	m := make(map[string]*PlanStep, len(p.Steps))
	for _, s := range p.Steps {
		m[s.ID] = s
	}
	return m
}

// ReadySteps returns every pending step whose dependencies are all
// complete, in declaration order.
func (p *Plan) ReadySteps() []*PlanStep {
	byID := p.ByID()
	var ready []*PlanStep
	for _, s := range p.Steps {
		if s.Ready(byID) {
			ready = append(ready, s)
		}
	}
	return ready
}

// RecomputeComplete sets Complete = true iff every step is terminal
// (complete or skipped); invariant 2 .
func (p *Plan) RecomputeComplete() {
	for _, s := range p.Steps {
		if s.Status != StepComplete && s.Status != StepSkipped {
			p.Complete = false
			return
		}
	}
	p.Complete = true
}

// HasTerminalTradeStep reports whether the plan already contains a
// terminal trade step in any status other than skipped.
func (p *Plan) HasTerminalTradeStep() bool {
	for _, s := range p.Steps {
		if s.Status == StepSkipped {
			continue
		}
		if s.IsTerminalTrade() {
			return true
		}
	}
	return false
}

// HasPendingTerminalTradeStep reports whether a not-yet-resolved terminal
// trade step exists (used by the trade progress guard, phase 5).
func (p *Plan) HasPendingTerminalTradeStep() bool {
	for _, s := range p.Steps {
		if s.Status == StepPending && s.IsTerminalTrade() {
			return true
		}
	}
	return false
}
