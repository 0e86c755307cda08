package models

import (
	"fmt"
	"time"
)

// Mode selects the allowed tools, iteration budget, critic requirement and
// synthesis temperature for a run.
type Mode string

const (
	ModeTrade Mode = "trade"
	ModeAnalysis Mode = "analysis"
	ModeAdmin Mode = "admin"
)

// ToolExecution is an append-only record of one tool call within a run.
type ToolExecution struct {
	ToolName string
	Input map[string]any
	Success bool
	Data map[string]any
	Error string
	Timestamp time.Time
	DurationMs int64
	Cached bool
	Skipped bool
	ClientOrderID string // set for mutating tools; invariant 6
}

// Reflection is the Reflector's belief-update output.
type Reflection struct {
	HypothesisUpdates map[string]string
	AssumptionUpdates map[string]string
	ConfidenceChange float64
	NewInformation []string
	NextStep string // advisory only; the planner is not required to follow it
	SuggestRevision bool
	RevisionReason string
}

// CriticResult is the critic's pass/fail verdict on the synthesized response.
type CriticResult struct {
	Approved bool
	Issues []string
	RevisedResponse string // empty means "no revision offered"
}

// AgentState is the single-owner mutable state of one orchestrator run.
type AgentState struct {
	SessionID string
	Goal string
	Mode Mode
	Iteration int
	Plan *Plan
	ToolExecutions []*ToolExecution
	MemoryContext string
	Assumptions map[string]string
	Hypotheses map[string]string
	Confidence float64
	Warnings []string
	Errors []string
	Response string
	CriticResult *CriticResult

	// ConsecutiveNonTerminalTradeToolSteps is the trade progress guard
	// counter: too many non-terminal trade tool steps in a row forces the
	// terminal contract to inject early.
	ConsecutiveNonTerminalTradeToolSteps int

	// FragilityScore holds the result of the one-shot pre-trade fragility
	// scan, if one ran.
	FragilityScore *float64
	FragilityMarket string

	Cancelled bool
}

// NewAgentState creates a fresh, empty run state.
func NewAgentState(sessionID, goal string, mode Mode) *AgentState {
	return &AgentState{
		SessionID: sessionID,
		Goal: goal,
		Mode: mode,
		Assumptions: map[string]string{},
		Hypotheses: map[string]string{},
		Confidence: 0.5,
	}
}

// RecordWarning appends a non-fatal warning; warnings never flip run success.
func (s *AgentState) RecordWarning(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// RecordError appends a fatal-candidate error. Only errors whose text
// contains "fatal" flip Success=false at the orchestrator boundary.
func (s *AgentState) RecordError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}
