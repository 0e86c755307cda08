package models

import "time"

// TradeEnvelope is the durable metadata attached to a live position, as
// produced by a successful entry.
type TradeEnvelope struct {
	Symbol string
	Side string
	SizeCoins float64
	EntryPrice float64
	StopLossCloID string
	TakeProfitCloID string
	ExpiresAt time.Time
	InvalidationType string
	InvalidationPrice *float64
	TradeArchetype string
	TimeStopAtMs int64
	TakeProfitR float64
	TrailMode string
}

// JournalOutcome is the terminal classification of one journal entry.
type JournalOutcome string

const (
	JournalExecuted JournalOutcome = "executed"
	JournalFailed JournalOutcome = "failed"
	JournalBlocked JournalOutcome = "blocked"
)

// JournalEntry is exactly one immutable record per observed tool call of
// interest.
type JournalEntry struct {
	ID string
	PriorEntryID string // non-empty when this entry supersedes PriorEntryID
	CreatedAt time.Time
	Outcome JournalOutcome
	Symbol string
	Side string
	SizeUsd float64
	Leverage float64
	ReduceOnly bool
	SignalClass string
	Regime string
	VolatilityBucket string
	LiquidityBucket string
	NewsProvenance string
	ConfidenceRaw float64
	ConfidenceWeighted float64
	SizingModifier float64
	KellyFraction float64
	ContextPackTrace map[string]any
	Error string
}

// IncidentRecord is an append-only failure record keyed by
// (ToolName, BlockerKind).
type IncidentRecord struct {
	ID string
	ToolName string
	BlockerKind string
	Detail string
	CreatedAt time.Time
}

// Playbook is a remediation hint seeded on first occurrence of a named
// blocker.
type Playbook struct {
	Key string
	Title string
	Content string
	UpdatedAt time.Time
}

// AutonomyPolicyState is the process-wide, single-row adaptive policy
// state driving the autonomy loop.
type AutonomyPolicyState struct {
	ObservationOnlyUntilMs *int64
	MinEdgeOverride *float64
	MaxTradesPerScanOverride *int
	LeverageCapOverride *float64
	DrawdownCapRemainingUsd *float64
	TradesRemainingToday *int
	Reason string
	UpdatedAt time.Time
}

// ObservationOnly reports whether order submission must be suppressed
// right now.
func (s *AutonomyPolicyState) ObservationOnly(nowMs int64) bool {
	return s.ObservationOnlyUntilMs != nil && *s.ObservationOnlyUntilMs > nowMs
}

// NewAutonomyPolicyState returns the zero-override starting state: no
// observation-only window, no overrides, full daily budget untouched.
func NewAutonomyPolicyState() *AutonomyPolicyState {
	return &AutonomyPolicyState{UpdatedAt: time.Now().UTC()}
}

// ExpressionPlan is a candidate trade expression produced by autonomy
// discovery.
type ExpressionPlan struct {
	Symbol string
	Side string
	ExpectedEdge float64
	Confidence float64
	Leverage float64
	ProbeSizeUsd float64
	SignalKinds []string
	NewsTrigger bool
	SignalClass string
	Regime string
	SignalExpectancy float64
	SignalVariance float64
	SampleCount int
	ContextPack map[string]any
}
