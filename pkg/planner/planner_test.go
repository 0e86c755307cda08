package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/tools"
)

func schemas(names ...string) []tools.LLMSchema {
	out := make([]tools.LLMSchema, len(names))
	for i, n := range names {
		out[i] = tools.LLMSchema{Name: n}
	}
	return out
}

func TestCreatePlan_ParsesValidLLMReply(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{
		"steps": [
		{"id": "s1", "description": "check portfolio", "tool_name": "get_portfolio"},
		{"id": "s2", "description": "place order", "tool_name": "perp_place_order", "depends_on": ["s1"]}
		],
		"confidence": 0.8,
		"reasoning": "looks like a trade"
		}`}}

	p := New(fake)
	res, err := p.CreatePlan(context.Background(), "buy some BTC", "", "identity", models.ModeTrade,
		schemas("get_portfolio", "perp_place_order"))
	require.NoError(t, err)
	require.Len(t, res.Plan.Steps, 2)
	assert.Equal(t, 0.8, res.Plan.Confidence)
	assert.True(t, res.Plan.Steps[1].RequiresTool)
	assert.Equal(t, []string{"s1"}, res.Plan.Steps[1].DependsOn)
}

func TestCreatePlan_RemapsKnownAlias(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"steps": [{"id": "s1", "description": "resolve", "tool_name": "symbol_resolve"}], "confidence": 0.7}`}}
	p := New(fake)
	res, err := p.CreatePlan(context.Background(), "what is BTC trading at", "", "identity", models.ModeAnalysis,
		schemas("perp_market_list"))
	require.NoError(t, err)
	require.Len(t, res.Plan.Steps, 1)
	assert.Equal(t, "perp_market_list", res.Plan.Steps[0].ToolName)
	assert.NotEmpty(t, res.Warnings)
}

func TestCreatePlan_DowngradesUnavailableTool(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"steps": [{"id": "s1", "description": "do magic", "tool_name": "some_unknown_tool"}], "confidence": 0.7}`}}
	p := New(fake)
	res, err := p.CreatePlan(context.Background(), "goal", "", "identity", models.ModeAnalysis, schemas("get_portfolio"))
	require.NoError(t, err)
	require.Len(t, res.Plan.Steps, 1)
	assert.False(t, res.Plan.Steps[0].RequiresTool)
}

func TestCreatePlan_FallsBackOnParseFailure(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"not json"}}
	p := New(fake)
	res, err := p.CreatePlan(context.Background(), "what's my portfolio worth", "", "identity", models.ModeAnalysis,
		schemas("get_portfolio"))
	require.NoError(t, err)
	require.Len(t, res.Plan.Steps, 1)
	assert.Equal(t, "get_portfolio", res.Plan.Steps[0].ToolName)
	assert.Equal(t, 0.5, res.Plan.Confidence)
}

func TestCreatePlan_FallbackNoKeywordMatch(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{"garbage"}}
	p := New(fake)
	res, err := p.CreatePlan(context.Background(), "tell me a joke", "", "identity", models.ModeAnalysis, schemas())
	require.NoError(t, err)
	require.Len(t, res.Plan.Steps, 1)
	assert.False(t, res.Plan.Steps[0].RequiresTool)
	assert.Equal(t, 0.3, res.Plan.Confidence)
	assert.NotEmpty(t, res.Plan.Blockers)
}

func TestRevisePlan_PreservesCompletedStepsAndReducesConfidence(t *testing.T) {
	plan := &models.Plan{
		ID: "p1",
		Confidence: 1.0,
		Steps: []*models.PlanStep{
			{ID: "s1", Status: models.StepComplete, ToolName: "get_portfolio", Result: map[string]any{"x": 1}},
			{ID: "s2", Status: models.StepPending, ToolName: "perp_place_order"},
		},
	}
	fake := &llm.FakeClient{Responses: []string{`{
		"steps": [
		{"id": "s1", "description": "check portfolio", "tool_name": "get_portfolio"},
		{"id": "s2", "description": "place order", "tool_name": "perp_place_order", "tool_input": {"symbol": "BTC"}}
		],
		"confidence": 0.6,
		"changes": ["filled in order params"]
		}`}}

	p := New(fake)
	res, err := p.RevisePlan(context.Background(), plan, "failed: insufficient margin", "", map[string]any{"error": "x"}, "s2")
	require.NoError(t, err)
	assert.Equal(t, models.StepComplete, res.Plan.Steps[0].Status)
	assert.Equal(t, map[string]any{"x": 1}, res.Plan.Steps[0].Result)
	assert.Equal(t, "BTC", res.Plan.Steps[1].ToolInput["symbol"])
	assert.Equal(t, 0.6, res.Confidence)
	assert.Equal(t, 1, res.Plan.RevisionCount)
}

func TestRevisePlan_ParseFailureAppliesDegradedPenalty(t *testing.T) {
	plan := &models.Plan{ID: "p1", Confidence: 1.0, Steps: []*models.PlanStep{{ID: "s1", Status: models.StepPending}}}
	fake := &llm.FakeClient{Responses: []string{"nonsense"}}
	p := New(fake)
	res, err := p.RevisePlan(context.Background(), plan, "unexpected", "", nil, "s1")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, res.Confidence, 0.0001)
	assert.Equal(t, 1, res.Plan.RevisionCount)
}

func TestAssertAcyclic_DetectsCycle(t *testing.T) {
	plan := &models.Plan{Steps: []*models.PlanStep{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}}
	err := AssertAcyclic(plan)
	assert.ErrorIs(t, err, ErrCyclicPlan)
}

func TestAssertAcyclic_AcceptsValidDAG(t *testing.T) {
	plan := &models.Plan{Steps: []*models.PlanStep{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a", "b"}},
	}}
	assert.NoError(t, AssertAcyclic(plan))
}
