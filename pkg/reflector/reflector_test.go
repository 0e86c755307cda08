package reflector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpctl/tradeagent/pkg/llm"
	"github.com/perpctl/tradeagent/pkg/models"
)

func TestReflect_AppliesGateOnFailedExecution(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{
		"hypothesis_updates": {"h1": "confirmed"},
		"confidence_change": -0.1,
		"suggest_revision": false,
		"revision_reason": ""
		}`}}
	r := New(fake)
	state := models.NewAgentState("s1", "buy BTC", models.ModeTrade)
	exec := &models.ToolExecution{ToolName: "perp_place_order", Success: false, Error: "insufficient margin"}

	refl, err := r.Reflect(context.Background(), state, exec)
	require.NoError(t, err)
	assert.True(t, refl.SuggestRevision, "gate must force revision on failed execution even if the model said false")
	assert.Equal(t, "confirmed", refl.HypothesisUpdates["h1"])
}

func TestReflect_SuggestRevisionRequiresTriggerTerm(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"suggest_revision": true, "revision_reason": "looks fine actually"}`}}
	r := New(fake)
	state := models.NewAgentState("s1", "goal", models.ModeAnalysis)
	exec := &models.ToolExecution{ToolName: "get_portfolio", Success: true}

	refl, err := r.Reflect(context.Background(), state, exec)
	require.NoError(t, err)
	assert.False(t, refl.SuggestRevision)
}

func TestApplyTo_ClampsConfidenceAndMergesById(t *testing.T) {
	state := models.NewAgentState("s1", "goal", models.ModeAnalysis)
	state.Confidence = 0.9
	state.Hypotheses["h1"] = "old"

	ApplyTo(state, &models.Reflection{
		ConfidenceChange: 0.5,
		HypothesisUpdates: map[string]string{"h1": "new", "h2": "added"},
	})
	assert.Equal(t, 1.0, state.Confidence)
	assert.Equal(t, "new", state.Hypotheses["h1"])
	assert.Equal(t, "added", state.Hypotheses["h2"])

	ApplyTo(state, &models.Reflection{ConfidenceChange: -5})
	assert.Equal(t, 0.0, state.Confidence)
}

func TestCritic_ApprovesOnLLMFailure(t *testing.T) {
	c := NewCritic(&llm.FakeClient{Err: assertErr{}})
	res := c.Review(context.Background(), models.NewAgentState("s1", "g", models.ModeAnalysis), "resp", nil)
	assert.True(t, res.Approved)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestCritic_ParsesDisapproval(t *testing.T) {
	fake := &llm.FakeClient{Responses: []string{`{"approved": false, "issues": ["no book state line"]}`}}
	c := NewCritic(fake)
	res := c.Review(context.Background(), models.NewAgentState("s1", "g", models.ModeTrade), "resp", &FragilityContext{Market: "BTC", Score: 0.4})
	assert.False(t, res.Approved)
	assert.Equal(t, []string{"no book state line"}, res.Issues)
}

func TestDeterministicFailureResponse_ListsUpToThreeFailures(t *testing.T) {
	execs := []*models.ToolExecution{
		{ToolName: "get_portfolio", Success: true},
		{ToolName: "perp_place_order", Success: false, Error: "e1", Input: map[string]any{"symbol": "BTC", "side": "buy", "size": 0.1}},
		{ToolName: "perp_place_order", Success: false, Error: "e2", Input: map[string]any{"symbol": "ETH", "side": "sell", "size": 0.2}},
		{ToolName: "perp_place_order", Success: false, Error: "e3"},
		{ToolName: "perp_place_order", Success: false, Error: "e4"},
	}
	resp := DeterministicFailureResponse(execs)
	assert.Contains(t, resp, "Action:")
	assert.Contains(t, resp, "Book State:")
	assert.Contains(t, resp, "Risk:")
	assert.Contains(t, resp, "Next Action:")
	assert.Contains(t, resp, "e1")
	assert.Contains(t, resp, "e2")
	assert.Contains(t, resp, "e3")
	assert.NotContains(t, resp, "e4")
	assert.Contains(t, resp, "Tools run: get_portfolio, perp_place_order, perp_place_order, perp_place_order, perp_place_order")
}

func TestDeterministicFailureResponse_SuccessfulTradeNeverContradictsActionLine(t *testing.T) {
	execs := []*models.ToolExecution{
		{ToolName: "get_portfolio", Success: true},
		{ToolName: "perp_place_order", Success: true},
	}
	resp := DeterministicFailureResponse(execs)
	assert.NotContains(t, resp, "no trade attempts were made")
	assert.NotContains(t, resp, "Book State: unchanged by this run")
	assert.Contains(t, resp, "1 perp order(s) executed this run")
}
