package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/store/memstore"
	"github.com/perpctl/tradeagent/pkg/venue"
)

func TestRegistry_RegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register(Definition{
		Name: "echo",
		Execute: func(_ context.Context, input map[string]any, _ *Context) Result {
			calls++
			return Ok(map[string]any{"got": input["x"]})
		},
	}))

	res, cached := r.Execute(context.Background(), "echo", map[string]any{"x": 1.0}, nil)
	assert.True(t, res.Success)
	assert.False(t, cached)
	assert.Equal(t, 1.0, res.Data["got"])
	assert.Equal(t, 1, calls)
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	r := NewRegistry()
	res, _ := r.Execute(context.Background(), "nope", nil, nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown tool")
}

func TestRegistry_Execute_CachesReadOnlyResults(t *testing.T) {
	r := NewRegistry()
	calls := 0
	require.NoError(t, r.Register(Definition{
		Name: "cached",
		SideEffects: false,
		CacheTTLMillis: int64(time.Minute / time.Millisecond),
		Execute: func(context.Context, map[string]any, *Context) Result {
			calls++
			return Ok(map[string]any{"n": calls})
		},
	}))

	res1, cached1 := r.Execute(context.Background(), "cached", map[string]any{"k": "v"}, nil)
	res2, cached2 := r.Execute(context.Background(), "cached", map[string]any{"k": "v"}, nil)
	assert.False(t, cached1)
	assert.True(t, cached2)
	assert.Equal(t, res1.Data["n"], res2.Data["n"])
	assert.Equal(t, 1, calls)
}

func TestRegistry_Execute_ConfirmationDeclined(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{
		Name: "dangerous",
		RequiresConfirmation: true,
		Execute: func(context.Context, map[string]any, *Context) Result {
			t.Fatal("execute should not run when confirmation is declined")
			return Result{}
		},
	}))

	tc := &Context{OnConfirmation: func(context.Context, string, map[string]any) (bool, error) {
		return false, nil
	}}
	res, _ := r.Execute(context.Background(), "dangerous", nil, tc)
	assert.False(t, res.Success)
	assert.Equal(t, "User declined", res.Error)
}

func TestRegisterDefaults_AllToolsPresent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterDefaults(r))

	want := []string{
		"get_portfolio", "get_wallet_info", "perp_market_list", "perp_market_get",
		"perp_analyze", "perp_positions", "perp_open_orders", "perp_place_order",
		"perp_cancel_order", "perp_trade_journal_list", "trade_review",
		"intel_search", "qmd_query", "tools.list",
	}
	got := r.ListNames()
	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestGetPortfolioTool_UsesMarketClient(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterDefaults(r))

	fake := &venue.FakeClient{State: &venue.ClearinghouseState{
		AccountValue: 1000,
		AssetPositions: []venue.Position{{Coin: "BTC", SizeSigned: 0.1}},
	}}
	tc := &Context{Market: fake}
	res, _ := r.Execute(context.Background(), "get_portfolio", nil, tc)
	require.True(t, res.Success)
	assert.Equal(t, 1000.0, res.Data["account_value"])
}

func TestTradeReviewTool_SummarizesJournal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterDefaults(r))

	bundle := memstore.New()
	require.NoError(t, bundle.Journal.Append(context.Background(), &models.JournalEntry{
		ID: "1", Symbol: "BTC", Outcome: models.JournalExecuted, SizeUsd: 100,
	}))

	tc := &Context{Journal: bundle.Journal}
	res, _ := r.Execute(context.Background(), "perp_trade_journal_list", map[string]any{"symbol": "BTC"}, tc)
	require.True(t, res.Success)
	entries, ok := res.Data["entries"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
}

func TestPlaceOrderTool_RequiresExecutor(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterDefaults(r))

	tc := &Context{OnConfirmation: func(context.Context, string, map[string]any) (bool, error) { return true, nil }}
	res, _ := r.Execute(context.Background(), "perp_place_order", map[string]any{"symbol": "BTC", "side": "buy"}, tc)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "executor")
}
