package tradecontract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/store/memstore"
	"github.com/perpctl/tradeagent/pkg/venue"
)

func testCfg() *config.TradeContractConfig {
	return &config.TradeContractConfig{
		DefaultSymbol: "BTC",
		MinOrderSize: 0.001,
		BaseSlippageBps: 10,
		SlippageStepBps: 25,
		MaxRetries: 3,
	}
}

func TestNormalize_S3_SizeAndOrderType(t *testing.T) {
	out := Normalize(map[string]any{"symbol": "BTC", "side": "BUY", "size": "0", "order_type": "MARKET", "price": "65000"}, testCfg())
	assert.Equal(t, "buy", out["side"])
	assert.Equal(t, "market", out["order_type"])
	assert.Equal(t, 0.001, out["size"])
	_, hasPrice := out["price"]
	assert.False(t, hasPrice)
}

func TestNormalize_IsIdempotent(t *testing.T) {
	cfg := testCfg()
	once := Normalize(map[string]any{"symbol": "BTC", "side": "buy", "size": 0.5, "exit_mode": "tp"}, cfg)
	twice := Normalize(once, cfg)
	assert.Equal(t, once, twice)
}

func TestNormalize_ReduceOnlyThesisInvalidationHit(t *testing.T) {
	out := Normalize(map[string]any{"reduce_only": true, "exit_mode": "stop_loss"}, testCfg())
	assert.Equal(t, "thesis_invalidation", out["exit_mode"])
	assert.Equal(t, true, out["thesis_invalidation_hit"])
}

func TestClassify_S1Execution(t *testing.T) {
	assert.Equal(t, IntentExecution, Classify("Buy BTC perp autonomously"))
	assert.True(t, RequiresTerminalContract("Buy BTC perp autonomously"))
}

func TestClassify_S2Retrospective(t *testing.T) {
	assert.Equal(t, IntentRetrospective, Classify("Why did you close the previous BTC long?"))
	assert.False(t, RequiresTerminalContract("Why did you close the previous BTC long?"))
}

func TestClassify_LossComplaint(t *testing.T) {
	assert.Equal(t, IntentLossComplaint, Classify("I took a loss on that trade, what happened"))
}

func TestClassify_AnalysisOnly(t *testing.T) {
	assert.Equal(t, IntentAnalysisOnly, Classify("What's the current funding rate on BTC?"))
}

func TestInjectTerminalContract_S1(t *testing.T) {
	plan := &models.Plan{Steps: []*models.PlanStep{
		{ID: "s1", RequiresTool: true, ToolName: "get_portfolio", Status: models.StepPending},
	}}
	available := map[string]bool{"get_portfolio": true, "perp_open_orders": true, "perp_place_order": true}
	warnings := InjectTerminalContract(plan, "Buy BTC perp autonomously", available)
	assert.Empty(t, warnings)
	assert.True(t, plan.HasTerminalTradeStep())

	var order *models.PlanStep
	for _, s := range plan.Steps {
		if s.ToolName == "perp_place_order" {
			order = s
		}
	}
	require.NotNil(t, order)
	assert.NotEmpty(t, order.DependsOn)
}

func TestInjectTerminalContract_NoOpOnRetrospective(t *testing.T) {
	plan := &models.Plan{Steps: []*models.PlanStep{
		{ID: "s1", RequiresTool: true, ToolName: "get_portfolio", Status: models.StepPending},
	}}
	available := map[string]bool{"get_portfolio": true, "perp_place_order": true}
	warnings := InjectTerminalContract(plan, "Why did you close the previous BTC long?", available)
	assert.Empty(t, warnings)
	assert.Len(t, plan.Steps, 1)
}

func TestInjectTerminalContract_NoOpWhenNoTradeDecisionPresent(t *testing.T) {
	plan := &models.Plan{Steps: []*models.PlanStep{
		{ID: "s1", Description: "NO_TRADE_DECISION: spread too wide", Status: models.StepPending},
	}}
	available := map[string]bool{"perp_place_order": true}
	warnings := InjectTerminalContract(plan, "Buy BTC perp autonomously", available)
	assert.Empty(t, warnings)
	assert.Len(t, plan.Steps, 1)
}

func TestClassifyBlocker(t *testing.T) {
	assert.Equal(t, BlockerInsufficientBalance, ClassifyBlocker("order rejected: insufficient margin"))
	assert.Equal(t, BlockerRateLimited, ClassifyBlocker("429 too many requests"))
	assert.Equal(t, BlockerUnknown, ClassifyBlocker("something completely unexpected"))
}

func TestInjectRemediation_AppendsRetryDependingOnRemediationSteps(t *testing.T) {
	plan := &models.Plan{}
	failed := &models.PlanStep{ID: "s1", ToolName: "perp_place_order", ToolInput: map[string]any{"symbol": "BTC"}}
	ids := InjectRemediation(plan, failed, BlockerInsufficientBalance, map[string]bool{"get_wallet_info": true})
	require.Len(t, ids, 2)
	retry := plan.Steps[len(plan.Steps)-1]
	assert.Equal(t, []string{ids[0]}, retry.DependsOn)
	assert.Equal(t, "perp_place_order", retry.ToolName)
}

func TestInjectRemediation_NoRemediationToolsStillAppendsRetry(t *testing.T) {
	plan := &models.Plan{}
	failed := &models.PlanStep{ID: "s1", ToolName: "perp_place_order"}
	ids := InjectRemediation(plan, failed, BlockerRateLimited, map[string]bool{})
	require.Len(t, ids, 1)
	assert.Empty(t, plan.Steps[0].DependsOn)
}

func TestValidateEntry_RequiresFields(t *testing.T) {
	cfg := testCfg()
	cfg.EnforceEntryValidator = true
	err := ValidateEntry(map[string]any{}, cfg, 1000)
	require.Error(t, err)
}

func TestValidateEntry_PassesWithAllFields(t *testing.T) {
	cfg := testCfg()
	cfg.EnforceEntryValidator = true
	now := int64(1_000_000)
	err := ValidateEntry(map[string]any{
		"trade_archetype": "intraday",
		"invalidation_type": "indicator",
		"time_stop_at_ms": now + int64((2 * time.Hour).Milliseconds()),
		"take_profit_r": 1.5,
		"trail_mode": "atr",
	}, cfg, now)
	assert.NoError(t, err)
}

func TestValidateExitFSM_S4_ManualBlockedThenEmergencyOverrideAllows(t *testing.T) {
	cfg := testCfg()
	cfg.EnforceExitFSM = true
	err := ValidateExitFSM(map[string]any{"reduce_only": true, "exit_mode": "manual", "thesis_invalidation_hit": false}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manual/unknown reduce-only exits are blocked")

	err = ValidateExitFSM(map[string]any{
		"reduce_only": true, "exit_mode": "manual", "thesis_invalidation_hit": false,
		"emergency_override": true, "emergency_reason": "venue flagged liquidation risk",
	}, cfg)
	assert.NoError(t, err)
}

func TestPlaceOrder_ReduceOnlyRejectsWhenNoPosition(t *testing.T) {
	market := &venue.FakeClient{State: &venue.ClearinghouseState{}}
	e := New(testCfg(), market, nil)
	res := e.PlaceOrder(context.Background(), map[string]any{"symbol": "BTC", "side": "sell", "size": 1.0, "reduce_only": true})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no open position")
}

func TestPlaceOrder_ReduceOnlyCapsSizeToLivePosition(t *testing.T) {
	market := &venue.FakeClient{State: &venue.ClearinghouseState{
		AssetPositions: []venue.Position{{Coin: "BTC", SizeSigned: 0.5}},
	}}
	e := New(testCfg(), market, nil)
	res := e.PlaceOrder(context.Background(), map[string]any{"symbol": "BTC", "side": "sell", "size": 5.0, "reduce_only": true})
	require.True(t, res.Success)
	require.Len(t, market.Orders, 1)
	assert.Equal(t, 0.5, market.Orders[0].SizeCoins)
}

func TestPlaceOrder_ReduceOnlyRejectsIncreasingSide(t *testing.T) {
	market := &venue.FakeClient{State: &venue.ClearinghouseState{
		AssetPositions: []venue.Position{{Coin: "BTC", SizeSigned: 0.5}},
	}}
	e := New(testCfg(), market, nil)
	res := e.PlaceOrder(context.Background(), map[string]any{"symbol": "BTC", "side": "buy", "size": 0.1, "reduce_only": true})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "would increase the position")
}

// retryMarket fails with "no immediate match" failThenSucceed-1 times,
// then succeeds, recording the slippage-implied order each attempt.
type retryMarket struct {
	venue.FakeClient
	failures int
	calls int
}

func (m *retryMarket) Order(ctx context.Context, req venue.OrderRequest) (*venue.OrderResult, error) {
	m.calls++
	m.Orders = append(m.Orders, req)
	if m.calls <= m.failures {
		return &venue.OrderResult{Success: false, Error: "could not immediately match order"}, nil
	}
	return &venue.OrderResult{Success: true, ClientOrderID: req.ClientOrderID, FilledSizeCoins: req.SizeCoins}, nil
}

func TestPlaceOrder_S5_RetryWithWidening(t *testing.T) {
	market := &retryMarket{failures: 2}
	market.Mids = map[string]float64{"BTC": 65000}
	bundle := memstore.New()
	e := New(testCfg(), market, bundle.Spending)

	res := e.PlaceOrder(context.Background(), map[string]any{"symbol": "BTC", "side": "buy", "size": 0.1})
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Data["attempts"])
	assert.Equal(t, 3, market.calls)
}

func TestPlaceOrder_AllAttemptsFailReleasesReservation(t *testing.T) {
	market := &retryMarket{failures: 10}
	market.Mids = map[string]float64{"BTC": 65000}
	bundle := memstore.New()
	e := New(testCfg(), market, bundle.Spending)

	res := e.PlaceOrder(context.Background(), map[string]any{"symbol": "BTC", "side": "buy", "size": 0.1})
	assert.False(t, res.Success)
	remaining, err := bundle.Spending.RemainingToday(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, bundle.Spending.DailyBudgetUsd, remaining, 0.01)
}

func TestCancelOrder_RequiresSymbolAndClientOrderID(t *testing.T) {
	e := New(testCfg(), &venue.FakeClient{}, nil)
	res := e.CancelOrder(context.Background(), map[string]any{})
	assert.False(t, res.Success)
}
