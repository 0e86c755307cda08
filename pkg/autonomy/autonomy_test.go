package autonomy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/store/memstore"
	"github.com/perpctl/tradeagent/pkg/tradecontract"
	"github.com/perpctl/tradeagent/pkg/venue"
)

// stubDiscoverer returns a fixed candidate list, ignoring the context.
type stubDiscoverer struct {
	plans []*models.ExpressionPlan
	err error
}

func (d *stubDiscoverer) Discover(context.Context) ([]*models.ExpressionPlan, error) {
	return d.plans, d.err
}

func testEngine(t *testing.T, market venue.MarketClient, discoverer Discoverer) (*Engine, *memstore.Bundle) {
	t.Helper()
	cfg := config.DefaultConfig()
	bundle := memstore.New()
	bundle.Spending.DailyBudgetUsd = cfg.Autonomy.DailyBudgetUsd

	if market == nil {
		market = &venue.FakeClient{Mids: map[string]float64{"BTC": 50000, "ETH": 3000}}
	}

	executor := tradecontract.New(cfg.TradeContract, market, bundle.Spending)

	return &Engine{
		Config: cfg.Autonomy,
		Market: market,
		Executor: executor,
		Journal: bundle.Journal,
		Policy: bundle.Policy,
		Limiter: bundle.Spending,
		Discover: discoverer,
		Symbols: cfg.Venue.ConfiguredSymbols,
	}, bundle
}

func techExpr(symbol string, edge, confidence float64) *models.ExpressionPlan {
	return &models.ExpressionPlan{
		Symbol: symbol,
		Side: "buy",
		ExpectedEdge: edge,
		Confidence: confidence,
		SignalClass: "technical",
		Regime: "trending",
		SignalExpectancy: edge,
		SignalVariance: 0.5,
		SampleCount: 40,
	}
}

func TestSessionWeight_StaysWithinBounds(t *testing.T) {
	for h := 0; h < 24; h++ {
		now := time.Date(2026, 1, 1, h, 0, 0, 0, time.UTC)
		w := sessionWeight(now)
		assert.GreaterOrEqual(t, w, 0.4)
		assert.LessOrEqual(t, w, 1.0)
	}
	assert.Equal(t, 1.0, sessionWeight(time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0.4, sessionWeight(time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC)))
}

func TestComputeFractionalKellyFraction_ZeroOnNonPositiveInputs(t *testing.T) {
	assert.Equal(t, 0.0, computeFractionalKellyFraction(0.01, 0.01, 0, 50, 0.25))
	assert.Equal(t, 0.0, computeFractionalKellyFraction(0.01, -0.01, 0.5, 50, 0.25))
	assert.Equal(t, 0.0, computeFractionalKellyFraction(0.01, 0.01, 0.5, 50, 0))
}

func TestComputeFractionalKellyFraction_CapsAtMaxFraction(t *testing.T) {
	f := computeFractionalKellyFraction(1.0, 1.0, 0.01, 200, 0.25)
	assert.Equal(t, 0.25, f)
}

func TestComputeFractionalKellyFraction_ScalesDownWithFewSamples(t *testing.T) {
	full := computeFractionalKellyFraction(0.02, 0.02, 0.1, 100, 0.25)
	thin := computeFractionalKellyFraction(0.02, 0.02, 0.1, 5, 0.25)
	assert.Less(t, thin, full)
}

func TestApplyGates_RejectsBelowMinEdgeAndMalformedSignalClass(t *testing.T) {
	e, _ := testEngine(t, nil, nil)
	policy := models.NewAutonomyPolicyState()

	low := techExpr("BTC", 0.0001, 0.9)
	bad := techExpr("BTC", 0.01, 0.9)
	bad.SignalClass = "astrology"
	good := techExpr("BTC", 0.01, 0.9)

	survivors := e.applyGates([]*models.ExpressionPlan{low, bad, good}, policy)
	require.Len(t, survivors, 1)
	assert.Equal(t, good, survivors[0].Plan)
}

func TestApplyGates_NewsEntryGateRequiresNewsTriggerFlag(t *testing.T) {
	e, _ := testEngine(t, nil, nil)
	policy := models.NewAutonomyPolicyState()

	expr := techExpr("BTC", 0.01, 0.9)
	expr.SignalClass = "news"
	expr.NewsTrigger = false

	survivors := e.applyGates([]*models.ExpressionPlan{expr}, policy)
	assert.Empty(t, survivors)

	expr.NewsTrigger = true
	survivors = e.applyGates([]*models.ExpressionPlan{expr}, policy)
	assert.Len(t, survivors, 1)
}

func TestApplyGates_HighConfidenceThresholdAppliesToWeightedConfidence(t *testing.T) {
	e, _ := testEngine(t, nil, nil)
	// A threshold above raw confidence can never be cleared, whatever the
	// session weight is right now — weighting only ever scales confidence
	// down, never up.
	e.Config.HighConfidenceThreshold = 0.91
	policy := models.NewAutonomyPolicyState()

	expr := techExpr("BTC", 0.01, 0.9)
	survivors := e.applyGates([]*models.ExpressionPlan{expr}, policy)
	assert.Empty(t, survivors)
}

func TestApplyGates_AdaptiveMinEdgeOverrideIsHonored(t *testing.T) {
	e, _ := testEngine(t, nil, nil)
	policy := models.NewAutonomyPolicyState()
	override := 0.5
	policy.MinEdgeOverride = &override

	expr := techExpr("BTC", 0.01, 0.9)
	survivors := e.applyGates([]*models.ExpressionPlan{expr}, policy)
	assert.Empty(t, survivors, "edge 0.01 must not survive a 0.5 override")
}

func TestApplyGates_MaxTradesPerScanOverrideTruncatesSurvivors(t *testing.T) {
	e, _ := testEngine(t, nil, nil)
	policy := models.NewAutonomyPolicyState()
	scanCap := 1
	policy.MaxTradesPerScanOverride = &scanCap

	candidates := []*models.ExpressionPlan{
		techExpr("BTC", 0.01, 0.95),
		techExpr("ETH", 0.01, 0.95),
	}
	survivors := e.applyGates(candidates, policy)
	assert.Len(t, survivors, 1)
}

func TestSize_ClampsToMinOrderUsdAndRejectsBelowFloor(t *testing.T) {
	market := &venue.FakeClient{Mids: map[string]float64{"BTC": 50000}}
	e, _ := testEngine(t, market, nil)
	policy := models.NewAutonomyPolicyState()

	// Near-zero edge/expectancy drives kelly to ~0, so probeUsd is scaled
	// by the 0.25 floor, not clamped to zero.
	plan := techExpr("BTC", 0.0001, 0.5)
	plan.SignalExpectancy = 0.0001
	plan.SignalVariance = 1
	g := &gatedExpression{Plan: plan, SessionWeight: 1.0, ConfidenceWeighted: 0.5}

	result, err := e.size(context.Background(), g, policy)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.ProbeSizeUsd, e.Config.MinOrderUsd)
	assert.Greater(t, result.SizeCoins, 0.0)
}

func TestSize_LeverageCappedByPolicyOverrideAndMarketMax(t *testing.T) {
	market := &venue.FakeClient{
		Mids: map[string]float64{"BTC": 50000},
		Metas: []venue.AssetMeta{{Coin: "BTC", MaxLeverage: 3}},
	}
	e, _ := testEngine(t, market, nil)
	policy := models.NewAutonomyPolicyState()
	override := 2.0
	policy.LeverageCapOverride = &override

	plan := techExpr("BTC", 0.02, 0.9)
	g := &gatedExpression{Plan: plan, SessionWeight: 1.0, ConfidenceWeighted: 0.9}

	result, err := e.size(context.Background(), g, policy)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.LessOrEqual(t, result.Leverage, 2.0)
}

func TestCheckPerpRiskLimits_BlocksOversizedAndOverleveragedOrders(t *testing.T) {
	cfg := &autonomyRiskConfig{PerTradeCapUsd: 500, LeverageCap: 5}

	assert.NoError(t, checkPerpRiskLimits(cfg, &sizingResult{ProbeSizeUsd: 400, Leverage: 3, SizeCoins: 0.01}))
	assert.Error(t, checkPerpRiskLimits(cfg, &sizingResult{ProbeSizeUsd: 1500, Leverage: 3, SizeCoins: 0.01}))
	assert.Error(t, checkPerpRiskLimits(cfg, &sizingResult{ProbeSizeUsd: 400, Leverage: 10, SizeCoins: 0.01}))
	assert.Error(t, checkPerpRiskLimits(cfg, &sizingResult{ProbeSizeUsd: 400, Leverage: 3, SizeCoins: 0}))
}

func TestScan_ObservationOnlyBlocksSubmissionAndJournalsBlocked(t *testing.T) {
	e, bundle := testEngine(t, nil, &stubDiscoverer{plans: []*models.ExpressionPlan{techExpr("BTC", 0.01, 0.9)}})
	e.Config.HighConfidenceThreshold = 0 // isolate this test from the wall-clock session weight
	until := nowMillis() + 60_000
	require.NoError(t, bundle.Policy.Mutate(context.Background(), func(p *models.AutonomyPolicyState) error {
		p.ObservationOnlyUntilMs = &until
		return nil
	}))

	result, err := e.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, result.ObservationOnly)
	assert.Equal(t, 1, result.Blocked)
	assert.Equal(t, 0, result.Submitted)

	entries, err := bundle.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.JournalBlocked, entries[0].Outcome)
}

func TestScan_SubmitsSurvivingCandidateAndJournalsExecuted(t *testing.T) {
	market := &venue.FakeClient{Mids: map[string]float64{"BTC": 50000}}
	e, bundle := testEngine(t, market, &stubDiscoverer{plans: []*models.ExpressionPlan{techExpr("BTC", 0.01, 0.95)}})
	e.Config.HighConfidenceThreshold = 0 // isolate this test from the wall-clock session weight

	result, err := e.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Submitted)
	assert.Equal(t, 0, result.Failed)

	entries, err := bundle.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.JournalExecuted, entries[0].Outcome)
	assert.Equal(t, "BTC", entries[0].Symbol)
	assert.Greater(t, entries[0].KellyFraction, 0.0)
}

func TestScan_VenueOrderFailureJournalsFailed(t *testing.T) {
	market := &venue.FakeClient{
		Mids: map[string]float64{"BTC": 50000},
		OrderErr: assertErr{},
	}
	e, bundle := testEngine(t, market, &stubDiscoverer{plans: []*models.ExpressionPlan{techExpr("BTC", 0.01, 0.95)}})
	e.Config.HighConfidenceThreshold = 0 // isolate this test from the wall-clock session weight

	result, err := e.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	entries, err := bundle.Journal.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.JournalFailed, entries[0].Outcome)
}

// assertErr is a trivial error used to force FakeClient.Order to fail.
type assertErr struct{}

func (assertErr) Error() string { return "simulated venue error" }

func TestApplyLossStreakPause_SetsObservationOnlyAfterThreshold(t *testing.T) {
	e, bundle := testEngine(t, nil, nil)
	e.Config.LossStreakThreshold = 3
	e.Config.LossStreakPauseSeconds = 300

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, bundle.Journal.Append(ctx, &models.JournalEntry{
			Outcome: models.JournalExecuted,
			ContextPackTrace: map[string]any{"close_pnl_usd": -10.0},
		}))
	}

	require.NoError(t, e.applyLossStreakPause(ctx))
	policy, err := bundle.Policy.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, policy.ObservationOnlyUntilMs)
	assert.True(t, policy.ObservationOnly(nowMillis()))
}

func TestApplyLossStreakPause_NoPauseWhenStreakBroken(t *testing.T) {
	e, bundle := testEngine(t, nil, nil)
	e.Config.LossStreakThreshold = 3

	ctx := context.Background()
	pnls := []float64{-10, 5, -10}
	for _, pnl := range pnls {
		require.NoError(t, bundle.Journal.Append(ctx, &models.JournalEntry{
			Outcome: models.JournalExecuted,
			ContextPackTrace: map[string]any{"close_pnl_usd": pnl},
		}))
	}

	require.NoError(t, e.applyLossStreakPause(ctx))
	policy, err := bundle.Policy.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, policy.ObservationOnlyUntilMs)
}

func TestApplyReflectionMutation_TightensMinEdgeAfterRepeatedFailures(t *testing.T) {
	e, bundle := testEngine(t, nil, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, bundle.Journal.Append(ctx, &models.JournalEntry{Outcome: models.JournalFailed}))
	}

	require.NoError(t, e.applyReflectionMutation(ctx))
	policy, err := bundle.Policy.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, policy.MinEdgeOverride)
	assert.Greater(t, *policy.MinEdgeOverride, e.Config.MinEdge)
}

func TestNextInterval_ClampsAndWidensOnPositionCapAndTightBudget(t *testing.T) {
	market := &venue.FakeClient{
		State: &venue.ClearinghouseState{AssetPositions: []venue.Position{
			{Coin: "BTC", SizeSigned: 1}, {Coin: "ETH", SizeSigned: 1}, {Coin: "SOL", SizeSigned: -1},
		}},
	}
	e, bundle := testEngine(t, market, nil)
	bundle.Spending.DailyBudgetUsd = 1 // forces remaining below per-trade cap

	interval := e.nextInterval(context.Background())
	assert.GreaterOrEqual(t, interval, e.Config.MinIntervalSeconds)
	assert.LessOrEqual(t, interval, e.Config.MaxIntervalSeconds)
	assert.Greater(t, interval, e.Config.BaseIntervalSeconds)
}

func TestDailyReport_ComposesFromJournalAndDiscoverySnapshot(t *testing.T) {
	e, bundle := testEngine(t, nil, &stubDiscoverer{plans: []*models.ExpressionPlan{techExpr("BTC", 0.01, 0.9)}})
	ctx := context.Background()
	require.NoError(t, bundle.Journal.Append(ctx, &models.JournalEntry{Outcome: models.JournalExecuted}))

	report, err := e.DailyReport(ctx)
	require.NoError(t, err)
	assert.Contains(t, report, "journal entries")
	assert.Contains(t, report, "candidate expression")
}
