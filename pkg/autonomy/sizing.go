package autonomy

import (
	"context"
	"fmt"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/venue"
)

// computeFractionalKellyFraction implements the glossary's "fractional-
// Kelly capital allocation derived from edge, expectancy, variance, and
// sample count, capped by configuration". Classic
// Kelly is expectancy/variance; it is scaled down toward zero as the
// sample count falls short of a confidence floor, and by expectedEdge
// relative to signalExpectancy so a candidate whose realized edge trails
// its historical expectancy doesn't get full-Kelly sizing.
func computeFractionalKellyFraction(expectedEdge, signalExpectancy, signalVariance float64, sampleCount int, maxFraction float64) float64 {
	if signalVariance <= 0 || maxFraction <= 0 {
		return 0
	}

	kelly := signalExpectancy / signalVariance
	if kelly <= 0 {
		return 0
	}

	const sampleFloor = 30
	sampleConfidence := clampf(float64(sampleCount)/sampleFloor, 0, 1)

	edgeConfidence := 1.0
	if signalExpectancy > 0 {
		edgeConfidence = clampf(expectedEdge/signalExpectancy, 0, 1)
	}

	fraction := kelly * sampleConfidence * edgeConfidence
	return clampf(fraction, 0, maxFraction)
}

// sizingResult is one candidate's fully resolved order sizing.
type sizingResult struct {
	ProbeSizeUsd float64
	SizeCoins float64
	Leverage float64
	KellyFraction float64
	MarkPrice float64
}

// size implements step 5: fetch the mark price, compute the
// fractional-Kelly probe size, scale by session weight, apply the news
// size cap, clamp to [minOrderUsd, remainingDaily], and derive the
// leverage cap as min(configured, policy override, market max). Returns
// a nil result (no error) when the candidate doesn't clear the minimum
// order notional after clamping.
func (e *Engine) size(ctx context.Context, g *gatedExpression, policy *models.AutonomyPolicyState) (*sizingResult, error) {
	cfg := e.Config
	plan := g.Plan

	mids, err := e.Market.GetAllMids(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching mark prices: %w", err)
	}
	markPrice, ok := mids[plan.Symbol]
	if !ok || markPrice <= 0 {
		return nil, fmt.Errorf("no mark price for %s", plan.Symbol)
	}

	kelly := computeFractionalKellyFraction(plan.ExpectedEdge, plan.SignalExpectancy, plan.SignalVariance, plan.SampleCount, cfg.MaxKellyFraction)

	sizeScale := kelly * 4
	if sizeScale < 0.25 {
		sizeScale = 0.25
	}
	probeUsd := cfg.PerTradeCapUsd * sizeScale * g.SessionWeight

	remaining, err := e.Limiter.RemainingToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking remaining daily budget: %w", err)
	}

	if plan.NewsTrigger {
		newsCap := remaining * cfg.NewsSizeCapFraction
		if probeUsd > newsCap {
			probeUsd = newsCap
		}
	}

	probeUsd = clampf(probeUsd, cfg.MinOrderUsd, remaining)
	if probeUsd < cfg.MinOrderUsd {
		return nil, nil
	}

	leverage := cfg.LeverageCap
	if policy.LeverageCapOverride != nil && *policy.LeverageCapOverride < leverage {
		leverage = *policy.LeverageCapOverride
	}
	if metas, _, err := e.Market.GetMetaAndAssetCtxs(ctx); err == nil {
		leverage = clampf(leverage, 0, marketMaxLeverage(metas, plan.Symbol, leverage))
	}

	return &sizingResult{
		ProbeSizeUsd: probeUsd,
		SizeCoins: probeUsd / markPrice,
		Leverage: leverage,
		KellyFraction: kelly,
		MarkPrice: markPrice,
	}, nil
}

// marketMaxLeverage looks up the venue's configured max leverage for a
// symbol, falling back to the configured cap when unknown.
func marketMaxLeverage(metas []venue.AssetMeta, symbol string, fallback float64) float64 {
	for _, m := range metas {
		if m.Coin == symbol {
			if m.MaxLeverage > 0 {
				return m.MaxLeverage
			}
			break
		}
	}
	return fallback
}
