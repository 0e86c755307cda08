package autonomy

import "fmt"

// checkPerpRiskLimits implements step 6: a last hard gate on
// notional, leverage and market max before an order is submitted,
// independent of sizing's own clamping (defense in depth against a
// sizing bug producing an out-of-bounds order).
func checkPerpRiskLimits(cfg *autonomyRiskConfig, sizing *sizingResult) error {
	if sizing.ProbeSizeUsd > cfg.PerTradeCapUsd*2 {
		return fmt.Errorf("notional %.2f exceeds 2x per-trade cap %.2f", sizing.ProbeSizeUsd, cfg.PerTradeCapUsd)
	}
	if sizing.Leverage <= 0 {
		return fmt.Errorf("leverage %.2f is non-positive", sizing.Leverage)
	}
	if sizing.Leverage > cfg.LeverageCap {
		return fmt.Errorf("leverage %.2f exceeds configured cap %.2f", sizing.Leverage, cfg.LeverageCap)
	}
	if sizing.SizeCoins <= 0 {
		return fmt.Errorf("size %.8f is non-positive", sizing.SizeCoins)
	}
	return nil
}

// autonomyRiskConfig is the minimal slice of AutonomyConfig the risk
// check needs, kept separate from config.AutonomyConfig so it can be
// constructed directly in tests without a full config tree.
type autonomyRiskConfig struct {
	PerTradeCapUsd float64
	LeverageCap float64
}
