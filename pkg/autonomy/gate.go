package autonomy

import (
	"time"

	"github.com/perpctl/tradeagent/pkg/models"
)

// gatedExpression is a candidate that survived filtering, carrying the
// session-weighted confidence the rest of the pipeline (sizing, journal)
// needs alongside the raw ExpressionPlan.
type gatedExpression struct {
	Plan *models.ExpressionPlan
	SessionWeight float64
	ConfidenceWeighted float64
}

// sessionWeight implements the glossary's "deterministic multiplier in
// [0.4, 1.0] derived from UTC hour and liquidity regime": the
// London/New York overlap gets full weight, the single-session hours get
// a middle weight, and the thin Asia-only hours get the floor.
func sessionWeight(now time.Time) float64 {
	hour := now.UTC().Hour()
	switch {
	case hour >= 13 && hour < 16:
		return 1.0
	case hour >= 7 && hour < 13:
		return 0.85
	case hour >= 16 && hour < 20:
		return 0.8
	case hour >= 0 && hour < 7:
		return 0.4
	default:
		return 0.6
	}
}

// minEdgeFor resolves the effective minimum edge, honoring a reflection
// mutation's override over the configured baseline.
func minEdgeFor(cfg float64, policy *models.AutonomyPolicyState) float64 {
	if policy.MinEdgeOverride != nil {
		return *policy.MinEdgeOverride
	}
	return cfg
}

// applyGates implements step 4: the global trade gate (signal
// class × regime × min edge), the news entry gate, adaptive min-edge,
// and the high-confidence requirement applied to session-weighted
// confidence rather than raw confidence.
func (e *Engine) applyGates(candidates []*models.ExpressionPlan, policy *models.AutonomyPolicyState) []*gatedExpression {
	weight := sessionWeight(time.Now())
	minEdge := minEdgeFor(e.Config.MinEdge, policy)

	var survivors []*gatedExpression
	for _, c := range candidates {
		if !globalTradeGate(c, minEdge) {
			continue
		}
		if !newsEntryGate(c) {
			continue
		}

		weighted := clampf(c.Confidence*weight, 0, 1)
		if weighted < e.Config.HighConfidenceThreshold {
			continue
		}

		survivors = append(survivors, &gatedExpression{
			Plan: c,
			SessionWeight: weight,
			ConfidenceWeighted: weighted,
		})
	}

	if policy.MaxTradesPerScanOverride != nil && len(survivors) > *policy.MaxTradesPerScanOverride {
		survivors = survivors[:*policy.MaxTradesPerScanOverride]
	}

	return survivors
}

var validSignalClasses = map[string]bool{"news": true, "technical": true, "hybrid": true}
var validRegimes = map[string]bool{
	"trending": true, "choppy": true, "high_vol_expansion": true, "low_vol_compression": true,
}

// globalTradeGate rejects malformed or sub-edge candidates before any
// more expensive work runs on them.
func globalTradeGate(c *models.ExpressionPlan, minEdge float64) bool {
	if c.Symbol == "" || (c.Side != "buy" && c.Side != "sell") {
		return false
	}
	if !validSignalClasses[c.SignalClass] || !validRegimes[c.Regime] {
		return false
	}
	return c.ExpectedEdge >= minEdge
}

// newsEntryGate requires a news-classified expression to actually carry
// the news trigger flag — a "news" signal class without one is an
// upstream classification bug, not a trade to take.
func newsEntryGate(c *models.ExpressionPlan) bool {
	if c.SignalClass == "news" {
		return c.NewsTrigger
	}
	return true
}
