package autonomy

import (
	"context"

	"github.com/perpctl/tradeagent/pkg/models"
	"github.com/perpctl/tradeagent/pkg/venue"
)

// MarketScanDiscoverer is the default Discoverer: for
// every configured symbol, read its current funding rate and
// day-over-day move from the venue and express a fade against
// persistent funding skew. It is intentionally simple — no pricing
// model or signal research is in scope — just
// enough structure to exercise the gating/sizing/submission pipeline
// end to end.
type MarketScanDiscoverer struct {
	Market venue.MarketClient
	Symbols []string

	// MinFundingAbs is the minimum absolute funding rate that counts as a
	// technical signal worth expressing.
	MinFundingAbs float64
}

func (d *MarketScanDiscoverer) Discover(ctx context.Context) ([]*models.ExpressionPlan, error) {
	if d.Market == nil {
		return nil, nil
	}
	_, ctxs, err := d.Market.GetMetaAndAssetCtxs(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(d.Symbols))
	for _, s := range d.Symbols {
		wanted[s] = true
	}

	minFunding := d.MinFundingAbs
	if minFunding <= 0 {
		minFunding = 0.0005
	}

	var out []*models.ExpressionPlan
	for _, c := range ctxs {
		if len(wanted) > 0 && !wanted[c.Coin] {
			continue
		}
		if c.FundingRate == 0 || absf(c.FundingRate) < minFunding {
			continue
		}

		// Persistently positive funding means longs pay shorts: fade the
		// crowd. Persistently negative funding: fade the other way.
		side := "sell"
		if c.FundingRate < 0 {
			side = "buy"
		}

		regime := "trending"
		if c.PrevDayPrice > 0 {
			move := absf((c.MarkPrice - c.PrevDayPrice) / c.PrevDayPrice)
			if move < 0.005 {
				regime = "choppy"
			} else if move >= 0.03 {
				regime = "high_vol_expansion"
			}
		}

		edge := absf(c.FundingRate) * 10
		out = append(out, &models.ExpressionPlan{
			Symbol: c.Coin,
			Side: side,
			ExpectedEdge: edge,
			Confidence: clampf(0.5+absf(c.FundingRate)*20, 0, 0.95),
			SignalKinds: []string{"funding_skew"},
			SignalClass: "technical",
			Regime: regime,
			SignalExpectancy: edge,
			SignalVariance: 0.5,
			SampleCount: 20,
			ContextPack: map[string]any{
				"funding_rate": c.FundingRate,
				"mark_price": c.MarkPrice,
				"prev_day_price": c.PrevDayPrice,
			},
		})
	}

	return out, nil
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
