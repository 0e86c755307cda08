package tools

import (
	"context"
	"strings"
)

// marketListTool lists every market the venue quotes, with mark price and
// funding rate (perp_market_list).
func marketListTool() Definition {
	return Definition{
		Name: "perp_market_list",
		Description: "Lists available perpetual markets with mark price, funding rate and max leverage.",
		Category: "market",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		SideEffects: false,
		CacheTTLMillis: 3000,
		Execute: func(ctx context.Context, _ map[string]any, tc *Context) Result {
			if tc == nil || tc.Market == nil {
				return Err("no market client configured")
			}
			metas, ctxs, err := tc.Market.GetMetaAndAssetCtxs(ctx)
			if err != nil {
				return Err(err.Error())
			}
			byCoin := make(map[string]int, len(ctxs))
			for i, c := range ctxs {
				byCoin[c.Coin] = i
			}
			markets := make([]map[string]any, 0, len(metas))
			for _, m := range metas {
				entry := map[string]any{
					"coin": m.Coin,
					"max_leverage": m.MaxLeverage,
				}
				if i, ok := byCoin[m.Coin]; ok {
					entry["mark_price"] = ctxs[i].MarkPrice
					entry["funding_rate"] = ctxs[i].FundingRate
					entry["open_interest"] = ctxs[i].OpenInterest
				}
				markets = append(markets, entry)
			}
			return Ok(map[string]any{"markets": markets})
		},
	}
}

// marketGetTool returns one symbol's current pricing context
// (perp_market_get; requires a symbol, default-symbol guardrail).
func marketGetTool() Definition {
	return Definition{
		Name: "perp_market_get",
		Description: "Returns the current mark price, funding rate and prior-day price for one perpetual market.",
		Category: "market",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{"symbol": map[string]any{"type": "string"}},
			"required": []string{"symbol"},
		},
		SideEffects: false,
		CacheTTLMillis: 3000,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			if tc == nil || tc.Market == nil {
				return Err("no market client configured")
			}
			symbol := strings.ToUpper(stringInput(input, "symbol", ""))
			if symbol == "" {
				return Err("symbol is required")
			}
			_, ctxs, err := tc.Market.GetMetaAndAssetCtxs(ctx)
			if err != nil {
				return Err(err.Error())
			}
			for _, c := range ctxs {
				if strings.EqualFold(c.Coin, symbol) {
					return Ok(map[string]any{
						"coin": c.Coin,
						"mark_price": c.MarkPrice,
						"funding_rate": c.FundingRate,
						"open_interest": c.OpenInterest,
						"prev_day_price": c.PrevDayPrice,
					})
				}
			}
			return Err("market not found: " + symbol)
		},
	}
}

// analyzeTool combines price action and funding into a lightweight
// market read (perp_analyze).
func analyzeTool() Definition {
	return Definition{
		Name: "perp_analyze",
		Description: "Summarizes a market's recent price move, funding and open interest for a directional read.",
		Category: "market",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{"symbol": map[string]any{"type": "string"}},
			"required": []string{"symbol"},
		},
		SideEffects: false,
		CacheTTLMillis: 3000,
		Execute: func(ctx context.Context, input map[string]any, tc *Context) Result {
			if tc == nil || tc.Market == nil {
				return Err("no market client configured")
			}
			symbol := strings.ToUpper(stringInput(input, "symbol", ""))
			if symbol == "" {
				return Err("symbol is required")
			}
			_, ctxs, err := tc.Market.GetMetaAndAssetCtxs(ctx)
			if err != nil {
				return Err(err.Error())
			}
			for _, c := range ctxs {
				if !strings.EqualFold(c.Coin, symbol) {
					continue
				}
				changePct := 0.0
				if c.PrevDayPrice != 0 {
					changePct = (c.MarkPrice - c.PrevDayPrice) / c.PrevDayPrice * 100
				}
				bias := "neutral"
				switch {
				case changePct > 1 && c.FundingRate >= 0:
					bias = "bullish"
				case changePct < -1 && c.FundingRate <= 0:
					bias = "bearish"
				}
				return Ok(map[string]any{
					"coin": c.Coin,
					"mark_price": c.MarkPrice,
					"change_pct_24h": changePct,
					"funding_rate": c.FundingRate,
					"open_interest": c.OpenInterest,
					"bias": bias,
				})
			}
			return Err("market not found: " + symbol)
		},
	}
}
