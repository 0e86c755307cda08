package autonomy

import (
	"context"
	"log/slog"
)

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// nextInterval implements its cadence adaptation: the base
// interval is widened when open risk or budget is tight, and further
// adjusted by how volatile the configured symbol set currently is.
func (e *Engine) nextInterval(ctx context.Context) int {
	cfg := e.Config
	interval := float64(cfg.BaseIntervalSeconds)

	if e.atPositionCap(ctx) {
		interval *= 2.0
	}
	if e.budgetTight(ctx) {
		interval *= 2.0
	}

	switch pulse := e.volatilityPulse(ctx); {
	case pulse >= 0.01:
		interval *= 1.5
	case pulse <= 0.0025:
		interval *= 0.75
	}

	return clamp(int(interval), cfg.MinIntervalSeconds, cfg.MaxIntervalSeconds)
}

func (e *Engine) atPositionCap(ctx context.Context) bool {
	if e.Market == nil {
		return false
	}
	state, err := e.Market.GetClearinghouseState(ctx)
	if err != nil {
		slog.Warn("autonomy: clearinghouse state lookup failed", "error", err)
		return false
	}
	open := 0
	for _, p := range state.AssetPositions {
		if p.SizeSigned != 0 {
			open++
		}
	}
	return open >= e.Config.ConcurrentPositionCap
}

func (e *Engine) budgetTight(ctx context.Context) bool {
	if e.Limiter == nil {
		return false
	}
	remaining, err := e.Limiter.RemainingToday(ctx)
	if err != nil {
		slog.Warn("autonomy: remaining budget lookup failed", "error", err)
		return false
	}
	return remaining < e.Config.PerTradeCapUsd
}

// volatilityPulse is the average absolute day-over-day move across the
// configured symbol set, used as a cheap proxy for "is the market moving
// right now" without a dedicated volatility feed.
func (e *Engine) volatilityPulse(ctx context.Context) float64 {
	if e.Market == nil || len(e.Symbols) == 0 {
		return 0
	}
	_, assetCtxs, err := e.Market.GetMetaAndAssetCtxs(ctx)
	if err != nil {
		slog.Warn("autonomy: asset ctx lookup failed", "error", err)
		return 0
	}

	wanted := make(map[string]bool, len(e.Symbols))
	for _, s := range e.Symbols {
		wanted[s] = true
	}

	var sum float64
	var n int
	for _, a := range assetCtxs {
		if !wanted[a.Coin] || a.PrevDayPrice <= 0 {
			continue
		}
		move := (a.MarkPrice - a.PrevDayPrice) / a.PrevDayPrice
		if move < 0 {
			move = -move
		}
		sum += move
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
