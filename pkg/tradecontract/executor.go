package tradecontract

import (
	"context"
	"strings"
	"time"

	"github.com/perpctl/tradeagent/pkg/tools"
	"github.com/perpctl/tradeagent/pkg/venue"
)

// noImmediateMatchTerms identifies the retryable failure class the
// retry-with-widening rule reacts to.
var noImmediateMatchTerms = []string{"no immediate match", "could not immediately match", "no match"}

func isNoImmediateMatch(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	for _, t := range noImmediateMatchTerms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// PlaceOrder implements tools.Executor. It normalizes input, reconciles
// reduce-only exits against the live position, validates the entry
// contract for new entries, then submits with retry-with-widening while
// managing exactly one spend reservation across all attempts.
func (e *Enforcer) PlaceOrder(ctx context.Context, input map[string]any) tools.Result {
	normalized := Normalize(input, e.cfg)

	reduceOnly, _ := normalized["reduce_only"].(bool)
	if reduceOnly {
		reconciled, err := e.reconcileReduceOnly(ctx, normalized)
		if err != nil {
			return tools.Err(err.Error())
		}
		normalized = reconciled
	} else if err := ValidateEntry(normalized, e.cfg, time.Now().UnixMilli()); err != nil {
		return tools.Err(err.Error())
	}

	reservationID, reserved, blocked := e.reserveBudget(ctx, normalized)
	if blocked {
		return tools.Err("daily spending budget exhausted; order blocked")
	}

	baseBps := e.cfg.BaseSlippageBps
	stepBps := e.cfg.SlippageStepBps
	maxRetries := e.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr string
	for attempt := 0; attempt < maxRetries; attempt++ {
		slippageBps := baseBps + attempt*stepBps
		req := toOrderRequest(normalized, slippageBps)

		result, err := e.market.Order(ctx, req)
		if err != nil {
			lastErr = err.Error()
		} else if !result.Success {
			lastErr = result.Error
		} else {
			if reserved {
				_ = e.limiter.Confirm(ctx, reservationID)
			}
			return tools.Ok(map[string]any{
				"client_order_id": result.ClientOrderID,
				"filled_size_coins": result.FilledSizeCoins,
				"avg_fill_price": result.AvgFillPrice,
				"attempts": attempt + 1,
				"slippage_bps": slippageBps,
			})
		}

		if !isNoImmediateMatch(lastErr) {
			break
		}
	}

	if reserved {
		_ = e.limiter.Release(ctx, reservationID)
	}
	return tools.Err(lastErr)
}

// CancelOrder implements tools.Executor.
func (e *Enforcer) CancelOrder(ctx context.Context, input map[string]any) tools.Result {
	symbol, _ := input["symbol"].(string)
	clientOrderID, _ := input["client_order_id"].(string)
	if symbol == "" || clientOrderID == "" {
		return tools.Err("cancel_order requires symbol and client_order_id")
	}

	result, err := e.market.Cancel(ctx, symbol, clientOrderID)
	if err != nil {
		return tools.Err(err.Error())
	}
	if !result.Success {
		return tools.Err(result.Error)
	}
	return tools.Ok(map[string]any{"client_order_id": result.ClientOrderID})
}

func toOrderRequest(input map[string]any, slippageBps int) venue.OrderRequest {
	symbol, _ := input["symbol"].(string)
	side, _ := input["side"].(string)
	size, _ := asFloat(input["size"])
	reduceOnly, _ := input["reduce_only"].(bool)
	clientOrderID, _ := input["client_order_id"].(string)

	return venue.OrderRequest{
		Coin: symbol,
		IsBuy: side == "buy",
		SizeCoins: size,
		ReduceOnly: reduceOnly,
		OrderType: "market",
		ClientOrderID: clientOrderID,
		// LimitPrice is left zero for a market order; slippageBps informs
		// the venue client's internal worst-acceptable-price calculation
		// for this attempt and is not itself a field on OrderRequest.
		TriggerPrice: 0,
	}
}

// reserveBudget estimates the order's USD notional from the live mid
// price and reserves it against the daily spending limiter.
//
// ok=false with blocked=false means no reservation was made because no
// limiter is wired or the mid price couldn't be fetched — the order
// proceeds best-effort and the caller skips confirm/release. blocked=true
// means a limiter IS wired and explicitly declined the reservation (daily
// budget exhausted) — the order must not proceed.
func (e *Enforcer) reserveBudget(ctx context.Context, input map[string]any) (reservationID string, ok bool, blocked bool) {
	if e.limiter == nil {
		return "", false, false
	}
	symbol, _ := input["symbol"].(string)
	size, _ := asFloat(input["size"])

	mids, err := e.market.GetAllMids(ctx)
	if err != nil {
		return "", false, false
	}
	price, found := mids[symbol]
	if !found || price <= 0 {
		return "", false, false
	}

	notional := size * price
	id, granted, _, err := e.limiter.CheckAndReserve(ctx, notional, 2*time.Minute)
	if err != nil {
		return "", false, false
	}
	if !granted {
		return "", false, true
	}
	return id, true, false
}
