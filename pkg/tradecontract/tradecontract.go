// Package tradecontract enforces the normalization, terminal-contract
// injection, remediation, reduce-only reconciliation, retry-with-
// widening, and entry/exit FSM validation rules that every order must
// pass before it reaches the venue.
// It also implements tools.Executor so the tool registry's
// perp_place_order/perp_cancel_order tools route every mutating call
// through this layer rather than hitting venue.MarketClient directly.
package tradecontract

import (
	"context"

	"github.com/perpctl/tradeagent/pkg/config"
	"github.com/perpctl/tradeagent/pkg/store"
	"github.com/perpctl/tradeagent/pkg/tools"
	"github.com/perpctl/tradeagent/pkg/venue"
)

// Enforcer is the trade-contract layer. It satisfies tools.Executor.
type Enforcer struct {
	cfg *config.TradeContractConfig
	market venue.MarketClient
	limiter store.SpendingLimiter
}

var _ tools.Executor = (*Enforcer)(nil)

// New builds an Enforcer. limiter may be nil when spending reservation
// isn't wired (e.g. admin-mode manual order tools).
func New(cfg *config.TradeContractConfig, market venue.MarketClient, limiter store.SpendingLimiter) *Enforcer {
	return &Enforcer{cfg: cfg, market: market, limiter: limiter}
}
