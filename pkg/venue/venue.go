// Package venue is the perp-futures exchange seam: reduce-only reconciliation, fee lookups and autonomy
// sizing all go through MarketClient, never a concrete REST client.
package venue

import "context"

// Position is one open position as reported by the venue.
type Position struct {
	Coin string
	SizeSigned float64 // positive = long, negative = short ("szi")
	EntryPrice float64
	UnrealizedPnL float64
}

// ClearinghouseState is the account-wide position/margin snapshot.
type ClearinghouseState struct {
	AssetPositions []Position
	AccountValue float64
	Withdrawable float64
}

// AssetMeta describes one listed perp market.
type AssetMeta struct {
	Coin string
	SzDecimals int
	MaxLeverage float64
}

// AssetCtx carries the per-market pricing context used for funding rate
// and mark price.
type AssetCtx struct {
	Coin string
	FundingRate float64
	OpenInterest float64
	MarkPrice float64
	PrevDayPrice float64
}

// Fees is the account's current maker/taker fee schedule.
type Fees struct {
	UserCrossRate float64
	UserAddRate float64
}

// Fill is one historical execution.
type Fill struct {
	Coin string
	Side string
	SizeCoins float64
	Price float64
	ClosedPnL float64
	Time int64
	ClientOrderID string
}

// OrderRequest places or amends a resting order; also used for TP/SL
// placement alongside the primary entry for TP/SL
// placement").
type OrderRequest struct {
	Coin string
	IsBuy bool
	SizeCoins float64
	LimitPrice float64
	ReduceOnly bool
	OrderType string // "market" | "limit" | "trigger"
	TriggerPrice float64
	ClientOrderID string
}

// OrderResult is the venue's acknowledgement of an order/cancel call.
type OrderResult struct {
	Success bool
	ClientOrderID string
	FilledSizeCoins float64
	AvgFillPrice float64
	Error string
}

// MarketClient is the full venue seam every exchange-facing read and
// order-placement call goes through.
type MarketClient interface {
	GetClearinghouseState(ctx context.Context) (*ClearinghouseState, error)
	GetAllMids(ctx context.Context) (map[string]float64, error)
	GetMetaAndAssetCtxs(ctx context.Context) ([]AssetMeta, []AssetCtx, error)
	GetUserFees(ctx context.Context) (*Fees, error)
	GetUserFillsByTime(ctx context.Context, startTimeMs int64) ([]Fill, error)
	Order(ctx context.Context, req OrderRequest) (*OrderResult, error)
	Cancel(ctx context.Context, coin, clientOrderID string) (*OrderResult, error)
}
