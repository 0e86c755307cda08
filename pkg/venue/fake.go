package venue

import "context"

// FakeClient is a scripted MarketClient used by tradecontract/orchestrator
// tests so they don't depend on a live venue.
type FakeClient struct {
	State *ClearinghouseState
	Mids map[string]float64
	Metas []AssetMeta
	AssetCtxs []AssetCtx
	FeeSchedule *Fees
	Fills []Fill
	OrderResult *OrderResult
	OrderErr error
	Orders []OrderRequest
}

var _ MarketClient = (*FakeClient)(nil)

func (f *FakeClient) GetClearinghouseState(context.Context) (*ClearinghouseState, error) {
	if f.State == nil {
		return &ClearinghouseState{}, nil
	}
	return f.State, nil
}

func (f *FakeClient) GetAllMids(context.Context) (map[string]float64, error) {
	return f.Mids, nil
}

func (f *FakeClient) GetMetaAndAssetCtxs(context.Context) ([]AssetMeta, []AssetCtx, error) {
	return f.Metas, f.AssetCtxs, nil
}

func (f *FakeClient) GetUserFees(context.Context) (*Fees, error) {
	if f.FeeSchedule == nil {
		return &Fees{}, nil
	}
	return f.FeeSchedule, nil
}

func (f *FakeClient) GetUserFillsByTime(context.Context, int64) ([]Fill, error) {
	return f.Fills, nil
}

func (f *FakeClient) Order(_ context.Context, req OrderRequest) (*OrderResult, error) {
	f.Orders = append(f.Orders, req)
	if f.OrderErr != nil {
		return nil, f.OrderErr
	}
	if f.OrderResult != nil {
		return f.OrderResult, nil
	}
	return &OrderResult{Success: true, ClientOrderID: req.ClientOrderID, FilledSizeCoins: req.SizeCoins}, nil
}

func (f *FakeClient) Cancel(_ context.Context, _, clientOrderID string) (*OrderResult, error) {
	return &OrderResult{Success: true, ClientOrderID: clientOrderID}, nil
}

// PositionFor returns the position for coin, or (Position{}, false).
func (f *FakeClient) PositionFor(coin string) (Position, bool) {
	if f.State == nil {
		return Position{}, false
	}
	for _, p := range f.State.AssetPositions {
		if p.Coin == coin {
			return p, true
		}
	}
	return Position{}, false
}
