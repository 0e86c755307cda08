package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// HyperliquidClient implements MarketClient against a Hyperliquid-style
// info/exchange REST API: POST {baseURL}/info with a {"type": "..."}
// body for reads, POST {baseURL}/exchange for order/cancel actions.
// Requests are throttled by a token-bucket limiter (requestsPerSecond),
// simplified to a fixed budget since the venue does not signal
// backpressure the way an LLM provider's 429 does.
type HyperliquidClient struct {
	baseURL string
	httpClient *http.Client
	limiter *rate.Limiter
	walletAddr string
}

// NewHyperliquidClient builds a client throttled to requestsPerSecond.
func NewHyperliquidClient(baseURL string, requestsPerSecond float64, timeout time.Duration, walletAddr string) *HyperliquidClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &HyperliquidClient{
		baseURL: baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1),
		walletAddr: walletAddr,
	}
}

var _ MarketClient = (*HyperliquidClient)(nil)

func (c *HyperliquidClient) post(ctx context.Context, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("venue rate limiter: %w", err)
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal venue request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build venue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("venue request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read venue response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("venue %s returned %d: %s", path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode venue response from %s: %w", path, err)
	}
	return nil
}

type clearinghouseWire struct {
	AssetPositions []struct {
		Position struct {
			Coin string `json:"coin"`
			Szi string `json:"szi"`
			EntryPx string `json:"entryPx"`
			UnrealizedPnl string `json:"unrealizedPnl"`
		} `json:"position"`
	} `json:"assetPositions"`
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
	} `json:"marginSummary"`
	Withdrawable string `json:"withdrawable"`
}

func (c *HyperliquidClient) GetClearinghouseState(ctx context.Context) (*ClearinghouseState, error) {
	var wire clearinghouseWire
	if err := c.post(ctx, "/info", map[string]string{"type": "clearinghouseState", "user": c.walletAddr}, &wire); err != nil {
		return nil, err
	}
	out := &ClearinghouseState{
		AccountValue: parseFloatOrZero(wire.MarginSummary.AccountValue),
		Withdrawable: parseFloatOrZero(wire.Withdrawable),
	}
	for _, p := range wire.AssetPositions {
		out.AssetPositions = append(out.AssetPositions, Position{
			Coin: p.Position.Coin,
			SizeSigned: parseFloatOrZero(p.Position.Szi),
			EntryPrice: parseFloatOrZero(p.Position.EntryPx),
			UnrealizedPnL: parseFloatOrZero(p.Position.UnrealizedPnl),
		})
	}
	return out, nil
}

func (c *HyperliquidClient) GetAllMids(ctx context.Context) (map[string]float64, error) {
	var wire map[string]string
	if err := c.post(ctx, "/info", map[string]string{"type": "allMids"}, &wire); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(wire))
	for coin, px := range wire {
		out[coin] = parseFloatOrZero(px)
	}
	return out, nil
}

type assetMetaWire struct {
	Universe []struct {
		Name string `json:"name"`
		SzDecimals int `json:"szDecimals"`
		MaxLeverage float64 `json:"maxLeverage"`
	} `json:"universe"`
}

type assetCtxWire struct {
	Funding string `json:"funding"`
	OpenInterest string `json:"openInterest"`
	MarkPx string `json:"markPx"`
	PrevDayPx string `json:"prevDayPx"`
}

func (c *HyperliquidClient) GetMetaAndAssetCtxs(ctx context.Context) ([]AssetMeta, []AssetCtx, error) {
	var wire []json.RawMessage
	if err := c.post(ctx, "/info", map[string]string{"type": "metaAndAssetCtxs"}, &wire); err != nil {
		return nil, nil, err
	}
	if len(wire) < 2 {
		return nil, nil, fmt.Errorf("venue metaAndAssetCtxs: unexpected response shape")
	}
	var meta assetMetaWire
	if err := json.Unmarshal(wire[0], &meta); err != nil {
		return nil, nil, fmt.Errorf("decode asset meta: %w", err)
	}
	var ctxs []assetCtxWire
	if err := json.Unmarshal(wire[1], &ctxs); err != nil {
		return nil, nil, fmt.Errorf("decode asset ctxs: %w", err)
	}

	metas := make([]AssetMeta, len(meta.Universe))
	for i, u := range meta.Universe {
		metas[i] = AssetMeta{Coin: u.Name, SzDecimals: u.SzDecimals, MaxLeverage: u.MaxLeverage}
	}
	assetCtxs := make([]AssetCtx, len(ctxs))
	for i, ac := range ctxs {
		coin := ""
		if i < len(metas) {
			coin = metas[i].Coin
		}
		assetCtxs[i] = AssetCtx{
			Coin: coin,
			FundingRate: parseFloatOrZero(ac.Funding),
			OpenInterest: parseFloatOrZero(ac.OpenInterest),
			MarkPrice: parseFloatOrZero(ac.MarkPx),
			PrevDayPrice: parseFloatOrZero(ac.PrevDayPx),
		}
	}
	return metas, assetCtxs, nil
}

func (c *HyperliquidClient) GetUserFees(ctx context.Context) (*Fees, error) {
	var wire struct {
		UserCrossRate string `json:"userCrossRate"`
		UserAddRate string `json:"userAddRate"`
	}
	if err := c.post(ctx, "/info", map[string]string{"type": "userFees", "user": c.walletAddr}, &wire); err != nil {
		return nil, err
	}
	return &Fees{
		UserCrossRate: parseFloatOrZero(wire.UserCrossRate),
		UserAddRate: parseFloatOrZero(wire.UserAddRate),
	}, nil
}

func (c *HyperliquidClient) GetUserFillsByTime(ctx context.Context, startTimeMs int64) ([]Fill, error) {
	var wire []struct {
		Coin string `json:"coin"`
		Side string `json:"side"`
		Sz string `json:"sz"`
		Px string `json:"px"`
		ClosedPnl string `json:"closedPnl"`
		Time int64 `json:"time"`
		Cloid string `json:"cloid"`
	}
	body := map[string]any{"type": "userFillsByTime", "user": c.walletAddr, "startTime": startTimeMs}
	if err := c.post(ctx, "/info", body, &wire); err != nil {
		return nil, err
	}
	out := make([]Fill, len(wire))
	for i, f := range wire {
		out[i] = Fill{
			Coin: f.Coin,
			Side: f.Side,
			SizeCoins: parseFloatOrZero(f.Sz),
			Price: parseFloatOrZero(f.Px),
			ClosedPnL: parseFloatOrZero(f.ClosedPnl),
			Time: f.Time,
			ClientOrderID: f.Cloid,
		}
	}
	return out, nil
}

func (c *HyperliquidClient) Order(ctx context.Context, req OrderRequest) (*OrderResult, error) {
	body := map[string]any{
		"action": map[string]any{
			"type": "order",
			"orders": []map[string]any{{
				"a": req.Coin,
				"b": req.IsBuy,
				"p": req.LimitPrice,
				"s": req.SizeCoins,
				"r": req.ReduceOnly,
				"t": orderTypeWire(req.OrderType, req.TriggerPrice),
				"cloid": req.ClientOrderID,
			}},
		},
	}
	var wire struct {
		Status string `json:"status"`
		Response struct {
			Data struct {
				Statuses []struct {
					Filled struct {
						TotalSz string `json:"totalSz"`
						AvgPx string `json:"avgPx"`
					} `json:"filled"`
					Error string `json:"error"`
				} `json:"statuses"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := c.post(ctx, "/exchange", body, &wire); err != nil {
		return nil, err
	}
	result := &OrderResult{ClientOrderID: req.ClientOrderID}
	if len(wire.Response.Data.Statuses) > 0 {
		st := wire.Response.Data.Statuses[0]
		if st.Error != "" {
			result.Error = st.Error
			return result, nil
		}
		result.Success = true
		result.FilledSizeCoins = parseFloatOrZero(st.Filled.TotalSz)
		result.AvgFillPrice = parseFloatOrZero(st.Filled.AvgPx)
	}
	return result, nil
}

func (c *HyperliquidClient) Cancel(ctx context.Context, coin, clientOrderID string) (*OrderResult, error) {
	body := map[string]any{
		"action": map[string]any{
			"type": "cancelByCloid",
			"cancels": []map[string]any{{"asset": coin, "cloid": clientOrderID}},
		},
	}
	var wire struct {
		Status string `json:"status"`
	}
	if err := c.post(ctx, "/exchange", body, &wire); err != nil {
		return nil, err
	}
	return &OrderResult{Success: wire.Status == "ok", ClientOrderID: clientOrderID}, nil
}

func orderTypeWire(kind string, triggerPrice float64) map[string]any {
	switch kind {
	case "trigger":
		return map[string]any{"trigger": map[string]any{"triggerPx": triggerPrice, "isMarket": false, "tpsl": "sl"}}
	case "limit":
		return map[string]any{"limit": map[string]any{"tif": "Gtc"}}
	default:
		return map[string]any{"limit": map[string]any{"tif": "Ioc"}}
	}
}

func parseFloatOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return 0
	}
	return f
}
