package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHyperliquidClient_GetClearinghouseState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "clearinghouseState", body["type"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"assetPositions": [{"position": {"coin": "BTC", "szi": "0.5", "entryPx": "60000", "unrealizedPnl": "120.5"}}],
			"marginSummary": {"accountValue": "10000"},
			"withdrawable": "9000"
			}`))
	}))
	defer srv.Close()

	c := NewHyperliquidClient(srv.URL, 50, 0, "0xabc")
	state, err := c.GetClearinghouseState(context.Background())
	require.NoError(t, err)
	require.Len(t, state.AssetPositions, 1)
	assert.Equal(t, "BTC", state.AssetPositions[0].Coin)
	assert.Equal(t, 0.5, state.AssetPositions[0].SizeSigned)
	assert.Equal(t, 10000.0, state.AccountValue)
}

func TestHyperliquidClient_OrderSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","response":{"data":{"statuses":[{"error":"insufficient margin"}]}}}`))
	}))
	defer srv.Close()

	c := NewHyperliquidClient(srv.URL, 50, 0, "0xabc")
	res, err := c.Order(context.Background(), OrderRequest{Coin: "BTC", IsBuy: true, SizeCoins: 1})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "insufficient margin", res.Error)
}

func TestFakeClient_OrderRecordsRequest(t *testing.T) {
	f := &FakeClient{}
	res, err := f.Order(context.Background(), OrderRequest{Coin: "ETH", SizeCoins: 2, ClientOrderID: "abc"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, f.Orders, 1)
}
