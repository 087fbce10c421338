package polymarket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/hedge"
)

var depegUSDC = domain.ProductKey{
	Coverage:   domain.CoverageDepeg,
	Chain:      domain.ChainEthereum,
	Stablecoin: domain.StableUSDC,
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.VenueConfig{Host: srv.URL, APIKey: "pm-key"}, 2*time.Second)
}

func TestQuote_PicksCheapestMarket(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("slug_prefix"))
		assert.Equal(t, "Bearer pm-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"markets":[
			{"id":"m1","yes_price":0.08,"liquidity_usd":50000,"end_date":"2026-12-31T00:00:00Z"},
			{"id":"m2","yes_price":0.05,"liquidity_usd":80000,"end_date":"2026-12-31T00:00:00Z"}
		]}`))
	})

	quote, err := client.Quote(context.Background(), depegUSDC, 100_000)
	require.NoError(t, err)
	assert.Equal(t, 0.05, quote.Price)
	assert.Equal(t, int64(5_000), quote.CostCents)
}

func TestQuote_NoMarkets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets":[]}`))
	})

	_, err := client.Quote(context.Background(), depegUSDC, 100_000)
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)
}

func TestListMarkets_SkipsUnparseableExpiry(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"markets":[
			{"id":"good","yes_price":0.10,"liquidity_usd":1000,"end_date":"2026-12-31T00:00:00Z"},
			{"id":"bad","yes_price":0.10,"liquidity_usd":1000,"end_date":"soon"}
		]}`))
	})

	markets, err := client.ListMarkets(context.Background(), depegUSDC)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "good", markets[0].ID)
	assert.Equal(t, int64(100_000), markets[0].LiquidityCents)
}

func TestOpenPosition(t *testing.T) {
	var payload map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.Write([]byte(`{"order_id":"ord-7","filled_size":11520,"avg_price":0.05}`))
	})

	order, err := client.OpenPosition(context.Background(), depegUSDC, 576_000, "yes", 1)
	require.NoError(t, err)
	assert.Equal(t, "ord-7", order.OrderID)
	assert.Equal(t, 0.05, order.Price)

	assert.Equal(t, "yes", payload["side"])
	assert.Equal(t, 5760.0, payload["amount_usd"])
	assert.Equal(t, "market", payload["order_type"])
	assert.Equal(t, hedge.PolymarketMarketID(depegUSDC, time.Now().UTC()), payload["market_id"])
}

func TestClosePosition(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/ord-7/close", r.URL.Path)
		w.Write([]byte(`{"exit_price":0.95,"net_pnl_usd":103680}`))
	})

	closed, err := client.ClosePosition(context.Background(), "ord-7")
	require.NoError(t, err)
	assert.Equal(t, 0.95, closed.ExitPrice)
	assert.Equal(t, int64(10_368_000), closed.NetPnLCents)
}

func TestDoRequest_VenueError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := client.ClosePosition(context.Background(), "ord-7")
	assert.ErrorIs(t, err, domain.ErrVenueUnavailable)
}
