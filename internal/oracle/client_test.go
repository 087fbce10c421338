package oracle

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

type memPriceCache struct {
	mu     sync.Mutex
	prices map[string]float64
	setErr error
}

func (c *memPriceCache) SetPrice(_ context.Context, asset string, price float64, _ time.Time) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prices == nil {
		c.prices = make(map[string]float64)
	}
	c.prices[asset] = price
	return nil
}

func (c *memPriceCache) GetPrice(context.Context, string) (float64, time.Time, error) {
	return 0, time.Time{}, domain.ErrNotFound
}

func (c *memPriceCache) GetPrices(context.Context, []string) (map[string]float64, error) {
	return nil, domain.ErrNotFound
}

func newTestClient(t *testing.T, handler http.HandlerFunc, cache domain.PriceCache) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.OracleConfig{BaseURL: srv.URL}
	cfg.Timeout.Duration = 2 * time.Second
	return NewClient(cfg, cache, slog.New(slog.DiscardHandler))
}

func TestFetchPrices(t *testing.T) {
	var gotAssets string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/prices", r.URL.Path)
		gotAssets = r.URL.Query().Get("assets")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prices":{"USDC":0.9998,"USDT":1.0001}}`))
	}, nil)

	prices, err := client.FetchPrices(context.Background(), []string{"USDC", "USDT"})
	require.NoError(t, err)
	assert.Equal(t, "USDC,USDT", gotAssets)
	assert.Equal(t, map[string]float64{"USDC": 0.9998, "USDT": 1.0001}, prices)
}

func TestFetchPrices_WritesThroughCache(t *testing.T) {
	cache := &memPriceCache{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":{"USDC":0.97}}`))
	}, cache)

	_, err := client.FetchPrices(context.Background(), []string{"USDC"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"USDC": 0.97}, cache.prices)
}

func TestFetchPrices_CacheFailureIsNotFatal(t *testing.T) {
	cache := &memPriceCache{setErr: domain.ErrNetwork}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":{"USDC":0.99}}`))
	}, cache)

	prices, err := client.FetchPrices(context.Background(), []string{"USDC"})
	require.NoError(t, err)
	assert.Equal(t, 0.99, prices["USDC"])
}

func TestFetchPrices_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	_, err := client.FetchPrices(context.Background(), []string{"USDC"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestFetchPrices_NoAssetsSkipsRequest(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, nil)

	prices, err := client.FetchPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
	assert.False(t, called)
}

func TestFetchPrices_UnknownAssetAbsent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":{"USDC":1.0}}`))
	}, nil)

	prices, err := client.FetchPrices(context.Background(), []string{"USDC", "FRAX"})
	require.NoError(t, err)
	assert.Contains(t, prices, "USDC")
	assert.NotContains(t, prices, "FRAX")
}
