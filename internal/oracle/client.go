// Package oracle fetches stablecoin prices from the external price oracle.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// Client implements domain.OracleAdapter against the oracle's HTTP API. When a
// price cache is configured, fetched prices are written through so readers can
// serve stale-but-recent data during oracle outages.
type Client struct {
	baseURL string
	client  *http.Client
	cache   domain.PriceCache
	logger  *slog.Logger
}

// NewClient creates an oracle client. cache may be nil.
func NewClient(cfg config.OracleConfig, cache domain.PriceCache, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout.Duration},
		cache:   cache,
		logger:  logger.With(slog.String("component", "oracle")),
	}
}

type priceResponse struct {
	Prices map[string]float64 `json:"prices"`
}

// FetchPrices returns current prices for the requested assets. Assets the
// oracle does not know are absent from the result; callers treat absence as a
// skipped sample, not an error.
func (c *Client) FetchPrices(ctx context.Context, assets []string) (map[string]float64, error) {
	if len(assets) == 0 {
		return map[string]float64{}, nil
	}
	u := fmt.Sprintf("%s/v1/prices?assets=%s", c.baseURL, url.QueryEscape(strings.Join(assets, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle: %w: status %d", domain.ErrNetwork, resp.StatusCode)
	}
	var out priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("oracle: decode prices: %w", err)
	}

	if c.cache != nil {
		now := time.Now().UTC()
		for asset, price := range out.Prices {
			if err := c.cache.SetPrice(ctx, asset, price, now); err != nil {
				c.logger.Warn("price cache write failed",
					slog.String("asset", asset), slog.String("error", err.Error()))
			}
		}
	}
	return out.Prices, nil
}

var _ domain.OracleAdapter = (*Client)(nil)
