// Package polymarket is the REST client for the Polymarket binary-market
// venue: market discovery for the cost fetcher and YES-share market orders
// for the hedge orchestrator.
package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/hedge"
)

// maxSlippage is the tolerated fill slippage on YES-share market orders.
const maxSlippage = 0.015

// Client talks to the Polymarket CLOB API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Polymarket client.
func New(cfg config.VenueConfig, timeout time.Duration) *Client {
	return &Client{
		baseURL:    cfg.Host,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Venue identifies this adapter.
func (c *Client) Venue() domain.Venue { return domain.VenuePolymarket }

type apiMarket struct {
	ID        string  `json:"id"`
	YesPrice  float64 `json:"yes_price"`
	Liquidity float64 `json:"liquidity_usd"`
	EndDate   string  `json:"end_date"`
}

// ListMarkets returns the candidate markets for a product's instrument id.
func (c *Client) ListMarkets(ctx context.Context, product domain.ProductKey) ([]hedge.BinaryMarket, error) {
	path := fmt.Sprintf("/markets?slug_prefix=%s", hedge.PolymarketMarketID(product, time.Now().UTC()))
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket: list markets: %w", err)
	}

	var raw struct {
		Markets []apiMarket `json:"markets"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("polymarket: decode markets: %w", err)
	}

	out := make([]hedge.BinaryMarket, 0, len(raw.Markets))
	for _, m := range raw.Markets {
		expiry, err := time.Parse(time.RFC3339, m.EndDate)
		if err != nil {
			continue
		}
		out = append(out, hedge.BinaryMarket{
			ID:             m.ID,
			YesPrice:       m.YesPrice,
			LiquidityCents: int64(m.Liquidity * 100),
			Expiry:         expiry,
		})
	}
	return out, nil
}

// Quote prices a prospective YES-share buy without placing it.
func (c *Client) Quote(ctx context.Context, product domain.ProductKey, amountCents int64) (domain.VenueQuote, error) {
	markets, err := c.ListMarkets(ctx, product)
	if err != nil {
		return domain.VenueQuote{}, err
	}
	if len(markets) == 0 {
		return domain.VenueQuote{}, fmt.Errorf("polymarket: %w: no market for %s", domain.ErrVenueUnavailable, product)
	}
	best := markets[0]
	for _, m := range markets[1:] {
		if m.YesPrice < best.YesPrice {
			best = m
		}
	}
	return domain.VenueQuote{
		CostCents: int64(float64(amountCents) * best.YesPrice),
		Price:     best.YesPrice,
	}, nil
}

// OpenPosition buys YES shares at market for the allocated USD size.
func (c *Client) OpenPosition(ctx context.Context, product domain.ProductKey, amountCents int64, side string, _ int) (domain.VenueOrder, error) {
	payload := map[string]any{
		"market_id":    hedge.PolymarketMarketID(product, time.Now().UTC()),
		"side":         side,
		"amount_usd":   float64(amountCents) / 100,
		"order_type":   "market",
		"max_slippage": maxSlippage,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return domain.VenueOrder{}, fmt.Errorf("polymarket: open position: %w", err)
	}

	var result struct {
		OrderID    string  `json:"order_id"`
		FilledSize float64 `json:"filled_size"`
		AvgPrice   float64 `json:"avg_price"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueOrder{}, fmt.Errorf("polymarket: decode order: %w", err)
	}
	return domain.VenueOrder{
		OrderID:    result.OrderID,
		FilledSize: result.FilledSize,
		Price:      result.AvgPrice,
	}, nil
}

// ClosePosition sells the position's shares at market.
func (c *Client) ClosePosition(ctx context.Context, orderID string) (domain.VenueClose, error) {
	body, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/close", orderID), nil)
	if err != nil {
		return domain.VenueClose{}, fmt.Errorf("polymarket: close position: %w", err)
	}

	var result struct {
		ExitPrice float64 `json:"exit_price"`
		NetPnLUSD float64 `json:"net_pnl_usd"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueClose{}, fmt.Errorf("polymarket: decode close: %w", err)
	}
	return domain.VenueClose{
		NetPnLCents: int64(result.NetPnLUSD * 100),
		ExitPrice:   result.ExitPrice,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrVenueUnavailable, resp.StatusCode, data)
	}
	return data, nil
}

var (
	_ domain.VenueAdapter = (*Client)(nil)
	_ hedge.MarketSource  = (*Client)(nil)
)
