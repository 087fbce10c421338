// Package hyperliquid is the REST client for the DeFi perpetuals leg of the
// hedge book, speaking Hyperliquid's info/exchange API shape.
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/hedge"
)

// Client talks to the Hyperliquid API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Hyperliquid client.
func New(cfg config.VenueConfig, timeout time.Duration) *Client {
	return &Client{
		baseURL:    cfg.Host,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Venue identifies this adapter.
func (c *Client) Venue() domain.Venue { return domain.VenueDefiPerps }

// coin strips the USDT suffix from a CEX-style symbol; Hyperliquid keys
// markets by bare coin name.
func coin(symbol string) string {
	return strings.TrimSuffix(symbol, "USDT")
}

// FundingRateHourly returns the current hourly funding rate for symbol.
func (c *Client) FundingRateHourly(ctx context.Context, symbol string) (float64, error) {
	payload := map[string]any{"type": "metaAndAssetCtxs", "coin": coin(symbol)}
	body, err := c.doRequest(ctx, "/info", payload)
	if err != nil {
		return 0, fmt.Errorf("hyperliquid: funding rate: %w", err)
	}
	var result struct {
		Funding string `json:"funding"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("hyperliquid: decode funding: %w", err)
	}
	var rate float64
	if _, err := fmt.Sscanf(result.Funding, "%f", &rate); err != nil {
		return 0, fmt.Errorf("hyperliquid: parse funding %q: %w", result.Funding, err)
	}
	return rate, nil
}

// Quote estimates the cost of holding a short for the standard duration.
func (c *Client) Quote(ctx context.Context, product domain.ProductKey, amountCents int64) (domain.VenueQuote, error) {
	rate, err := c.FundingRateHourly(ctx, hedge.PerpSymbol(product))
	if err != nil {
		return domain.VenueQuote{}, err
	}
	cost := int64(float64(amountCents) * rate * 24 * 30)
	return domain.VenueQuote{CostCents: cost, Price: rate}, nil
}

// OpenPosition opens a short sized so notional equals the allocated USD.
func (c *Client) OpenPosition(ctx context.Context, product domain.ProductKey, amountCents int64, side string, leverage int) (domain.VenueOrder, error) {
	payload := map[string]any{
		"action": map[string]any{
			"type":         "order",
			"coin":         coin(hedge.PerpSymbol(product)),
			"is_buy":       side != "short",
			"notional_usd": float64(amountCents) / 100,
			"leverage":     leverage,
			"order_type":   "market",
		},
	}
	body, err := c.doRequest(ctx, "/exchange", payload)
	if err != nil {
		return domain.VenueOrder{}, fmt.Errorf("hyperliquid: open position: %w", err)
	}

	var result struct {
		OrderID    string  `json:"oid"`
		FilledSize float64 `json:"filled_sz"`
		AvgPrice   float64 `json:"avg_px"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueOrder{}, fmt.Errorf("hyperliquid: decode order: %w", err)
	}
	return domain.VenueOrder{
		OrderID:    result.OrderID,
		FilledSize: result.FilledSize,
		Price:      result.AvgPrice,
	}, nil
}

// ClosePosition closes the short; the venue reports net P&L.
func (c *Client) ClosePosition(ctx context.Context, orderID string) (domain.VenueClose, error) {
	payload := map[string]any{
		"action": map[string]any{"type": "close", "oid": orderID},
	}
	body, err := c.doRequest(ctx, "/exchange", payload)
	if err != nil {
		return domain.VenueClose{}, fmt.Errorf("hyperliquid: close position: %w", err)
	}

	var result struct {
		NetPnLUSD float64 `json:"net_pnl_usd"`
		ExitPrice float64 `json:"exit_px"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueClose{}, fmt.Errorf("hyperliquid: decode close: %w", err)
	}
	return domain.VenueClose{
		NetPnLCents: int64(result.NetPnLUSD * 100),
		ExitPrice:   result.ExitPrice,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
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

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrVenueUnavailable, resp.StatusCode, out)
	}
	return out, nil
}

var (
	_ domain.VenueAdapter = (*Client)(nil)
	_ hedge.FundingSource = (*Client)(nil)
)
