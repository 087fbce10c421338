// Package binance is the REST client for Binance-style USDT-margined
// perpetual futures, used for the CEX leg of the hedge book.
package binance

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

// Client talks to a Binance-style futures API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Binance futures client.
func New(cfg config.VenueConfig, timeout time.Duration) *Client {
	return &Client{
		baseURL:    cfg.Host,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Venue identifies this adapter.
func (c *Client) Venue() domain.Venue { return domain.VenueBinanceFutures }

// FundingRateHourly returns the current hourly funding rate for symbol.
func (c *Client) FundingRateHourly(ctx context.Context, symbol string) (float64, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/premiumIndex?symbol="+symbol, nil)
	if err != nil {
		return 0, fmt.Errorf("binance: funding rate: %w", err)
	}
	var result struct {
		LastFundingRate string `json:"lastFundingRate"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("binance: decode funding rate: %w", err)
	}
	var rate float64
	if _, err := fmt.Sscanf(result.LastFundingRate, "%f", &rate); err != nil {
		return 0, fmt.Errorf("binance: parse funding rate %q: %w", result.LastFundingRate, err)
	}
	// Binance funding settles every 8 hours.
	return rate / 8, nil
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
		"symbol":       hedge.PerpSymbol(product),
		"side":         side,
		"notional_usd": float64(amountCents) / 100,
		"leverage":     leverage,
		"type":         "MARKET",
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/order", payload)
	if err != nil {
		return domain.VenueOrder{}, fmt.Errorf("binance: open position: %w", err)
	}

	var result struct {
		OrderID  int64   `json:"orderId"`
		ExecQty  float64 `json:"executedQty,string"`
		AvgPrice float64 `json:"avgPrice,string"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueOrder{}, fmt.Errorf("binance: decode order: %w", err)
	}
	return domain.VenueOrder{
		OrderID:    fmt.Sprintf("%d", result.OrderID),
		FilledSize: result.ExecQty,
		Price:      result.AvgPrice,
	}, nil
}

// ClosePosition closes the short; the venue reports net P&L after fees and
// funding.
func (c *Client) ClosePosition(ctx context.Context, orderID string) (domain.VenueClose, error) {
	body, err := c.doRequest(ctx, http.MethodDelete, "/fapi/v1/order?orderId="+orderID, nil)
	if err != nil {
		return domain.VenueClose{}, fmt.Errorf("binance: close position: %w", err)
	}

	var result struct {
		NetPnLUSD float64 `json:"netPnl,string"`
		ExitPrice float64 `json:"avgPrice,string"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueClose{}, fmt.Errorf("binance: decode close: %w", err)
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
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
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
	_ hedge.FundingSource = (*Client)(nil)
)
