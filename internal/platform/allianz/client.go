// Package allianz is the REST client for the parametric reinsurance venue:
// quote-then-bind policies whose premium is the hedge cost.
package allianz

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
)

// Client talks to the parametric reinsurance API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates an Allianz client.
func New(cfg config.VenueConfig, timeout time.Duration) *Client {
	return &Client{
		baseURL:    cfg.Host,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Venue identifies this adapter.
func (c *Client) Venue() domain.Venue { return domain.VenueAllianz }

// Quote requests a premium quote for covering the notional.
func (c *Client) Quote(ctx context.Context, product domain.ProductKey, amountCents int64) (domain.VenueQuote, error) {
	payload := map[string]any{
		"peril":        string(product.Coverage),
		"chain":        string(product.Chain),
		"asset":        string(product.Stablecoin),
		"notional_usd": float64(amountCents) / 100,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/v1/quotes", payload)
	if err != nil {
		return domain.VenueQuote{}, fmt.Errorf("allianz: quote: %w", err)
	}

	var result struct {
		PremiumUSD float64 `json:"premium_usd"`
		Rate       float64 `json:"rate"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueQuote{}, fmt.Errorf("allianz: decode quote: %w", err)
	}
	return domain.VenueQuote{
		CostCents: int64(result.PremiumUSD * 100),
		Price:     result.Rate,
	}, nil
}

// OpenPosition binds a reinsurance policy of matching notional. Side and
// leverage do not apply to this venue.
func (c *Client) OpenPosition(ctx context.Context, product domain.ProductKey, amountCents int64, _ string, _ int) (domain.VenueOrder, error) {
	payload := map[string]any{
		"peril":        string(product.Coverage),
		"chain":        string(product.Chain),
		"asset":        string(product.Stablecoin),
		"notional_usd": float64(amountCents) / 100,
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/v1/policies", payload)
	if err != nil {
		return domain.VenueOrder{}, fmt.Errorf("allianz: bind policy: %w", err)
	}

	var result struct {
		PolicyRef  string  `json:"policy_ref"`
		PremiumUSD float64 `json:"premium_usd"`
		Rate       float64 `json:"rate"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueOrder{}, fmt.Errorf("allianz: decode bind: %w", err)
	}
	return domain.VenueOrder{
		OrderID:    result.PolicyRef,
		FilledSize: float64(amountCents) / 100,
		Price:      result.Rate,
	}, nil
}

// ClosePosition files the reinsurance claim. The payout is the full hedge
// notional when the claim qualifies, zero otherwise.
func (c *Client) ClosePosition(ctx context.Context, orderID string) (domain.VenueClose, error) {
	body, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/policies/%s/claim", orderID), nil)
	if err != nil {
		return domain.VenueClose{}, fmt.Errorf("allianz: claim: %w", err)
	}

	var result struct {
		Qualified bool    `json:"qualified"`
		PayoutUSD float64 `json:"payout_usd"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return domain.VenueClose{}, fmt.Errorf("allianz: decode claim: %w", err)
	}
	if !result.Qualified {
		return domain.VenueClose{}, nil
	}
	return domain.VenueClose{NetPnLCents: int64(result.PayoutUSD * 100)}, nil
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
		req.Header.Set("X-API-Key", c.apiKey)
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

var _ domain.VenueAdapter = (*Client)(nil)
