// Package bridgewatch polls the status endpoints of configured cross-chain
// bridges and turns the raw responses into scored BridgeHealth records.
package bridgewatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/HobanSearch/Tonsurance-sub007/internal/config"
	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// statusResponse is the wire shape of a bridge status endpoint.
type statusResponse struct {
	TVLUSD          float64 `json:"tvl_usd"`
	Paused          bool    `json:"paused"`
	ExploitDetected bool    `json:"exploit_detected"`
	OpenIncidents   int     `json:"open_incidents"`
}

// Monitor implements domain.BridgeMonitor over HTTP status endpoints.
type Monitor struct {
	endpoints []config.BridgeEndpoint
	client    *http.Client
	logger    *slog.Logger
}

// NewMonitor creates a Monitor for the configured endpoints.
func NewMonitor(cfg config.BridgesConfig, logger *slog.Logger) *Monitor {
	return &Monitor{
		endpoints: cfg.Endpoints,
		client:    &http.Client{Timeout: cfg.Timeout.Duration},
		logger:    logger.With(slog.String("component", "bridgewatch")),
	}
}

// MonitorAll polls every configured bridge and returns the new health set.
// The previous map carries TVL history and open alerts forward; a bridge id
// absent from it is treated as first-seen. An unreachable endpoint keeps the
// previous record with a decayed score rather than dropping the bridge.
func (m *Monitor) MonitorAll(ctx context.Context, previous map[string]domain.BridgeHealth) ([]domain.BridgeHealth, error) {
	now := time.Now().UTC()
	out := make([]domain.BridgeHealth, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		prev, seen := previous[ep.ID]
		status, err := m.fetchStatus(ctx, ep.StatusURL)
		if err != nil {
			m.logger.Warn("bridge status fetch failed",
				slog.String("bridge_id", ep.ID), slog.String("error", err.Error()))
			if !seen {
				continue
			}
			out = append(out, degrade(prev, now))
			continue
		}

		h := domain.BridgeHealth{
			BridgeID:        ep.ID,
			SourceChain:     domain.Chain(ep.SourceChain),
			DestChain:       domain.Chain(ep.DestChain),
			CurrentTVLCents: int64(status.TVLUSD * 100),
			ExploitDetected: status.ExploitDetected,
			LastUpdated:     now,
		}
		if seen {
			h.PreviousTVLCents = prev.CurrentTVLCents
		}
		h.HealthScore = score(status, h.TVLChangePct())
		h.Alerts = reconcileAlerts(prev.Alerts, status, h, now)
		out = append(out, h)
	}
	return out, nil
}

func (m *Monitor) fetchStatus(ctx context.Context, url string) (statusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return statusResponse{}, fmt.Errorf("bridgewatch: build request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return statusResponse{}, fmt.Errorf("bridgewatch: %w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusResponse{}, fmt.Errorf("bridgewatch: %w: status %d", domain.ErrNetwork, resp.StatusCode)
	}
	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return statusResponse{}, fmt.Errorf("bridgewatch: decode status: %w", err)
	}
	return out, nil
}

// score maps a raw status onto [0,1]. An exploit floors the score regardless
// of other signals.
func score(st statusResponse, tvlChangePct float64) float64 {
	if st.ExploitDetected {
		return 0
	}
	s := 1.0
	if st.Paused {
		s -= 0.30
	}
	switch {
	case tvlChangePct <= -20:
		s -= 0.30
	case tvlChangePct <= -10:
		s -= 0.15
	}
	s -= 0.10 * float64(st.OpenIncidents)
	if s < 0 {
		s = 0
	}
	return s
}

// reconcileAlerts carries unresolved alerts forward, resolving those whose
// condition cleared, and appends alerts for newly observed conditions.
func reconcileAlerts(prev []domain.BridgeAlert, st statusResponse, h domain.BridgeHealth, now time.Time) []domain.BridgeAlert {
	conditions := map[string]domain.Severity{}
	if st.ExploitDetected {
		conditions["exploit detected"] = domain.SeverityCritical
	}
	if h.TVLChangePct() <= -20 {
		conditions["TVL dropped more than 20% since last observation"] = domain.SeverityHigh
	}
	if st.Paused {
		conditions["bridge paused by operator"] = domain.SeverityMedium
	}
	if st.OpenIncidents > 0 {
		conditions[fmt.Sprintf("%d open incidents reported", st.OpenIncidents)] = domain.SeverityMedium
	}

	var out []domain.BridgeAlert
	for _, a := range prev {
		if a.Resolved {
			continue
		}
		if _, still := conditions[a.Message]; still {
			out = append(out, a)
			delete(conditions, a.Message)
		} else {
			a.Resolved = true
			out = append(out, a)
		}
	}
	for msg, sev := range conditions {
		out = append(out, domain.BridgeAlert{
			AlertID:   uuid.NewString(),
			Severity:  sev,
			Message:   msg,
			Timestamp: now,
		})
	}
	return out
}

// degrade returns the previous record with its score decayed, used when the
// status endpoint is unreachable this tick.
func degrade(prev domain.BridgeHealth, now time.Time) domain.BridgeHealth {
	h := prev
	h.HealthScore -= 0.10
	if h.HealthScore < 0 {
		h.HealthScore = 0
	}
	h.LastUpdated = now
	alreadyFlagged := false
	for _, a := range h.Alerts {
		if !a.Resolved && a.Message == "status endpoint unreachable" {
			alreadyFlagged = true
			break
		}
	}
	if !alreadyFlagged {
		h.Alerts = append(h.Alerts, domain.BridgeAlert{
			AlertID:   uuid.NewString(),
			Severity:  domain.SeverityMedium,
			Message:   "status endpoint unreachable",
			Timestamp: now,
		})
	}
	return h
}

var _ domain.BridgeMonitor = (*Monitor)(nil)
