package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/notify"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// BridgeSource recomputes bridge health given the previous state map.
type BridgeSource interface {
	MonitorAll(ctx context.Context, previous map[string]domain.BridgeHealth) ([]domain.BridgeHealth, error)
}

// healthChangeThreshold is the minimum absolute score delta worth announcing.
const healthChangeThreshold = 0.05

type bridgeLoop struct {
	monitor  BridgeSource
	state    *state.State
	hub      Publisher
	notifier Notifier
	logger   *slog.Logger
}

func (l *bridgeLoop) tick(ctx context.Context) error {
	previous := l.state.BridgeStates()
	updated, err := l.monitor.MonitorAll(ctx, previous)
	if err != nil {
		return fmt.Errorf("monitor: bridge poll: %w", err)
	}

	next := make(map[string]domain.BridgeHealth, len(updated))
	for _, bh := range updated {
		next[bh.BridgeID] = bh
	}
	l.state.SetBridgeStates(next)

	now := time.Now().UTC().Format(time.RFC3339)
	for _, bh := range updated {
		// A bridge id absent from the previous map is first-seen: its
		// previous score reads as 0, so a healthy new bridge announces once.
		prev := previous[bh.BridgeID]
		if math.Abs(bh.HealthScore-prev.HealthScore) > healthChangeThreshold {
			l.hub.Broadcast("bridge_health", map[string]any{
				"type":             "health_change",
				"bridge_id":        bh.BridgeID,
				"previous_score":   prev.HealthScore,
				"current_score":    bh.HealthScore,
				"exploit_detected": bh.ExploitDetected,
				"timestamp":        now,
			})
		}
		for _, alert := range newCriticalAlerts(prev.Alerts, bh.Alerts) {
			l.hub.Broadcast("bridge_health", map[string]any{
				"type":      "critical_alert",
				"bridge_id": bh.BridgeID,
				"alert_id":  alert.AlertID,
				"message":   alert.Message,
				"severity":  string(domain.SeverityCritical),
				"timestamp": now,
			})
			if l.notifier != nil {
				title := fmt.Sprintf("Bridge %s critical", bh.BridgeID)
				if err := l.notifier.Notify(ctx, notify.EventBridgeCritical, title, alert.Message); err != nil {
					l.logger.Warn("bridge critical notification failed",
						slog.String("bridge_id", bh.BridgeID),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}
	return nil
}

// newCriticalAlerts returns the unresolved Critical alerts in cur that were
// not present (by id) in prev.
func newCriticalAlerts(prev, cur []domain.BridgeAlert) []domain.BridgeAlert {
	seen := make(map[string]struct{}, len(prev))
	for _, a := range prev {
		seen[a.AlertID] = struct{}{}
	}
	var out []domain.BridgeAlert
	for _, a := range cur {
		if a.Severity != domain.SeverityCritical || a.Resolved {
			continue
		}
		if _, ok := seen[a.AlertID]; !ok {
			out = append(out, a)
		}
	}
	return out
}
