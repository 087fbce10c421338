package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/notify"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// RiskSource recomputes a risk snapshot from a pool view.
type RiskSource interface {
	CalculateSnapshot(ctx context.Context, pool domain.UnifiedPool) (domain.RiskSnapshot, error)
}

type riskLoop struct {
	monitor  RiskSource
	state    *state.State
	hub      Publisher
	notifier Notifier
	logger   *slog.Logger
}

func (l *riskLoop) tick(ctx context.Context) error {
	snap, err := l.monitor.CalculateSnapshot(ctx, l.state.Pool.Snapshot())
	if err != nil {
		return fmt.Errorf("monitor: risk snapshot: %w", err)
	}

	prev, hadPrev := l.state.RiskSnapshot()
	l.state.SetRiskSnapshot(snap)

	for _, alert := range snap.BreachAlerts {
		if hadPrev && containsAlert(prev.BreachAlerts, alert) {
			continue
		}
		l.hub.Broadcast("risk_alerts", map[string]any{
			"type":          "new_alert",
			"alert_type":    string(alert.Kind),
			"severity":      string(alert.Severity),
			"message":       alert.Message,
			"current_value": alert.CurrentValue,
			"limit_value":   alert.LimitValue,
			"timestamp":     alert.Timestamp.Format(time.RFC3339),
		})
		if l.notifier != nil {
			title := fmt.Sprintf("Risk limit breached: %s", alert.Kind)
			if err := l.notifier.Notify(ctx, notify.EventRiskBreach, title, alert.Message); err != nil {
				l.logger.Warn("risk breach notification failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return nil
}

func containsAlert(alerts []domain.RiskAlert, a domain.RiskAlert) bool {
	for _, b := range alerts {
		if a.SameAs(b) {
			return true
		}
	}
	return false
}
