// Package notify pushes operator alerts for the events the coordination
// plane emits: settled claims, critical bridge conditions, and risk-limit
// breaches. Alerts fan out to every configured channel; the `notify.events`
// allowlist decides which events reach operators at all.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Event classifies an operator alert. The constants below are the events the
// monitors and the claims engine produce; config allowlists are matched
// against these values.
type Event string

const (
	// EventClaimPaid fires when the claims monitor settles a payout.
	EventClaimPaid Event = "claim_paid"
	// EventBridgeCritical fires on a new critical bridge alert.
	EventBridgeCritical Event = "bridge_critical"
	// EventRiskBreach fires when a pool risk limit is breached.
	EventRiskBreach Event = "risk_breach"
)

// Sender delivers one alert over a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs ("telegram", "discord").
	Name() string
}

// Notifier fans alerts out to its senders, filtered by event. An empty
// allowlist admits every event.
type Notifier struct {
	senders []Sender
	allowed map[Event]bool
	logger  *slog.Logger
}

// NewNotifier builds a Notifier from the configured senders and the
// `notify.events` allowlist entries.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[Event]bool, len(events))
	for _, e := range events {
		allowed[Event(strings.TrimSpace(e))] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers the alert to every sender if the event passes the
// allowlist, and silently drops it otherwise.
func (n *Notifier) Notify(ctx context.Context, event Event, title, message string) error {
	if len(n.allowed) > 0 && !n.allowed[event] {
		n.logger.DebugContext(ctx, "event not in allowlist", slog.String("event", string(event)))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll delivers the alert to every sender regardless of the allowlist.
// Used for lifecycle messages that have no event classification.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to each channel in turn. One channel failing does not stop
// delivery to the rest; all failures come back joined.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.WarnContext(ctx, "alert delivery failed",
				slog.String("channel", s.Name()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
