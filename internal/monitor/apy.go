package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// TrancheSource reports per-tranche utilization and yield.
type TrancheSource interface {
	GetAllUtilizations(ctx context.Context) ([]domain.TrancheYield, error)
}

// apyLoop publishes the tranche yield table unconditionally every tick.
type apyLoop struct {
	tracker TrancheSource
	state   *state.State
	hub     Publisher
	logger  *slog.Logger
}

func (l *apyLoop) tick(ctx context.Context) error {
	yields, err := l.tracker.GetAllUtilizations(ctx)
	if err != nil {
		return fmt.Errorf("monitor: tranche utilizations: %w", err)
	}
	l.state.SetTranches(yields)

	tranches := make([]map[string]any, 0, len(yields))
	for _, y := range yields {
		tranches = append(tranches, map[string]any{
			"tranche_id":   y.TrancheID,
			"apy":          y.APY,
			"utilization":  y.Utilization,
			"last_updated": y.LastUpdated.Format(time.RFC3339),
		})
	}
	l.hub.Broadcast("tranche_apy", map[string]any{
		"type":      "apy_update",
		"tranches":  tranches,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}
