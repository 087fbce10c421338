package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
	"github.com/HobanSearch/Tonsurance-sub007/internal/state"
)

// productsLoop watches the top-product ranking in the latest risk snapshot and
// announces reorderings. Only the ordered key sequence matters; exposure
// movements without rank changes stay quiet.
type productsLoop struct {
	state  *state.State
	hub    Publisher
	logger *slog.Logger

	lastRanking []domain.ProductRank
}

func (l *productsLoop) tick(_ context.Context) error {
	snap, ok := l.state.RiskSnapshot()
	if !ok {
		return nil
	}
	if domain.SameRanking(l.lastRanking, snap.TopProducts) {
		return nil
	}
	l.lastRanking = snap.TopProducts

	products := make([]map[string]any, 0, len(snap.TopProducts))
	for _, p := range snap.TopProducts {
		products = append(products, map[string]any{
			"coverage_type": string(p.Product.Coverage),
			"chain":         string(p.Product.Chain),
			"stablecoin":    string(p.Product.Stablecoin),
			"exposure_usd":  p.ExposureCents,
			"policy_count":  p.PolicyCount,
		})
	}
	l.hub.Broadcast("top_products", map[string]any{
		"type":      "ranking_update",
		"products":  products,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return nil
}
