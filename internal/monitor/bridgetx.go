package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// BridgeTxSource lists the monitored in-flight bridge transfers.
type BridgeTxSource interface {
	ListPending(ctx context.Context) ([]domain.BridgeTransaction, error)
}

// bridgeTxLoop publishes a status_update for every transaction that is new or
// whose status changed since the previous tick.
type bridgeTxLoop struct {
	store  BridgeTxSource
	hub    Publisher
	logger *slog.Logger

	lastStatus map[string]domain.BridgeTxStatus
}

func (l *bridgeTxLoop) tick(ctx context.Context) error {
	txs, err := l.store.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("monitor: list bridge transactions: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	next := make(map[string]domain.BridgeTxStatus, len(txs))
	for _, tx := range txs {
		next[tx.TxID] = tx.Status
		if prev, seen := l.lastStatus[tx.TxID]; seen && prev == tx.Status {
			continue
		}
		l.hub.Broadcast("bridge_transactions", map[string]any{
			"type":         "status_update",
			"tx_id":        tx.TxID,
			"bridge_id":    tx.BridgeID,
			"source_chain": string(tx.SourceChain),
			"dest_chain":   string(tx.DestChain),
			"amount_usd":   float64(tx.AmountCents) / 100,
			"status":       string(tx.Status),
			"timestamp":    now,
		})
	}
	l.lastStatus = next
	return nil
}
