package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// BridgeTxStore implements domain.BridgeTxStore using PostgreSQL.
type BridgeTxStore struct {
	pool *pgxpool.Pool
}

// NewBridgeTxStore creates a BridgeTxStore backed by the given pool.
func NewBridgeTxStore(pool *pgxpool.Pool) *BridgeTxStore {
	return &BridgeTxStore{pool: pool}
}

// ListPending returns transfers not yet completed or failed, oldest first.
func (s *BridgeTxStore) ListPending(ctx context.Context) ([]domain.BridgeTransaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT tx_id, bridge_id, source_chain, dest_chain, amount_cents, status, updated_at
		 FROM bridge_transactions
		 WHERE status IN ('pending', 'confirmed')
		 ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list pending bridge txs: %w", err)
	}
	defer rows.Close()

	var out []domain.BridgeTransaction
	for rows.Next() {
		var (
			tx                domain.BridgeTransaction
			src, dest, status string
		)
		if err := rows.Scan(&tx.TxID, &tx.BridgeID, &src, &dest, &tx.AmountCents, &status, &tx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan bridge tx: %w", err)
		}
		tx.SourceChain = domain.Chain(src)
		tx.DestChain = domain.Chain(dest)
		tx.Status = domain.BridgeTxStatus(status)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate bridge txs: %w", err)
	}
	return out, nil
}

// Upsert writes one transfer record.
func (s *BridgeTxStore) Upsert(ctx context.Context, tx domain.BridgeTransaction) error {
	const query = `
		INSERT INTO bridge_transactions (tx_id, bridge_id, source_chain, dest_chain, amount_cents, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tx_id) DO UPDATE
		SET status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		tx.TxID, tx.BridgeID, string(tx.SourceChain), string(tx.DestChain),
		tx.AmountCents, string(tx.Status), tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert bridge tx %s: %w", tx.TxID, err)
	}
	return nil
}

var _ domain.BridgeTxStore = (*BridgeTxStore)(nil)
