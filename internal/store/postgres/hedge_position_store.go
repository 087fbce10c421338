package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/HobanSearch/Tonsurance-sub007/internal/domain"
)

// HedgePositionStore implements domain.HedgePositionStore using PostgreSQL.
type HedgePositionStore struct {
	pool *pgxpool.Pool
}

// NewHedgePositionStore creates a HedgePositionStore backed by the given pool.
func NewHedgePositionStore(pool *pgxpool.Pool) *HedgePositionStore {
	return &HedgePositionStore{pool: pool}
}

const hedgeColumns = `
	position_id, policy_id, coverage_type, chain, stablecoin, venue,
	external_order_id, hedge_cents, entry_price, entry_time, status,
	realized_pnl_cents, close_time`

// Create inserts a new position.
func (s *HedgePositionStore) Create(ctx context.Context, pos domain.HedgePosition) error {
	const query = `
		INSERT INTO hedge_positions (
			position_id, policy_id, coverage_type, chain, stablecoin, venue,
			external_order_id, hedge_cents, entry_price, entry_time, status,
			realized_pnl_cents, close_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		pos.PositionID, pos.PolicyID,
		string(pos.Product.Coverage), string(pos.Product.Chain), string(pos.Product.Stablecoin),
		string(pos.Venue), pos.ExternalOrderID, pos.HedgeCents, pos.EntryPrice,
		pos.EntryTime, string(pos.Status), pos.RealizedPnLCents, pos.CloseTime,
	)
	if err != nil {
		return fmt.Errorf("postgres: create hedge position %s: %w", pos.PositionID, err)
	}
	return nil
}

// Get returns one position by id.
func (s *HedgePositionStore) Get(ctx context.Context, positionID string) (domain.HedgePosition, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+hedgeColumns+` FROM hedge_positions WHERE position_id = $1`, positionID)
	pos, err := scanHedgePosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.HedgePosition{}, fmt.Errorf("postgres: hedge position %s: %w", positionID, domain.ErrNotFound)
		}
		return domain.HedgePosition{}, fmt.Errorf("postgres: get hedge position %s: %w", positionID, err)
	}
	return pos, nil
}

// ListOpen returns every open position.
func (s *HedgePositionStore) ListOpen(ctx context.Context) ([]domain.HedgePosition, error) {
	return s.list(ctx,
		`SELECT`+hedgeColumns+` FROM hedge_positions WHERE status = 'open' ORDER BY entry_time`)
}

// ListOpenByPolicy returns the open positions hedging one policy.
func (s *HedgePositionStore) ListOpenByPolicy(ctx context.Context, policyID int64) ([]domain.HedgePosition, error) {
	return s.list(ctx,
		`SELECT`+hedgeColumns+` FROM hedge_positions WHERE status = 'open' AND policy_id = $1 ORDER BY entry_time`,
		policyID)
}

// Update rewrites the mutable fields of a position.
func (s *HedgePositionStore) Update(ctx context.Context, pos domain.HedgePosition) error {
	const query = `
		UPDATE hedge_positions
		SET status = $2, realized_pnl_cents = $3, close_time = $4
		WHERE position_id = $1`

	tag, err := s.pool.Exec(ctx, query,
		pos.PositionID, string(pos.Status), pos.RealizedPnLCents, pos.CloseTime)
	if err != nil {
		return fmt.Errorf("postgres: update hedge position %s: %w", pos.PositionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: hedge position %s: %w", pos.PositionID, domain.ErrNotFound)
	}
	return nil
}

func (s *HedgePositionStore) list(ctx context.Context, query string, args ...any) ([]domain.HedgePosition, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list hedge positions: %w", err)
	}
	defer rows.Close()

	var out []domain.HedgePosition
	for rows.Next() {
		pos, err := scanHedgePosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan hedge position: %w", err)
		}
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate hedge positions: %w", err)
	}
	return out, nil
}

func scanHedgePosition(row pgx.Row) (domain.HedgePosition, error) {
	var (
		pos                                domain.HedgePosition
		coverage, chain, stablecoin, venue string
		status                             string
	)
	err := row.Scan(
		&pos.PositionID, &pos.PolicyID, &coverage, &chain, &stablecoin, &venue,
		&pos.ExternalOrderID, &pos.HedgeCents, &pos.EntryPrice, &pos.EntryTime,
		&status, &pos.RealizedPnLCents, &pos.CloseTime,
	)
	if err != nil {
		return domain.HedgePosition{}, err
	}
	pos.Product = domain.ProductKey{
		Coverage:   domain.CoverageKind(coverage),
		Chain:      domain.Chain(chain),
		Stablecoin: domain.Stablecoin(stablecoin),
	}
	pos.Venue = domain.Venue(venue)
	pos.Status = domain.HedgePositionStatus(status)
	return pos, nil
}

var _ domain.HedgePositionStore = (*HedgePositionStore)(nil)
