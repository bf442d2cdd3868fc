package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// PositionRepository persists portfolio positions. The entry snapshot
// columns are written once at insert and never touched again; only mark,
// P&L and close state mutate.
type PositionRepository struct {
	pool *pgxpool.Pool
}

func NewPositionRepository(pool *pgxpool.Pool) *PositionRepository {
	return &PositionRepository{pool: pool}
}

const positionColumns = `
	id, instrument_id, direction, notional, notional_fcy,
	entry_price, entry_date, entry_fx_rate,
	entry_dv01, entry_delta, entry_convexity, entry_var_contribution,
	current_mark, unrealized_pnl, realized_pnl,
	is_open, closed_at, close_price, created_at
`

// insertPosition writes a new open position. Runs inside the execution
// transaction so a failed execution leaves no position behind.
func insertPosition(ctx context.Context, q querier, pos *contracts.PortfolioPosition) error {
	query := `
		INSERT INTO desk.positions (
			id, instrument_id, direction, notional, notional_fcy,
			entry_price, entry_date, entry_fx_rate,
			entry_dv01, entry_delta, entry_convexity, entry_var_contribution,
			current_mark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		pos.ID, pos.InstrumentID, pos.Direction, pos.Notional, pos.NotionalFCY,
		pos.EntryPrice, pos.EntryDate, pos.EntryFXRate,
		pos.EntryRisk.DV01, pos.EntryRisk.Delta, pos.EntryRisk.Convexity, pos.EntryRisk.VaRContribution,
		pos.CurrentMark,
	).Scan(&pos.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	pos.IsOpen = true
	return nil
}

// GetByID returns a position or ErrNotFound.
func (r *PositionRepository) GetByID(ctx context.Context, id uuid.UUID) (*contracts.PortfolioPosition, error) {
	return getPosition(ctx, r.pool, id, false)
}

// ListOpen returns all open positions, oldest entry first.
func (r *PositionRepository) ListOpen(ctx context.Context) ([]contracts.PortfolioPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM desk.positions WHERE is_open ORDER BY entry_date, created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open positions: %w", err)
	}
	defer rows.Close()

	var out []contracts.PortfolioPosition
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *pos)
	}
	return out, rows.Err()
}

// UpdateMark sets the current mark and unrealized P&L for an open position.
func (r *PositionRepository) UpdateMark(ctx context.Context, id uuid.UUID, mark, unrealized decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE desk.positions
		SET current_mark = $2, unrealized_pnl = $3
		WHERE id = $1 AND is_open
	`, id, mark, unrealized)
	if err != nil {
		return fmt.Errorf("failed to update mark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open position %s: %w", id, contracts.ErrNotFound)
	}
	return nil
}

func getPosition(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*contracts.PortfolioPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM desk.positions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	pos, err := scanPosition(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", id, contracts.ErrNotFound)
	}
	return pos, err
}

func scanPosition(row pgx.Row) (*contracts.PortfolioPosition, error) {
	var pos contracts.PortfolioPosition
	err := row.Scan(
		&pos.ID, &pos.InstrumentID, &pos.Direction, &pos.Notional, &pos.NotionalFCY,
		&pos.EntryPrice, &pos.EntryDate, &pos.EntryFXRate,
		&pos.EntryRisk.DV01, &pos.EntryRisk.Delta, &pos.EntryRisk.Convexity, &pos.EntryRisk.VaRContribution,
		&pos.CurrentMark, &pos.UnrealizedPnl, &pos.RealizedPnl,
		&pos.IsOpen, &pos.ClosedAt, &pos.ClosePrice, &pos.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}
	return &pos, nil
}
