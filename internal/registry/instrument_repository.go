package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// InstrumentRepository handles instrument reference data.
type InstrumentRepository struct {
	pool *pgxpool.Pool
}

// NewInstrumentRepository creates a new instrument repository.
func NewInstrumentRepository(pool *pgxpool.Pool) *InstrumentRepository {
	return &InstrumentRepository{pool: pool}
}

const instrumentColumns = `id, ticker, asset_class, country, currency, maturity_date,
	multiplier, tick_size, initial_margin, settlement_type, is_active, created_at`

// Create inserts a new instrument. Duplicate tickers fail with
// ErrDuplicateNaturalKey.
func (r *InstrumentRepository) Create(ctx context.Context, inst *contracts.Instrument) error {
	query := `
		INSERT INTO refdata.instruments (
			ticker, asset_class, country, currency, maturity_date,
			multiplier, tick_size, initial_margin, settlement_type, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	var multiplier, tickSize, margin *decimal.Decimal
	var settlement *string
	if inst.Specs != nil {
		multiplier = &inst.Specs.Multiplier
		tickSize = &inst.Specs.TickSize
		margin = &inst.Specs.InitialMargin
		settlement = &inst.Specs.SettlementType
	}

	err := r.pool.QueryRow(ctx, query,
		inst.Ticker, inst.AssetClass, inst.Country, inst.Currency, inst.MaturityDate,
		multiplier, tickSize, margin, settlement, inst.IsActive,
	).Scan(&inst.ID, &inst.CreatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("instrument %s: %w", inst.Ticker, contracts.ErrDuplicateNaturalKey)
	}
	if err != nil {
		return fmt.Errorf("failed to create instrument: %w", err)
	}
	return nil
}

// GetByID retrieves an instrument by surrogate id.
func (r *InstrumentRepository) GetByID(ctx context.Context, id int64) (*contracts.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM refdata.instruments WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetByTicker retrieves an instrument by its natural key.
func (r *InstrumentRepository) GetByTicker(ctx context.Context, ticker string) (*contracts.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM refdata.instruments WHERE ticker = $1`
	return r.scanOne(r.pool.QueryRow(ctx, query, ticker))
}

// SetActive flips the activation flag.
func (r *InstrumentRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE refdata.instruments SET is_active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update instrument: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("instrument %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}

// UpdateSpecs replaces the contract specifications.
func (r *InstrumentRepository) UpdateSpecs(ctx context.Context, id int64, specs contracts.ContractSpecs) error {
	query := `
		UPDATE refdata.instruments
		SET multiplier = $1, tick_size = $2, initial_margin = $3, settlement_type = $4
		WHERE id = $5
	`

	tag, err := r.pool.Exec(ctx, query,
		specs.Multiplier, specs.TickSize, specs.InitialMargin, specs.SettlementType, id)
	if err != nil {
		return fmt.Errorf("failed to update instrument specs: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("instrument %d: %w", id, contracts.ErrNotFound)
	}
	return nil
}

func (r *InstrumentRepository) scanOne(row pgx.Row) (*contracts.Instrument, error) {
	var inst contracts.Instrument
	var multiplier, tickSize, margin *decimal.Decimal
	var settlement *string

	err := row.Scan(
		&inst.ID, &inst.Ticker, &inst.AssetClass, &inst.Country, &inst.Currency,
		&inst.MaturityDate, &multiplier, &tickSize, &margin, &settlement,
		&inst.IsActive, &inst.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}

	if multiplier != nil {
		inst.Specs = &contracts.ContractSpecs{
			Multiplier:    *multiplier,
			TickSize:      *tickSize,
			InitialMargin: *margin,
		}
		if settlement != nil {
			inst.Specs.SettlementType = *settlement
		}
	}
	return &inst, nil
}
