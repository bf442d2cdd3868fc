package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// ProposalRepository persists trade proposals.
type ProposalRepository struct {
	pool *pgxpool.Pool
}

func NewProposalRepository(pool *pgxpool.Pool) *ProposalRepository {
	return &ProposalRepository{pool: pool}
}

const proposalColumns = `
	id, instrument_id, direction, suggested_size, conviction, rationale,
	risk_dv01, risk_delta, risk_convexity, risk_var_contribution,
	status, position_id, execution_price, execution_notional,
	created_at, reviewed_at, executed_at
`

// Create inserts a new proposal in status "proposed".
func (r *ProposalRepository) Create(ctx context.Context, p *contracts.TradeProposal) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = contracts.StatusProposed

	query := `
		INSERT INTO desk.trade_proposals (
			id, instrument_id, direction, suggested_size, conviction, rationale,
			risk_dv01, risk_delta, risk_convexity, risk_var_contribution, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.InstrumentID, p.Direction, p.SuggestedSize, p.Conviction, p.Rationale,
		p.RiskImpact.DV01, p.RiskImpact.Delta, p.RiskImpact.Convexity, p.RiskImpact.VaRContribution,
		p.Status,
	).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("proposal %s: %w", p.ID, contracts.ErrDuplicateNaturalKey)
	}
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}
	return nil
}

// GetByID returns a proposal or ErrNotFound.
func (r *ProposalRepository) GetByID(ctx context.Context, id uuid.UUID) (*contracts.TradeProposal, error) {
	return getProposal(ctx, r.pool, id, false)
}

// List returns proposals, optionally filtered by status, newest first.
func (r *ProposalRepository) List(ctx context.Context, status contracts.ProposalStatus, limit int) ([]contracts.TradeProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM desk.trade_proposals`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var out []contracts.TradeProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Review moves a proposal from "proposed" to "approved" or "rejected",
// stamping reviewed_at. Any other transition is ErrInvalidTransition.
func (r *ProposalRepository) Review(ctx context.Context, id uuid.UUID, next contracts.ProposalStatus) (*contracts.TradeProposal, error) {
	if next != contracts.StatusApproved && next != contracts.StatusRejected {
		return nil, fmt.Errorf("review to %q: %w", next, contracts.ErrInvalidTransition)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := getProposal(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanTransition(next) {
		return nil, fmt.Errorf("%s -> %s: %w", p.Status, next, contracts.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE desk.trade_proposals SET status = $2, reviewed_at = $3 WHERE id = $1`,
		id, next, now)
	if err != nil {
		return nil, fmt.Errorf("failed to review proposal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit review: %w", err)
	}

	p.Status = next
	p.ReviewedAt = &now
	return p, nil
}

// getProposal loads one row, optionally FOR UPDATE inside a transaction.
func getProposal(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*contracts.TradeProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM desk.trade_proposals WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	p, err := scanProposal(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("proposal %s: %w", id, contracts.ErrNotFound)
	}
	return p, err
}

func scanProposal(row pgx.Row) (*contracts.TradeProposal, error) {
	var p contracts.TradeProposal
	err := row.Scan(
		&p.ID, &p.InstrumentID, &p.Direction, &p.SuggestedSize, &p.Conviction, &p.Rationale,
		&p.RiskImpact.DV01, &p.RiskImpact.Delta, &p.RiskImpact.Convexity, &p.RiskImpact.VaRContribution,
		&p.Status, &p.PositionID, &p.ExecutionPrice, &p.ExecutionNotional,
		&p.CreatedAt, &p.ReviewedAt, &p.ExecutedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan proposal: %w", err)
	}
	return &p, nil
}
