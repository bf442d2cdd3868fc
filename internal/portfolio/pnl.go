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

// PnlRepository persists the daily P&L history and end-of-day briefings.
type PnlRepository struct {
	pool *pgxpool.Pool
}

func NewPnlRepository(pool *pgxpool.Pool) *PnlRepository {
	return &PnlRepository{pool: pool}
}

const pnlColumns = `
	position_id, snapshot_date, mark_price, daily_pnl, daily_pnl_fcy,
	cum_pnl, cum_pnl_fcy, dv01, delta, convexity, var_contribution,
	is_manual_override
`

// Upsert writes one snapshot row. Re-running the pipeline for the same
// (date, position) overwrites the earlier row, so retries are harmless.
func (r *PnlRepository) Upsert(ctx context.Context, s *contracts.PnlSnapshot) error {
	query := `
		INSERT INTO desk.pnl_history (
			position_id, snapshot_date, mark_price, daily_pnl, daily_pnl_fcy,
			cum_pnl, cum_pnl_fcy, dv01, delta, convexity, var_contribution,
			is_manual_override
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (snapshot_date, position_id) DO UPDATE SET
			mark_price = EXCLUDED.mark_price,
			daily_pnl = EXCLUDED.daily_pnl,
			daily_pnl_fcy = EXCLUDED.daily_pnl_fcy,
			cum_pnl = EXCLUDED.cum_pnl,
			cum_pnl_fcy = EXCLUDED.cum_pnl_fcy,
			dv01 = EXCLUDED.dv01,
			delta = EXCLUDED.delta,
			convexity = EXCLUDED.convexity,
			var_contribution = EXCLUDED.var_contribution,
			is_manual_override = EXCLUDED.is_manual_override
	`

	_, err := r.pool.Exec(ctx, query,
		s.PositionID, s.SnapshotDate, s.MarkPrice, s.DailyPnl, s.DailyPnlFCY,
		s.CumPnl, s.CumPnlFCY,
		s.Risk.DV01, s.Risk.Delta, s.Risk.Convexity, s.Risk.VaRContribution,
		s.IsManualOverride,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pnl snapshot: %w", err)
	}
	return nil
}

// History returns a position's snapshots in date order.
func (r *PnlRepository) History(ctx context.Context, positionID uuid.UUID) ([]contracts.PnlSnapshot, error) {
	query := `SELECT ` + pnlColumns + ` FROM desk.pnl_history WHERE position_id = $1 ORDER BY snapshot_date`

	rows, err := r.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read pnl history: %w", err)
	}
	defer rows.Close()

	var out []contracts.PnlSnapshot
	for rows.Next() {
		var s contracts.PnlSnapshot
		if err := rows.Scan(
			&s.PositionID, &s.SnapshotDate, &s.MarkPrice, &s.DailyPnl, &s.DailyPnlFCY,
			&s.CumPnl, &s.CumPnlFCY,
			&s.Risk.DV01, &s.Risk.Delta, &s.Risk.Convexity, &s.Risk.VaRContribution,
			&s.IsManualOverride,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pnl snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Latest returns a position's most recent snapshot, or ErrNotFound.
func (r *PnlRepository) Latest(ctx context.Context, positionID uuid.UUID) (*contracts.PnlSnapshot, error) {
	query := `SELECT ` + pnlColumns + ` FROM desk.pnl_history WHERE position_id = $1 ORDER BY snapshot_date DESC LIMIT 1`

	var s contracts.PnlSnapshot
	err := r.pool.QueryRow(ctx, query, positionID).Scan(
		&s.PositionID, &s.SnapshotDate, &s.MarkPrice, &s.DailyPnl, &s.DailyPnlFCY,
		&s.CumPnl, &s.CumPnlFCY,
		&s.Risk.DV01, &s.Risk.Delta, &s.Risk.Convexity, &s.Risk.VaRContribution,
		&s.IsManualOverride,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pnl history for %s: %w", positionID, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest pnl snapshot: %w", err)
	}
	return &s, nil
}

// LatestBefore returns a position's most recent snapshot strictly before
// date, or ErrNotFound. The snapshot pipeline uses it as the daily P&L
// baseline so that re-running a date recomputes against the prior day, not
// against the date's own earlier run.
func (r *PnlRepository) LatestBefore(ctx context.Context, positionID uuid.UUID, date time.Time) (*contracts.PnlSnapshot, error) {
	query := `SELECT ` + pnlColumns + ` FROM desk.pnl_history
		WHERE position_id = $1 AND snapshot_date < $2
		ORDER BY snapshot_date DESC LIMIT 1`

	var s contracts.PnlSnapshot
	err := r.pool.QueryRow(ctx, query, positionID, date).Scan(
		&s.PositionID, &s.SnapshotDate, &s.MarkPrice, &s.DailyPnl, &s.DailyPnlFCY,
		&s.CumPnl, &s.CumPnlFCY,
		&s.Risk.DV01, &s.Risk.Delta, &s.Risk.Convexity, &s.Risk.VaRContribution,
		&s.IsManualOverride,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pnl history for %s before %s: %w",
			positionID, date.Format("2006-01-02"), contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prior pnl snapshot: %w", err)
	}
	return &s, nil
}

// SaveBriefing writes the end-of-day summary; one row per calendar date.
func (r *PnlRepository) SaveBriefing(ctx context.Context, b *contracts.DailyBriefing) error {
	query := `
		INSERT INTO desk.daily_briefings (
			briefing_date, open_positions, total_pnl, total_pnl_fcy, journal_entries, notes
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (briefing_date) DO UPDATE SET
			open_positions = EXCLUDED.open_positions,
			total_pnl = EXCLUDED.total_pnl,
			total_pnl_fcy = EXCLUDED.total_pnl_fcy,
			journal_entries = EXCLUDED.journal_entries,
			notes = EXCLUDED.notes
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		b.BriefingDate, b.OpenPositions, b.TotalPnl, b.TotalPnlFCY, b.JournalEntries, b.Notes,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save daily briefing: %w", err)
	}
	return nil
}

// GetBriefing returns the briefing for a date, or ErrNotFound.
func (r *PnlRepository) GetBriefing(ctx context.Context, date time.Time) (*contracts.DailyBriefing, error) {
	query := `
		SELECT briefing_date, open_positions, total_pnl, total_pnl_fcy, journal_entries, notes, created_at
		FROM desk.daily_briefings
		WHERE briefing_date = $1
	`

	var b contracts.DailyBriefing
	err := r.pool.QueryRow(ctx, query, date).Scan(
		&b.BriefingDate, &b.OpenPositions, &b.TotalPnl, &b.TotalPnlFCY,
		&b.JournalEntries, &b.Notes, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("briefing %s: %w", date.Format("2006-01-02"), contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read daily briefing: %w", err)
	}
	return &b, nil
}
