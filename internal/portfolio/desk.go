// Package portfolio is the decision-audit side of the desk: trade
// proposals, positions, the immutable decision journal, daily P&L
// history and end-of-day briefings.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// Desk coordinates the multi-table workflows: proposal execution, position
// close-out and the daily snapshot pipeline. Single-row operations go
// through the repositories directly.
type Desk struct {
	pool      *pgxpool.Pool
	Proposals *ProposalRepository
	Positions *PositionRepository
	Journal   *JournalRepository
	Pnl       *PnlRepository
	log       *logger.Logger
}

func NewDesk(pool *pgxpool.Pool, log *logger.Logger) *Desk {
	return &Desk{
		pool:      pool,
		Proposals: NewProposalRepository(pool),
		Positions: NewPositionRepository(pool),
		Journal:   NewJournalRepository(pool),
		Pnl:       NewPnlRepository(pool),
		log:       log,
	}
}

// ExecutionFill carries the fill details for executing an approved proposal.
type ExecutionFill struct {
	Price       decimal.Decimal `json:"price"`
	Notional    decimal.Decimal `json:"notional"`
	NotionalFCY decimal.Decimal `json:"notional_fcy"`
	FXRate      decimal.Decimal `json:"fx_rate"`
	EntryDate   time.Time       `json:"entry_date"`
	Author      string          `json:"author"`
}

// Execute moves an approved proposal to "executed", opens the position and
// writes the execution journal entry, all in one transaction. A failure at
// any step leaves no partial rows behind. Executing from any status other
// than "approved" is ErrInvalidTransition.
func (d *Desk) Execute(ctx context.Context, proposalID uuid.UUID, fill ExecutionFill) (*contracts.PortfolioPosition, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := getProposal(ctx, tx, proposalID, true)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanTransition(contracts.StatusExecuted) {
		return nil, fmt.Errorf("%s -> executed: %w", p.Status, contracts.ErrInvalidTransition)
	}

	pos := &contracts.PortfolioPosition{
		ID:           uuid.New(),
		InstrumentID: p.InstrumentID,
		Direction:    p.Direction,
		Notional:     fill.Notional,
		NotionalFCY:  fill.NotionalFCY,
		EntryPrice:   fill.Price,
		EntryDate:    entryDate(fill.EntryDate),
		EntryFXRate:  fill.FXRate,
		EntryRisk:    p.RiskImpact,
		CurrentMark:  fill.Price,
	}
	if err := insertPosition(ctx, tx, pos); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE desk.trade_proposals
		SET status = $2, position_id = $3, execution_price = $4,
		    execution_notional = $5, executed_at = $6
		WHERE id = $1
	`, p.ID, contracts.StatusExecuted, pos.ID, fill.Price, fill.Notional, now)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp execution: %w", err)
	}

	entry := &contracts.DecisionJournalEntry{
		PositionID: &pos.ID,
		ProposalID: &p.ID,
		Author:     fill.Author,
		Body: fmt.Sprintf("Executed %s %s notional %s at %s. Rationale: %s",
			p.Direction, p.SuggestedSize, fill.Notional, fill.Price, p.Rationale),
	}
	if err := appendJournalEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit execution: %w", err)
	}

	d.log.WithFields(map[string]interface{}{
		"proposal": p.ID.String(),
		"position": pos.ID.String(),
		"price":    fill.Price.String(),
	}).Info("Proposal executed")

	return pos, nil
}

// CloseRequest closes an open position at a price.
type CloseRequest struct {
	Price  decimal.Decimal `json:"price"`
	Author string          `json:"author"`
	Reason string          `json:"reason"`
}

// Close realizes the position's P&L at the close price, marks it closed and
// journals the close-out, all in one transaction. Closing a closed position
// is ErrInvalidTransition.
func (d *Desk) Close(ctx context.Context, positionID uuid.UUID, req CloseRequest) (*contracts.PortfolioPosition, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	pos, err := getPosition(ctx, tx, positionID, true)
	if err != nil {
		return nil, err
	}
	if !pos.IsOpen {
		return nil, fmt.Errorf("position %s already closed: %w", positionID, contracts.ErrInvalidTransition)
	}

	realized := markToMarket(pos, req.Price)
	now := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE desk.positions
		SET is_open = FALSE, closed_at = $2, close_price = $3,
		    current_mark = $3, realized_pnl = realized_pnl + $4, unrealized_pnl = 0
		WHERE id = $1
	`, positionID, now, req.Price, realized)
	if err != nil {
		return nil, fmt.Errorf("failed to close position: %w", err)
	}

	entry := &contracts.DecisionJournalEntry{
		PositionID: &pos.ID,
		Author:     req.Author,
		Body: fmt.Sprintf("Closed %s %s at %s, realized %s. %s",
			pos.Direction, pos.Notional, req.Price, realized, req.Reason),
	}
	if err := appendJournalEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit close: %w", err)
	}

	pos.IsOpen = false
	pos.ClosedAt = &now
	pos.ClosePrice = &req.Price
	pos.CurrentMark = req.Price
	pos.RealizedPnl = pos.RealizedPnl.Add(realized)
	pos.UnrealizedPnl = decimal.Zero

	d.log.WithFields(map[string]interface{}{
		"position": pos.ID.String(),
		"price":    req.Price.String(),
		"realized": realized.String(),
	}).Info("Position closed")

	return pos, nil
}

// Mark revalues an open position at a price, persisting the new mark and
// unrealized P&L.
func (d *Desk) Mark(ctx context.Context, positionID uuid.UUID, price decimal.Decimal) (decimal.Decimal, error) {
	pos, err := d.Positions.GetByID(ctx, positionID)
	if err != nil {
		return decimal.Zero, err
	}
	if !pos.IsOpen {
		return decimal.Zero, fmt.Errorf("position %s closed: %w", positionID, contracts.ErrInvalidTransition)
	}

	unrealized := markToMarket(pos, price)
	if err := d.Positions.UpdateMark(ctx, positionID, price, unrealized); err != nil {
		return decimal.Zero, err
	}
	return unrealized, nil
}

// SnapshotDaily writes one pnl_history row per open position for date.
// Idempotent: a re-run for the same date overwrites. Returns the number of
// positions snapshotted.
func (d *Desk) SnapshotDaily(ctx context.Context, date time.Time) (int, error) {
	date = entryDate(date)

	open, err := d.Positions.ListOpen(ctx)
	if err != nil {
		return 0, err
	}

	for i := range open {
		pos := &open[i]
		cum := pos.UnrealizedPnl.Add(pos.RealizedPnl)

		// Daily P&L is measured against the last snapshot before this
		// date, so a re-run recomputes both daily and cumulative from the
		// live position and stays self-consistent even if the mark moved
		// between runs.
		daily := cum
		if prev, err := d.Pnl.LatestBefore(ctx, pos.ID, date); err == nil {
			daily = cum.Sub(prev.CumPnl)
		} else if !errors.Is(err, contracts.ErrNotFound) {
			return 0, err
		}

		snap := &contracts.PnlSnapshot{
			PositionID:   pos.ID,
			SnapshotDate: date,
			MarkPrice:    pos.CurrentMark,
			DailyPnl:     daily,
			DailyPnlFCY:  daily.Mul(pos.EntryFXRate),
			CumPnl:       cum,
			CumPnlFCY:    cum.Mul(pos.EntryFXRate),
			Risk:         pos.EntryRisk,
		}
		if err := d.Pnl.Upsert(ctx, snap); err != nil {
			return 0, err
		}
	}

	d.log.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"positions": len(open),
	}).Info("Daily P&L snapshot written")

	return len(open), nil
}

// BuildBriefing assembles and stores the end-of-day summary for date.
func (d *Desk) BuildBriefing(ctx context.Context, date time.Time, notes string) (*contracts.DailyBriefing, error) {
	date = entryDate(date)

	open, err := d.Positions.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	totalFCY := decimal.Zero
	for i := range open {
		cum := open[i].UnrealizedPnl.Add(open[i].RealizedPnl)
		total = total.Add(cum)
		totalFCY = totalFCY.Add(cum.Mul(open[i].EntryFXRate))
	}

	var entries int
	err = d.pool.QueryRow(ctx, `
		SELECT count(*) FROM desk.journal_entries
		WHERE created_at >= $1 AND created_at < $1 + INTERVAL '1 day'
	`, date).Scan(&entries)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}

	b := &contracts.DailyBriefing{
		BriefingDate:   date,
		OpenPositions:  len(open),
		TotalPnl:       total,
		TotalPnlFCY:    totalFCY,
		JournalEntries: entries,
		Notes:          notes,
	}
	if err := d.Pnl.SaveBriefing(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// markToMarket returns the P&L of revaluing pos at price: quantity is
// notional over entry price, and shorts gain when price falls.
func markToMarket(pos *contracts.PortfolioPosition, price decimal.Decimal) decimal.Decimal {
	if pos.EntryPrice.IsZero() {
		return decimal.Zero
	}
	qty := pos.Notional.Div(pos.EntryPrice)
	pnl := price.Sub(pos.EntryPrice).Mul(qty)
	if pos.Direction == contracts.DirectionShort {
		pnl = pnl.Neg()
	}
	return pnl
}

func entryDate(d time.Time) time.Time {
	if d.IsZero() {
		d = time.Now()
	}
	y, m, day := d.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
