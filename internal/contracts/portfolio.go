package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction of a position or proposal.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// ProposalStatus is the trade-proposal state machine.
// proposed -> approved -> executed, or proposed -> rejected (terminal).
type ProposalStatus string

const (
	StatusProposed ProposalStatus = "proposed"
	StatusApproved ProposalStatus = "approved"
	StatusRejected ProposalStatus = "rejected"
	StatusExecuted ProposalStatus = "executed"
)

// CanTransition reports whether the move from s to next is legal.
func (s ProposalStatus) CanTransition(next ProposalStatus) bool {
	switch s {
	case StatusProposed:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusExecuted
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s ProposalStatus) Terminal() bool {
	return s == StatusRejected || s == StatusExecuted
}

// RiskSnapshot carries risk-engine metrics. The store persists these as
// opaque numerics; the math lives in the risk engine.
type RiskSnapshot struct {
	DV01            decimal.Decimal `json:"dv01"`
	Delta           decimal.Decimal `json:"delta"`
	Convexity       decimal.Decimal `json:"convexity"`
	VaRContribution decimal.Decimal `json:"var_contribution"`
}

// TradeProposal is a suggested trade awaiting review and execution.
type TradeProposal struct {
	ID            uuid.UUID       `json:"id"`
	InstrumentID  int64           `json:"instrument_id"`
	Direction     Direction       `json:"direction"`
	SuggestedSize decimal.Decimal `json:"suggested_size"`
	Conviction    float64         `json:"conviction"`
	Rationale     string          `json:"rationale"`
	RiskImpact    RiskSnapshot    `json:"risk_impact"`
	Status        ProposalStatus  `json:"status"`

	// Stamped on execution.
	PositionID        *uuid.UUID      `json:"position_id,omitempty"`
	ExecutionPrice    decimal.Decimal `json:"execution_price"`
	ExecutionNotional decimal.Decimal `json:"execution_notional"`

	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

// PortfolioPosition is a live or closed position. The entry snapshot
// (EntryPrice, EntryDate, EntryFXRate, EntryRisk) is write-once; only the
// mark, P&L and close fields mutate over the position's life.
type PortfolioPosition struct {
	ID           uuid.UUID `json:"id"`
	InstrumentID int64     `json:"instrument_id"`
	Direction    Direction `json:"direction"`

	// Notional in desk currency and in the instrument's currency.
	Notional    decimal.Decimal `json:"notional"`
	NotionalFCY decimal.Decimal `json:"notional_fcy"`

	EntryPrice  decimal.Decimal `json:"entry_price"`
	EntryDate   time.Time       `json:"entry_date"`
	EntryFXRate decimal.Decimal `json:"entry_fx_rate"`
	EntryRisk   RiskSnapshot    `json:"entry_risk"`

	CurrentMark   decimal.Decimal `json:"current_mark"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl"`

	IsOpen     bool             `json:"is_open"`
	ClosedAt   *time.Time       `json:"closed_at,omitempty"`
	ClosePrice *decimal.Decimal `json:"close_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// PnlSnapshot is one row of desk.pnl_history: the daily mark for a position.
// Natural key (SnapshotDate, PositionID); re-runs for the same date upsert.
type PnlSnapshot struct {
	PositionID   uuid.UUID       `json:"position_id"`
	SnapshotDate time.Time       `json:"snapshot_date"`
	MarkPrice    decimal.Decimal `json:"mark_price"`
	DailyPnl     decimal.Decimal `json:"daily_pnl"`
	DailyPnlFCY  decimal.Decimal `json:"daily_pnl_fcy"`
	CumPnl       decimal.Decimal `json:"cum_pnl"`
	CumPnlFCY    decimal.Decimal `json:"cum_pnl_fcy"`
	Risk         RiskSnapshot    `json:"risk"`

	// IsManualOverride marks snapshots written by hand rather than by the
	// daily pipeline.
	IsManualOverride bool `json:"is_manual_override"`
}

// DailyBriefing is the end-of-day desk summary, unique per briefing date.
type DailyBriefing struct {
	BriefingDate   time.Time       `json:"briefing_date"`
	OpenPositions  int             `json:"open_positions"`
	TotalPnl       decimal.Decimal `json:"total_pnl"`
	TotalPnlFCY    decimal.Decimal `json:"total_pnl_fcy"`
	JournalEntries int             `json:"journal_entries"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"created_at"`
}
