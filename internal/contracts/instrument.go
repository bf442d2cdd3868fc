package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetClass classifies a tradable instrument.
type AssetClass string

const (
	AssetRatesFuture AssetClass = "rates_future"
	AssetBond        AssetClass = "bond"
	AssetFXFuture    AssetClass = "fx_future"
	AssetEquityIndex AssetClass = "equity_index"
	AssetSwap        AssetClass = "swap"
)

// ContractSpecs holds exchange contract specifications.
type ContractSpecs struct {
	Multiplier     decimal.Decimal `json:"multiplier"`
	TickSize       decimal.Decimal `json:"tick_size"`
	InitialMargin  decimal.Decimal `json:"initial_margin"`
	SettlementType string          `json:"settlement_type"` // cash, physical
}

// Instrument describes a tradable contract. Mutated rarely: activation flag
// and spec updates only. Referenced by price, vol and signal observations.
type Instrument struct {
	ID           int64          `json:"id"`
	Ticker       string         `json:"ticker"`
	AssetClass   AssetClass     `json:"asset_class"`
	Country      string         `json:"country"`
	Currency     string         `json:"currency"`
	MaturityDate *time.Time     `json:"maturity_date,omitempty"`
	Specs        *ContractSpecs `json:"specs,omitempty"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Expired reports whether the instrument is past maturity at t.
func (i *Instrument) Expired(t time.Time) bool {
	return i.MaturityDate != nil && i.MaturityDate.Before(t)
}
