package contracts

import "time"

// Domain identifies an observation domain. Each domain has its own physical
// table and its own partitioning/compression policy.
type Domain string

const (
	DomainMarketPrice    Domain = "market_price"
	DomainMacroIndicator Domain = "macro_indicator"
	DomainCurvePoint     Domain = "curve_point"
	DomainFlow           Domain = "flow"
	DomainFiscalMetric   Domain = "fiscal_metric"
	DomainVolPoint       Domain = "vol_point"
	DomainSignal         Domain = "signal"
)

// Domains lists every observation domain in a stable order.
var Domains = []Domain{
	DomainMarketPrice,
	DomainMacroIndicator,
	DomainCurvePoint,
	DomainFlow,
	DomainFiscalMetric,
	DomainVolPoint,
	DomainSignal,
}

// Valid reports whether d names a known domain.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// Observation is one revision of a series value for one observation date.
// Rows are append-only: a correction inserts a new revision, never an
// overwrite. For a fixed (SeriesID, ObservationDate) the revision number is
// strictly increasing and ReleaseTime is non-decreasing.
type Observation struct {
	SeriesID        int64     `json:"series_id"`
	ObservationDate time.Time `json:"observation_date"`
	Value           float64   `json:"value"`
	ReleaseTime     time.Time `json:"release_time"`
	Revision        int       `json:"revision"`
	Source          string    `json:"source"`
}

// DateKey returns the observation date normalized to UTC midnight, the form
// stored in the date column and used for natural-key comparisons.
func (o *Observation) DateKey() time.Time {
	y, m, d := o.ObservationDate.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// KnownAt reports whether this revision was released at or before t.
func (o *Observation) KnownAt(t time.Time) bool {
	return !o.ReleaseTime.After(t)
}
