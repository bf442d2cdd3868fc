// Package partition assigns each observation domain a chunk width and a
// compression delay, and moves cold chunks into compressed per-series
// segments. Chunk width follows the domain's write pattern: dense daily
// domains get weekly chunks, sparse annual domains get yearly chunks.
package partition

import (
	"fmt"
	"time"

	"github.com/rcampos/macrodesk/internal/contracts"
)

// ChunkWidth is the time span covered by one physical chunk.
type ChunkWidth string

const (
	WidthWeek  ChunkWidth = "week"
	WidthMonth ChunkWidth = "month"
	WidthYear  ChunkWidth = "year"
)

// Start returns the chunk start date containing d (UTC midnight).
func (w ChunkWidth) Start(d time.Time) time.Time {
	y, m, day := d.UTC().Date()
	d = time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	switch w {
	case WidthWeek:
		// Weeks start Monday.
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	case WidthMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	}
}

// End returns the first date after the chunk starting at start.
func (w ChunkWidth) End(start time.Time) time.Time {
	switch w {
	case WidthWeek:
		return start.AddDate(0, 0, 7)
	case WidthMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(1, 0, 0)
	}
}

// Policy is the partitioning and compression policy of one domain.
type Policy struct {
	Domain contracts.Domain
	Width  ChunkWidth

	// CompressionDelay is the minimum chunk age (past chunk end) before the
	// chunk is compressed. It must exceed the domain's expected out-of-order
	// revision window so that late revisions normally land in live chunks.
	CompressionDelay time.Duration
}

// Compressible reports whether a chunk starting at chunkStart is old enough
// to compress at time now.
func (p Policy) Compressible(chunkStart, now time.Time) bool {
	return now.Sub(p.Width.End(chunkStart)) >= p.CompressionDelay
}

const day = 24 * time.Hour

// policies maps each domain to its policy. Dense intraday-ish domains get
// narrow chunks and short delays; heavily revised macro/fiscal releases get
// wide chunks and long delays.
var policies = map[contracts.Domain]Policy{
	contracts.DomainMarketPrice:    {contracts.DomainMarketPrice, WidthWeek, 7 * day},
	contracts.DomainVolPoint:       {contracts.DomainVolPoint, WidthWeek, 14 * day},
	contracts.DomainCurvePoint:     {contracts.DomainCurvePoint, WidthMonth, 14 * day},
	contracts.DomainFlow:           {contracts.DomainFlow, WidthMonth, 45 * day},
	contracts.DomainSignal:         {contracts.DomainSignal, WidthMonth, 7 * day},
	contracts.DomainMacroIndicator: {contracts.DomainMacroIndicator, WidthYear, 120 * day},
	contracts.DomainFiscalMetric:   {contracts.DomainFiscalMetric, WidthYear, 180 * day},
}

// PolicyFor returns the policy of a domain.
func PolicyFor(domain contracts.Domain) (Policy, error) {
	p, ok := policies[domain]
	if !ok {
		return Policy{}, fmt.Errorf("no partition policy for domain %q", domain)
	}
	return p, nil
}

// Table returns the live table of a domain. Domain names are a closed set
// validated before use; they are safe to interpolate into SQL.
func Table(domain contracts.Domain) string {
	return "obs." + string(domain)
}
