package contracts

import "time"

// Frequency is the sampling frequency of a series.
type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqAnnual    Frequency = "annual"
)

// SeriesMetadata describes an observable series.
// Immutable after creation except administrative corrections (Name,
// Description). Referenced by every observation domain via SeriesID.
type SeriesMetadata struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Frequency   Frequency `json:"frequency"`
	Country     string    `json:"country"`
	Unit        string    `json:"unit"`

	// IsRevisable controls whether later revisions of an observation date
	// may be appended. Market prints are typically final; macro releases
	// are revised for months.
	IsRevisable bool `json:"is_revisable"`

	// ReleaseLagDays is the business-day lag between an observation date
	// and its scheduled publication, on the calendar of Country.
	ReleaseLagDays  int    `json:"release_lag_days"`
	ReleaseTimezone string `json:"release_timezone"`

	CreatedAt time.Time `json:"created_at"`
}

// Key returns the natural key of the series.
func (s *SeriesMetadata) Key() string {
	return s.Source + "/" + s.Code
}
