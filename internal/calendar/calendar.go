// Package calendar provides business-day predicates and arithmetic over
// fixed holiday calendars. Calendars are immutable after construction and
// safe for concurrent use.
package calendar

import "time"

// Calendar is a business-day calendar over a bounded year range. Dates
// outside the range clamp to the nearest bound rather than erroring.
type Calendar struct {
	name     string
	minYear  int
	maxYear  int
	holidays map[int64]struct{} // epoch-day keys
}

const (
	defaultMinYear = 1990
	defaultMaxYear = 2100
)

// newCalendar precomputes the holiday set for the full supported range.
func newCalendar(name string, holidaysForYear func(year int) []time.Time) *Calendar {
	c := &Calendar{
		name:     name,
		minYear:  defaultMinYear,
		maxYear:  defaultMaxYear,
		holidays: make(map[int64]struct{}),
	}
	for year := c.minYear; year <= c.maxYear; year++ {
		for _, h := range holidaysForYear(year) {
			c.holidays[epochDay(h)] = struct{}{}
		}
	}
	return c
}

// Name returns the calendar's identifier.
func (c *Calendar) Name() string { return c.name }

func (c *Calendar) lowerBound() time.Time {
	return time.Date(c.minYear, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (c *Calendar) upperBound() time.Time {
	return time.Date(c.maxYear, 12, 31, 0, 0, 0, 0, time.UTC)
}

// Clamp returns d limited to the calendar's supported range.
func (c *Calendar) Clamp(d time.Time) time.Time {
	d = midnightUTC(d)
	if d.Year() < c.minYear {
		return c.lowerBound()
	}
	if d.Year() > c.maxYear {
		return c.upperBound()
	}
	return d
}

// IsBusinessDay reports whether d is a weekday and not a holiday.
func (c *Calendar) IsBusinessDay(d time.Time) bool {
	d = c.Clamp(d)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[epochDay(d)]
	return !holiday
}

// NextBusinessDay returns d if it is a business day, otherwise the first
// business day after it. The walk stops at the calendar's upper bound even
// when the bound itself is not a business day.
func (c *Calendar) NextBusinessDay(d time.Time) time.Time {
	d = c.Clamp(d)
	for !c.IsBusinessDay(d) {
		if !d.Before(c.upperBound()) {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// PreviousBusinessDay returns d if it is a business day, otherwise the last
// business day before it. The walk stops at the calendar's lower bound even
// when the bound itself is not a business day.
func (c *Calendar) PreviousBusinessDay(d time.Time) time.Time {
	d = c.Clamp(d)
	for !c.IsBusinessDay(d) {
		if !d.After(c.lowerBound()) {
			return d
		}
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// AddBusinessDays moves n business days from d. n may be negative. n == 0
// returns d clamped, unchanged even on a non-business day. A walk that
// reaches a calendar bound stops there regardless of how many business
// days remain.
func (c *Calendar) AddBusinessDays(d time.Time, n int) time.Time {
	d = c.Clamp(d)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		if step < 0 && !d.After(c.lowerBound()) {
			return c.lowerBound()
		}
		if step > 0 && !d.Before(c.upperBound()) {
			return c.upperBound()
		}
		d = d.AddDate(0, 0, step)
		if c.IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// CountBusinessDays counts business days in (startExclusive, endInclusive].
// The count is negative when end precedes start.
func (c *Calendar) CountBusinessDays(startExclusive, endInclusive time.Time) int {
	start := c.Clamp(startExclusive)
	end := c.Clamp(endInclusive)
	if end.Before(start) {
		return -c.CountBusinessDays(end, start)
	}
	count := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return count
}

func midnightUTC(d time.Time) time.Time {
	y, m, day := d.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func epochDay(d time.Time) int64 {
	return midnightUTC(d).Unix() / 86400
}

// easterSunday returns Gregorian Easter for the given year
// (anonymous computus).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	cc := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := cc / 4
	k := cc % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
