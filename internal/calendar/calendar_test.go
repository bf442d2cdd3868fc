package calendar

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBrazil_MovableFeasts2025(t *testing.T) {
	br := NewBrazil()

	// Easter 2025 falls on April 20.
	cases := []struct {
		name string
		day  time.Time
	}{
		{"Carnival Monday", date(2025, time.March, 3)},
		{"Carnival Tuesday", date(2025, time.March, 4)},
		{"Good Friday", date(2025, time.April, 18)},
		{"Corpus Christi", date(2025, time.June, 19)},
	}
	for _, c := range cases {
		if br.IsBusinessDay(c.day) {
			t.Errorf("%s (%s) should be a holiday", c.name, c.day.Format("2006-01-02"))
		}
	}

	// Ash Wednesday is a business day nationally.
	if !br.IsBusinessDay(date(2025, time.March, 5)) {
		t.Error("Ash Wednesday should be a business day")
	}
}

func TestBrazil_ConscienciaNegraFrom2024(t *testing.T) {
	br := NewBrazil()

	// Nov 20, 2023 was a Monday and not yet a national holiday.
	if !br.IsBusinessDay(date(2023, time.November, 20)) {
		t.Error("Nov 20 2023 should be a business day")
	}
	// Nov 20, 2024 (Wednesday) is.
	if br.IsBusinessDay(date(2024, time.November, 20)) {
		t.Error("Nov 20 2024 should be a holiday")
	}
}

func TestUS_ObservanceShift(t *testing.T) {
	us := NewUS()

	// July 4 2026 is a Saturday; observed Friday July 3.
	if us.IsBusinessDay(date(2026, time.July, 3)) {
		t.Error("Jul 3 2026 should be the observed Independence Day")
	}
	// Thanksgiving 2025: fourth Thursday of November.
	if us.IsBusinessDay(date(2025, time.November, 27)) {
		t.Error("Thanksgiving 2025 should be a holiday")
	}
	if !us.IsBusinessDay(date(2025, time.November, 28)) {
		t.Error("day after Thanksgiving is a business day federally")
	}
}

func TestCalendars_AreIndependent(t *testing.T) {
	br := NewBrazil()
	us := NewUS()

	// Brazilian Independence Day 2026 (Monday) is a US business day.
	sep7 := date(2026, time.September, 7)
	if br.IsBusinessDay(sep7) {
		t.Error("Sep 7 should be a BR holiday")
	}
	if us.IsBusinessDay(sep7) {
		// Labor Day 2026 is also Sep 7; pick a year where they differ.
		t.Skip("Sep 7 2026 coincides with US Labor Day")
	}

	// Sep 7 2027 is a Tuesday: BR holiday, US business day.
	sep7 = date(2027, time.September, 7)
	if br.IsBusinessDay(sep7) {
		t.Error("Sep 7 2027 should be a BR holiday")
	}
	if !us.IsBusinessDay(sep7) {
		t.Error("Sep 7 2027 should be a US business day")
	}
}

func TestAddBusinessDays(t *testing.T) {
	br := NewBrazil()

	// Friday + 1 business day = Monday.
	got := br.AddBusinessDays(date(2025, time.January, 3), 1)
	if !got.Equal(date(2025, time.January, 6)) {
		t.Errorf("Friday + 1 = %v, want Monday Jan 6", got)
	}

	// Monday - 1 business day = Friday.
	got = br.AddBusinessDays(date(2025, time.January, 6), -1)
	if !got.Equal(date(2025, time.January, 3)) {
		t.Errorf("Monday - 1 = %v, want Friday Jan 3", got)
	}

	// Zero is the identity, even on a weekend.
	sat := date(2025, time.January, 4)
	if got := br.AddBusinessDays(sat, 0); !got.Equal(sat) {
		t.Errorf("AddBusinessDays(sat, 0) = %v, want %v", got, sat)
	}

	// Crossing Carnival 2025: Friday Feb 28 + 1 skips Mar 3-4.
	got = br.AddBusinessDays(date(2025, time.February, 28), 1)
	if !got.Equal(date(2025, time.March, 5)) {
		t.Errorf("Feb 28 + 1 = %v, want Mar 5", got)
	}
}

func TestNextPreviousBusinessDay_Identity(t *testing.T) {
	br := NewBrazil()
	wed := date(2025, time.January, 8)

	if got := br.NextBusinessDay(wed); !got.Equal(wed) {
		t.Errorf("NextBusinessDay on business day = %v, want identity", got)
	}
	if got := br.PreviousBusinessDay(wed); !got.Equal(wed) {
		t.Errorf("PreviousBusinessDay on business day = %v, want identity", got)
	}

	sun := date(2025, time.January, 5)
	if got := br.NextBusinessDay(sun); !got.Equal(date(2025, time.January, 6)) {
		t.Errorf("NextBusinessDay(sun) = %v, want Mon Jan 6", got)
	}
	if got := br.PreviousBusinessDay(sun); !got.Equal(date(2025, time.January, 3)) {
		t.Errorf("PreviousBusinessDay(sun) = %v, want Fri Jan 3", got)
	}
}

func TestCountBusinessDays(t *testing.T) {
	br := NewBrazil()

	// (Mon Jan 6, Fri Jan 10] = Tue..Fri = 4 days.
	got := br.CountBusinessDays(date(2025, time.January, 6), date(2025, time.January, 10))
	if got != 4 {
		t.Errorf("CountBusinessDays = %d, want 4", got)
	}

	// Reversed interval is negative.
	got = br.CountBusinessDays(date(2025, time.January, 10), date(2025, time.January, 6))
	if got != -4 {
		t.Errorf("reversed CountBusinessDays = %d, want -4", got)
	}

	// Empty interval.
	if got := br.CountBusinessDays(date(2025, time.January, 6), date(2025, time.January, 6)); got != 0 {
		t.Errorf("empty interval = %d, want 0", got)
	}
}

func TestClamp_OutOfRange(t *testing.T) {
	br := NewBrazil()

	ancient := date(1850, time.June, 1)
	if got := br.Clamp(ancient); got.Year() != defaultMinYear {
		t.Errorf("Clamp(1850) = %v, want year %d", got, defaultMinYear)
	}

	distant := date(2500, time.June, 1)
	if got := br.Clamp(distant); got.Year() != defaultMaxYear {
		t.Errorf("Clamp(2500) = %v, want year %d", got, defaultMaxYear)
	}

	// Predicates on out-of-range dates do not panic and use the clamped date.
	_ = br.IsBusinessDay(ancient)
	_ = br.AddBusinessDays(distant, 5)
}

func TestWalks_StopAtCalendarBounds(t *testing.T) {
	br := NewBrazil()
	lower := date(defaultMinYear, time.January, 1)
	upper := date(defaultMaxYear, time.December, 31)

	// Jan 1 of the first supported year is a holiday, so a backward walk
	// reaching the lower bound has no business day left to land on; it must
	// return the bound instead of walking forever.
	if got := br.PreviousBusinessDay(date(1989, time.June, 1)); !got.Equal(lower) {
		t.Errorf("PreviousBusinessDay below range = %v, want %v", got, lower)
	}
	if got := br.AddBusinessDays(date(1990, time.January, 3), -5); !got.Equal(lower) {
		t.Errorf("AddBusinessDays past lower bound = %v, want %v", got, lower)
	}
	us := NewUS()
	if got := us.AddBusinessDays(date(1990, time.January, 2), -3); !got.Equal(lower) {
		t.Errorf("US AddBusinessDays past lower bound = %v, want %v", got, lower)
	}

	// Forward walks saturate at the upper bound the same way.
	if got := br.AddBusinessDays(date(2100, time.December, 29), 10); !got.Equal(upper) {
		t.Errorf("AddBusinessDays past upper bound = %v, want %v", got, upper)
	}
	if got := br.NextBusinessDay(date(2500, time.June, 1)); got.After(upper) {
		t.Errorf("NextBusinessDay above range = %v, want at most %v", got, upper)
	}
}
