package calendar

import "time"

// NewUS returns the foreign calendar: US federal holidays with the usual
// observance shifts (Saturday -> Friday, Sunday -> Monday).
func NewUS() *Calendar {
	return newCalendar("US", usHolidays)
}

func usHolidays(year int) []time.Time {
	observed := func(month time.Month, day int) time.Time {
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		switch d.Weekday() {
		case time.Saturday:
			return d.AddDate(0, 0, -1)
		case time.Sunday:
			return d.AddDate(0, 0, 1)
		}
		return d
	}

	holidays := []time.Time{
		observed(time.January, 1),                    // New Year's Day
		nthWeekday(year, time.January, time.Monday, 3),   // MLK Day
		nthWeekday(year, time.February, time.Monday, 3),  // Washington's Birthday
		lastWeekday(year, time.May, time.Monday),         // Memorial Day
		observed(time.July, 4),                       // Independence Day
		nthWeekday(year, time.September, time.Monday, 1), // Labor Day
		nthWeekday(year, time.October, time.Monday, 2),   // Columbus Day
		observed(time.November, 11),                  // Veterans Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(time.December, 25),                  // Christmas Day
	}

	// Federal holiday since 2021
	if year >= 2021 {
		holidays = append(holidays, observed(time.June, 19)) // Juneteenth
	}

	return holidays
}

// nthWeekday returns the nth given weekday of a month (1-based).
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}
