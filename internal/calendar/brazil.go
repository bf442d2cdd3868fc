package calendar

import "time"

// NewBrazil returns the domestic calendar: Brazilian national holidays.
// Movable feasts (Carnival, Good Friday, Corpus Christi) derive from Easter.
func NewBrazil() *Calendar {
	return newCalendar("BR", brazilHolidays)
}

func brazilHolidays(year int) []time.Time {
	easter := easterSunday(year)

	fixed := func(month time.Month, day int) time.Time {
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}

	holidays := []time.Time{
		fixed(time.January, 1),       // Confraternização Universal
		easter.AddDate(0, 0, -48),    // Carnival Monday
		easter.AddDate(0, 0, -47),    // Carnival Tuesday
		easter.AddDate(0, 0, -2),     // Good Friday
		fixed(time.April, 21),        // Tiradentes
		fixed(time.May, 1),           // Dia do Trabalho
		easter.AddDate(0, 0, 60),     // Corpus Christi
		fixed(time.September, 7),     // Independência
		fixed(time.October, 12),      // Nossa Senhora Aparecida
		fixed(time.November, 2),      // Finados
		fixed(time.November, 15),     // Proclamação da República
		fixed(time.December, 25),     // Natal
	}

	// National holiday since law 14.759/2023
	if year >= 2024 {
		holidays = append(holidays, fixed(time.November, 20)) // Consciência Negra
	}

	return holidays
}
