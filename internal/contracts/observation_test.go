package contracts

import (
	"testing"
	"time"
)

func TestObservation_KnownAt(t *testing.T) {
	released := time.Date(2025, 1, 2, 18, 0, 0, 0, time.UTC)
	obs := &Observation{
		SeriesID:        1,
		ObservationDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		Value:           11.75,
		ReleaseTime:     released,
	}

	if obs.KnownAt(released.Add(-time.Minute)) {
		t.Error("observation should not be known before release")
	}
	if !obs.KnownAt(released) {
		t.Error("observation should be known at exact release time")
	}
	if !obs.KnownAt(released.Add(time.Hour)) {
		t.Error("observation should be known after release")
	}
}

func TestObservation_DateKey(t *testing.T) {
	// Date carrying a time-of-day and offset normalizes to UTC midnight.
	sp, _ := time.LoadLocation("America/Sao_Paulo")
	obs := &Observation{ObservationDate: time.Date(2025, 3, 10, 21, 30, 0, 0, sp)}

	got := obs.DateKey()
	want := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateKey() = %v, want %v", got, want)
	}
}

func TestDomain_Valid(t *testing.T) {
	for _, d := range Domains {
		if !d.Valid() {
			t.Errorf("domain %s should be valid", d)
		}
	}
	if Domain("order_book").Valid() {
		t.Error("unknown domain should not be valid")
	}
}
