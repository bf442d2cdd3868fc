package partition

import (
	"testing"
	"time"

	"github.com/rcampos/macrodesk/internal/contracts"
)

func TestChunkWidth_Start(t *testing.T) {
	// Wednesday Jan 8 2025 -> week starts Monday Jan 6.
	wed := time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC)
	if got := WidthWeek.Start(wed); !got.Equal(time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WidthWeek.Start = %v, want Mon Jan 6", got)
	}

	// A Monday is its own week start.
	mon := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	if got := WidthWeek.Start(mon); !got.Equal(mon) {
		t.Errorf("WidthWeek.Start(Monday) = %v, want identity", got)
	}

	// Sunday belongs to the preceding Monday's week.
	sun := time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC)
	if got := WidthWeek.Start(sun); !got.Equal(mon) {
		t.Errorf("WidthWeek.Start(Sunday) = %v, want Mon Jan 6", got)
	}

	d := time.Date(2025, time.July, 17, 0, 0, 0, 0, time.UTC)
	if got := WidthMonth.Start(d); !got.Equal(time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WidthMonth.Start = %v, want Jul 1", got)
	}
	if got := WidthYear.Start(d); !got.Equal(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WidthYear.Start = %v, want Jan 1", got)
	}
}

func TestChunkWidth_End(t *testing.T) {
	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	if got := WidthWeek.End(start); !got.Equal(start.AddDate(0, 0, 7)) {
		t.Errorf("WidthWeek.End = %v", got)
	}

	jan := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := WidthMonth.End(jan); !got.Equal(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WidthMonth.End = %v", got)
	}
	if got := WidthYear.End(jan); !got.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("WidthYear.End = %v", got)
	}
}

func TestPolicy_Compressible(t *testing.T) {
	policy, err := PolicyFor(contracts.DomainMarketPrice)
	if err != nil {
		t.Fatalf("PolicyFor failed: %v", err)
	}

	chunkStart := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	chunkEnd := policy.Width.End(chunkStart)

	// Just before the delay elapses: not compressible.
	if policy.Compressible(chunkStart, chunkEnd.Add(policy.CompressionDelay-time.Hour)) {
		t.Error("chunk should not be compressible before the delay elapses")
	}
	// At and after the delay: compressible.
	if !policy.Compressible(chunkStart, chunkEnd.Add(policy.CompressionDelay)) {
		t.Error("chunk should be compressible once the delay elapses")
	}
}

func TestPolicyFor_EveryDomain(t *testing.T) {
	for _, domain := range contracts.Domains {
		policy, err := PolicyFor(domain)
		if err != nil {
			t.Errorf("PolicyFor(%s) failed: %v", domain, err)
			continue
		}
		if policy.CompressionDelay <= 0 {
			t.Errorf("domain %s has no compression delay", domain)
		}
	}

	if _, err := PolicyFor(contracts.Domain("order_book")); err == nil {
		t.Error("PolicyFor should fail for unknown domain")
	}
}

func TestSegmentCodec_RoundTrip(t *testing.T) {
	rows := []contracts.Observation{
		{SeriesID: 7, ObservationDate: time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), Value: 11.75, Revision: 0, ReleaseTime: time.Date(2025, time.January, 2, 18, 0, 0, 0, time.UTC), Source: "BCB"},
		{SeriesID: 7, ObservationDate: time.Date(2025, time.January, 3, 0, 0, 0, 0, time.UTC), Value: 11.80, Revision: 0, ReleaseTime: time.Date(2025, time.January, 3, 18, 0, 0, 0, time.UTC), Source: "BCB"},
		{SeriesID: 7, ObservationDate: time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC), Value: 11.80, Revision: 1, ReleaseTime: time.Date(2025, time.January, 3, 9, 0, 0, 0, time.UTC), Source: "BCB"},
	}

	blob, rawLen, err := encodeSegment(rows)
	if err != nil {
		t.Fatalf("encodeSegment failed: %v", err)
	}
	if rawLen <= 0 {
		t.Error("uncompressed size should be positive")
	}

	decoded, err := decodeSegment(blob)
	if err != nil {
		t.Fatalf("decodeSegment failed: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("decoded %d rows, want 3", len(decoded))
	}

	// Segment order: date descending, then revision descending.
	if !decoded[0].ObservationDate.Equal(rows[1].ObservationDate) {
		t.Errorf("first decoded row should be Jan 3, got %v", decoded[0].ObservationDate)
	}
	if decoded[1].Revision != 1 || decoded[2].Revision != 0 {
		t.Errorf("Jan 2 rows should decode revision-descending, got %d then %d",
			decoded[1].Revision, decoded[2].Revision)
	}
}
