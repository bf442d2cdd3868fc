package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rcampos/macrodesk/internal/contracts"
)

func TestRespondDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{contracts.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("series 9: %w", contracts.ErrNotFound), http.StatusNotFound},
		{contracts.ErrDuplicateNaturalKey, http.StatusConflict},
		{contracts.ErrOutOfOrderRevision, http.StatusConflict},
		{contracts.ErrInvalidTransition, http.StatusConflict},
		{contracts.ErrRevisionNotAllowed, http.StatusUnprocessableEntity},
		{contracts.ErrImmutabilityViolation, http.StatusLocked},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		respondDomainError(rec, tt.err)
		if rec.Code != tt.wantStatus {
			t.Errorf("respondDomainError(%v) = %d, want %d", tt.err, rec.Code, tt.wantStatus)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
	}
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2025-01-02")
	if err != nil {
		t.Fatalf("parseDate: %v", err)
	}
	want := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseDate = %v, want %v", got, want)
	}

	if got, err := parseDate(""); err != nil || !got.IsZero() {
		t.Errorf("empty date should be zero, got %v, %v", got, err)
	}
	if _, err := parseDate("02/01/2025"); err == nil {
		t.Error("slash-formatted date accepted")
	}
	if _, err := parseTimestamp("2025-01-02T18:00:00"); err == nil {
		t.Error("timestamp without zone accepted")
	}
}
