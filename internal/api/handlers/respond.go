package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rcampos/macrodesk/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps the store's sentinel errors onto HTTP statuses.
// Anything unrecognized is a 500 with a generic body.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contracts.ErrDuplicateNaturalKey):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contracts.ErrOutOfOrderRevision):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contracts.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contracts.ErrRevisionNotAllowed):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, contracts.ErrImmutabilityViolation):
		respondError(w, http.StatusLocked, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseDate reads a YYYY-MM-DD query value; zero time when absent.
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", v)
}

// parseTimestamp reads an RFC 3339 query value; zero time when absent.
func parseTimestamp(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}
