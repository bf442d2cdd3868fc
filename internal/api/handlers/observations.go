package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/internal/obstore"
	"github.com/rcampos/macrodesk/internal/realtime"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// ObservationHandler serves the revisioned observation store.
type ObservationHandler struct {
	store *obstore.Store
	hub   *realtime.Hub
	log   *logger.Logger
}

func NewObservationHandler(store *obstore.Store, hub *realtime.Hub, log *logger.Logger) *ObservationHandler {
	return &ObservationHandler{store: store, hub: hub, log: log}
}

func domainVar(r *http.Request) (contracts.Domain, bool) {
	d := contracts.Domain(mux.Vars(r)["domain"])
	return d, d.Valid()
}

// Append stores one observation revision.
// POST /api/observations/{domain}
func (h *ObservationHandler) Append(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown domain")
		return
	}

	var req obstore.AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SeriesID == 0 || req.ObservationDate.IsZero() || req.ReleaseTime.IsZero() {
		respondError(w, http.StatusBadRequest, "series_id, observation_date and release_time are required")
		return
	}

	obs, err := h.store.Append(r.Context(), domain, req)
	if err != nil {
		h.log.WithError(err).WithField("domain", string(domain)).Warn("Append rejected")
		respondDomainError(w, err)
		return
	}

	h.hub.Broadcast(realtime.EventObservation, map[string]interface{}{
		"domain":      domain,
		"observation": obs,
	})
	respondJSON(w, http.StatusCreated, obs)
}

// ReadCurrent returns the latest revision for one date.
// GET /api/observations/{domain}/{series_id}/current?date=2025-01-02
func (h *ObservationHandler) ReadCurrent(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown domain")
		return
	}
	seriesID, err := strconv.ParseInt(mux.Vars(r)["series_id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid series id")
		return
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil || date.IsZero() {
		respondError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	obs, err := h.store.ReadCurrent(r.Context(), domain, seriesID, date)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, obs)
}

// ReadAsOf reconstructs a series range as known at a point in time.
// GET /api/observations/{domain}/{series_id}/asof?from=...&to=...&knowledge_time=...
//
// knowledge_time defaults to now, which makes the response equivalent to
// the current view of the range.
func (h *ObservationHandler) ReadAsOf(w http.ResponseWriter, r *http.Request) {
	domain, ok := domainVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown domain")
		return
	}
	seriesID, err := strconv.ParseInt(mux.Vars(r)["series_id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid series id")
		return
	}

	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil || from.IsZero() {
		respondError(w, http.StatusBadRequest, "from is required (YYYY-MM-DD)")
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil || to.IsZero() {
		respondError(w, http.StatusBadRequest, "to is required (YYYY-MM-DD)")
		return
	}
	knowledge, err := parseTimestamp(q.Get("knowledge_time"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "knowledge_time must be RFC 3339")
		return
	}
	if knowledge.IsZero() {
		knowledge = time.Now().UTC()
	}

	rows, err := h.store.ReadAsOf(r.Context(), domain, seriesID, from, to, knowledge)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"series_id":      seriesID,
		"domain":         domain,
		"knowledge_time": knowledge,
		"observations":   rows,
	})
}
