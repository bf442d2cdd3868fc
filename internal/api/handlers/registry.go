package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rcampos/macrodesk/internal/calendar"
	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/internal/registry"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// RegistryHandler serves series and instrument reference data.
type RegistryHandler struct {
	registry  *registry.Registry
	series    *registry.SeriesRepository
	calendars map[string]*calendar.Calendar
	log       *logger.Logger
}

func NewRegistryHandler(reg *registry.Registry, series *registry.SeriesRepository, log *logger.Logger) *RegistryHandler {
	return &RegistryHandler{
		registry: reg,
		series:   series,
		calendars: map[string]*calendar.Calendar{
			"BR": calendar.NewBrazil(),
			"US": calendar.NewUS(),
		},
		log: log,
	}
}

// CreateSeries registers a new time series.
// POST /api/series
func (h *RegistryHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var meta contracts.SeriesMetadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if meta.Source == "" || meta.Code == "" {
		respondError(w, http.StatusBadRequest, "source and code are required")
		return
	}

	if err := h.registry.CreateSeries(r.Context(), &meta); err != nil {
		h.log.WithError(err).Error("Failed to create series")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, meta)
}

// ListSeries returns every registered series.
// GET /api/series
func (h *RegistryHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	list, err := h.series.List(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to list series")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetSeries returns one series by numeric id, or by source/code when the
// "source" and "code" query parameters are set.
// GET /api/series/{id}
func (h *RegistryHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid series id")
		return
	}

	meta, err := h.registry.Series(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// LookupSeries resolves a series by its natural key.
// GET /api/series/lookup?source=BCB&code=SELIC_DAILY
func (h *RegistryHandler) LookupSeries(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	code := r.URL.Query().Get("code")
	if source == "" || code == "" {
		respondError(w, http.StatusBadRequest, "source and code are required")
		return
	}

	meta, err := h.registry.SeriesByKey(r.Context(), source, code)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// CorrectSeriesRequest is an administrative metadata fix. Only the label
// fields may change; identity and revisability are frozen at creation.
type CorrectSeriesRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CorrectSeries fixes a series' display metadata.
// PATCH /api/series/{id}
func (h *RegistryHandler) CorrectSeries(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid series id")
		return
	}

	var req CorrectSeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.registry.CorrectSeries(r.Context(), id, req.Name, req.Description); err != nil {
		respondDomainError(w, err)
		return
	}

	meta, err := h.registry.Series(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// ExpectedRelease projects when an observation for a date is scheduled to
// publish: the series' release lag in business days on its country's
// calendar. Series from countries without a dedicated calendar fall back to
// the domestic one.
// GET /api/series/{id}/release?date=2025-01-02
func (h *RegistryHandler) ExpectedRelease(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid series id")
		return
	}

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil || date.IsZero() {
		respondError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	meta, err := h.registry.Series(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	cal, ok := h.calendars[meta.Country]
	if !ok {
		cal = h.calendars["BR"]
	}
	release, err := registry.ExpectedRelease(cal, meta, date)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"series_id":        meta.ID,
		"observation_date": date.Format("2006-01-02"),
		"expected_release": release.Format("2006-01-02"),
		"calendar":         cal.Name(),
	})
}

// CreateInstrument registers a tradable instrument.
// POST /api/instruments
func (h *RegistryHandler) CreateInstrument(w http.ResponseWriter, r *http.Request) {
	var inst contracts.Instrument
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if inst.Ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	if err := h.registry.CreateInstrument(r.Context(), &inst); err != nil {
		h.log.WithError(err).Error("Failed to create instrument")
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, inst)
}

// GetInstrument returns one instrument by ticker.
// GET /api/instruments/{ticker}
func (h *RegistryHandler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	inst, err := h.registry.InstrumentByTicker(r.Context(), mux.Vars(r)["ticker"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inst)
}
