package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/internal/portfolio"
	"github.com/rcampos/macrodesk/internal/realtime"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// DeskHandler serves the proposal, position, journal and P&L endpoints.
type DeskHandler struct {
	desk *portfolio.Desk
	hub  *realtime.Hub
	log  *logger.Logger
}

func NewDeskHandler(desk *portfolio.Desk, hub *realtime.Hub, log *logger.Logger) *DeskHandler {
	return &DeskHandler{desk: desk, hub: hub, log: log}
}

func positionIDVar(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// CreateProposal registers a new trade proposal in status "proposed".
// POST /api/proposals
func (h *DeskHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	var p contracts.TradeProposal
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.InstrumentID == 0 || p.Direction == "" {
		respondError(w, http.StatusBadRequest, "instrument_id and direction are required")
		return
	}

	if err := h.desk.Proposals.Create(r.Context(), &p); err != nil {
		h.log.WithError(err).Error("Failed to create proposal")
		respondDomainError(w, err)
		return
	}

	h.hub.Broadcast(realtime.EventProposal, p)
	respondJSON(w, http.StatusCreated, p)
}

// ListProposals returns recent proposals, optionally filtered by status.
// GET /api/proposals?status=proposed&limit=50
func (h *DeskHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		limit = n
	}

	status := contracts.ProposalStatus(r.URL.Query().Get("status"))
	list, err := h.desk.Proposals.List(r.Context(), status, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetProposal returns one proposal.
// GET /api/proposals/{id}
func (h *DeskHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := positionIDVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	p, err := h.desk.Proposals.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// ReviewRequest approves or rejects a proposal.
type ReviewRequest struct {
	Decision contracts.ProposalStatus `json:"decision"` // approved or rejected
}

// ReviewProposal moves a proposal out of "proposed".
// POST /api/proposals/{id}/review
func (h *DeskHandler) ReviewProposal(w http.ResponseWriter, r *http.Request) {
	id, err := positionIDVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.desk.Proposals.Review(r.Context(), id, req.Decision)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.hub.Broadcast(realtime.EventProposal, p)
	respondJSON(w, http.StatusOK, p)
}

// ExecuteProposal fills an approved proposal, opening its position.
// POST /api/proposals/{id}/execute
func (h *DeskHandler) ExecuteProposal(w http.ResponseWriter, r *http.Request) {
	id, err := positionIDVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	var fill portfolio.ExecutionFill
	if err := json.NewDecoder(r.Body).Decode(&fill); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fill.Price.IsZero() || fill.Notional.IsZero() {
		respondError(w, http.StatusBadRequest, "price and notional are required")
		return
	}

	pos, err := h.desk.Execute(r.Context(), id, fill)
	if err != nil {
		h.log.WithError(err).Warn("Execution rejected")
		respondDomainError(w, err)
		return
	}

	h.hub.Broadcast(realtime.EventPosition, pos)
	respondJSON(w, http.StatusCreated, pos)
}

// ListPositions returns all open positions.
// GET /api/positions
func (h *DeskHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	list, err := h.desk.Positions.ListOpen(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GetPosition returns one position, open or closed.
// GET /api/positions/{id}
func (h *DeskHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := positionIDVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	pos, err := h.desk.Positions.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pos)
}

// ClosePosition realizes P&L and closes the position.
// POST /api/positions/{id}/close
func (h *DeskHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id, err := positionIDVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var req portfolio.CloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Price.IsZero() {
		respondError(w, http.StatusBadRequest, "price is required")
		return
	}

	pos, err := h.desk.Close(r.Context(), id, req)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	h.hub.Broadcast(realtime.EventPosition, pos)
	respondJSON(w, http.StatusOK, pos)
}

// GetPnlHistory returns a position's daily snapshots.
// GET /api/positions/{id}/pnl
func (h *DeskHandler) GetPnlHistory(w http.ResponseWriter, r *http.Request) {
	id, err := positionIDVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	history, err := h.desk.Pnl.History(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// OverridePnl hand-writes one snapshot row, flagged as a manual override.
// Upserts on (snapshot_date, position_id) like the nightly pipeline.
// PUT /api/positions/{id}/pnl
func (h *DeskHandler) OverridePnl(w http.ResponseWriter, r *http.Request) {
	id, err := positionIDVar(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid position id")
		return
	}

	var snap contracts.PnlSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if snap.SnapshotDate.IsZero() {
		respondError(w, http.StatusBadRequest, "snapshot_date is required")
		return
	}

	// The position must exist; the FK would catch it, but 404 reads better
	// than a constraint error.
	if _, err := h.desk.Positions.GetByID(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	snap.PositionID = id
	snap.IsManualOverride = true
	if err := h.desk.Pnl.Upsert(r.Context(), &snap); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// AppendJournal writes a new decision-journal entry.
// POST /api/journal
func (h *DeskHandler) AppendJournal(w http.ResponseWriter, r *http.Request) {
	var e contracts.DecisionJournalEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if e.Body == "" {
		respondError(w, http.StatusBadRequest, "body is required")
		return
	}
	e.ID = ""

	if err := h.desk.Journal.Append(r.Context(), &e); err != nil {
		respondDomainError(w, err)
		return
	}

	h.hub.Broadcast(realtime.EventJournal, e)
	respondJSON(w, http.StatusCreated, e)
}

// ListJournal returns recent entries, or a position's entries.
// GET /api/journal?position_id=...&limit=50
func (h *DeskHandler) ListJournal(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("position_id"); v != "" {
		positionID, err := uuid.Parse(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid position id")
			return
		}
		entries, err := h.desk.Journal.ListByPosition(r.Context(), positionID)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, entries)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		limit = n
	}

	entries, err := h.desk.Journal.List(r.Context(), limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// GetJournal returns one entry.
// GET /api/journal/{id}
func (h *DeskHandler) GetJournal(w http.ResponseWriter, r *http.Request) {
	e, err := h.desk.Journal.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// AmendRequest rewrites an unlocked entry's body.
type AmendRequest struct {
	Body string `json:"body"`
}

// AmendJournal edits an UNLOCKED entry.
// PATCH /api/journal/{id}
func (h *DeskHandler) AmendJournal(w http.ResponseWriter, r *http.Request) {
	var req AmendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Body == "" {
		respondError(w, http.StatusBadRequest, "body is required")
		return
	}

	e, err := h.desk.Journal.Amend(r.Context(), mux.Vars(r)["id"], req.Body)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// DeleteJournal removes an UNLOCKED entry.
// DELETE /api/journal/{id}
func (h *DeskHandler) DeleteJournal(w http.ResponseWriter, r *http.Request) {
	if err := h.desk.Journal.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockJournal makes an entry permanently immutable. Idempotent.
// POST /api/journal/{id}/lock
func (h *DeskHandler) LockJournal(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.desk.Journal.Lock(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	e, err := h.desk.Journal.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// GetBriefing returns the end-of-day briefing for a date.
// GET /api/briefings/{date}
func (h *DeskHandler) GetBriefing(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(mux.Vars(r)["date"])
	if err != nil || date.IsZero() {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	b, err := h.desk.Pnl.GetBriefing(r.Context(), date)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}
