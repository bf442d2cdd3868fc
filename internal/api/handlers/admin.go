package handlers

import (
	"net/http"

	"github.com/rcampos/macrodesk/internal/partition"
	"github.com/rcampos/macrodesk/internal/realtime"
	"github.com/rcampos/macrodesk/internal/scheduler"
	"github.com/rcampos/macrodesk/pkg/database"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// AdminHandler serves operational endpoints: status, scheduler stats and
// manual pipeline triggers.
type AdminHandler struct {
	db      *database.DB
	manager *partition.Manager
	sched   *scheduler.Scheduler
	hub     *realtime.Hub
	log     *logger.Logger
}

func NewAdminHandler(db *database.DB, manager *partition.Manager, sched *scheduler.Scheduler, hub *realtime.Hub, log *logger.Logger) *AdminHandler {
	return &AdminHandler{db: db, manager: manager, sched: sched, hub: hub, log: log}
}

// Status reports database health, pool stats and feed subscribers.
// GET /api/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	health, err := h.db.HealthCheck(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Health check failed")
	}

	status := map[string]interface{}{
		"database":         health,
		"pool":             h.db.Stats(),
		"feed_subscribers": h.hub.ClientCount(),
	}
	if h.sched != nil {
		status["jobs"] = h.sched.Stats()
	}
	respondJSON(w, http.StatusOK, status)
}

// Compress runs one compression cycle immediately.
// POST /api/admin/compress
func (h *AdminHandler) Compress(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.RunCycle(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Manual compression cycle failed")
		respondError(w, http.StatusInternalServerError, "compression cycle failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"chunks_compressed": result.ChunksCompressed,
		"rows_compressed":   result.RowsCompressed,
	})
}
