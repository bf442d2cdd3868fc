package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/rcampos/macrodesk/internal/api/handlers"
	"github.com/rcampos/macrodesk/internal/realtime"
	"github.com/rcampos/macrodesk/pkg/config"
	"github.com/rcampos/macrodesk/pkg/logger"
)

// NewRouter wires every endpoint and the shared middleware.
func NewRouter(
	cfg *config.Config,
	reg *handlers.RegistryHandler,
	obs *handlers.ObservationHandler,
	desk *handlers.DeskHandler,
	admin *handlers.AdminHandler,
	hub *realtime.Hub,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.HandleFunc("/ws", hub.ServeWS)

	api := r.PathPrefix("/api").Subrouter()

	// Reference data.
	api.HandleFunc("/series", reg.CreateSeries).Methods("POST")
	api.HandleFunc("/series", reg.ListSeries).Methods("GET")
	api.HandleFunc("/series/lookup", reg.LookupSeries).Methods("GET")
	api.HandleFunc("/series/{id:[0-9]+}", reg.GetSeries).Methods("GET")
	api.HandleFunc("/series/{id:[0-9]+}", reg.CorrectSeries).Methods("PATCH")
	api.HandleFunc("/series/{id:[0-9]+}/release", reg.ExpectedRelease).Methods("GET")
	api.HandleFunc("/instruments", reg.CreateInstrument).Methods("POST")
	api.HandleFunc("/instruments/{ticker}", reg.GetInstrument).Methods("GET")

	// Observations.
	api.HandleFunc("/observations/{domain}", obs.Append).Methods("POST")
	api.HandleFunc("/observations/{domain}/{series_id:[0-9]+}/current", obs.ReadCurrent).Methods("GET")
	api.HandleFunc("/observations/{domain}/{series_id:[0-9]+}/asof", obs.ReadAsOf).Methods("GET")

	// Desk workflow.
	api.HandleFunc("/proposals", desk.CreateProposal).Methods("POST")
	api.HandleFunc("/proposals", desk.ListProposals).Methods("GET")
	api.HandleFunc("/proposals/{id}", desk.GetProposal).Methods("GET")
	api.HandleFunc("/proposals/{id}/review", desk.ReviewProposal).Methods("POST")
	api.HandleFunc("/proposals/{id}/execute", desk.ExecuteProposal).Methods("POST")
	api.HandleFunc("/positions", desk.ListPositions).Methods("GET")
	api.HandleFunc("/positions/{id}", desk.GetPosition).Methods("GET")
	api.HandleFunc("/positions/{id}/close", desk.ClosePosition).Methods("POST")
	api.HandleFunc("/positions/{id}/pnl", desk.GetPnlHistory).Methods("GET")
	api.HandleFunc("/positions/{id}/pnl", desk.OverridePnl).Methods("PUT")
	api.HandleFunc("/journal", desk.AppendJournal).Methods("POST")
	api.HandleFunc("/journal", desk.ListJournal).Methods("GET")
	api.HandleFunc("/journal/{id}", desk.GetJournal).Methods("GET")
	api.HandleFunc("/journal/{id}", desk.AmendJournal).Methods("PATCH")
	api.HandleFunc("/journal/{id}", desk.DeleteJournal).Methods("DELETE")
	api.HandleFunc("/journal/{id}/lock", desk.LockJournal).Methods("POST")
	api.HandleFunc("/briefings/{date}", desk.GetBriefing).Methods("GET")

	// Operations.
	api.HandleFunc("/admin/status", admin.Status).Methods("GET")
	api.HandleFunc("/admin/compress", admin.Compress).Methods("POST")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	api.Use(rateLimitMiddleware(cfg))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "macrodesk-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware turns panics into 500 responses.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware bounds the API's aggregate request rate. Connectors
// batch-loading history can otherwise starve interactive reads.
func rateLimitMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
