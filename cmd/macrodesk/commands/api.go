package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcampos/macrodesk/internal/api"
	"github.com/rcampos/macrodesk/internal/api/handlers"
	"github.com/rcampos/macrodesk/internal/obstore"
	"github.com/rcampos/macrodesk/internal/partition"
	"github.com/rcampos/macrodesk/internal/portfolio"
	"github.com/rcampos/macrodesk/internal/realtime"
	"github.com/rcampos/macrodesk/internal/registry"
	"github.com/rcampos/macrodesk/pkg/config"
	"github.com/rcampos/macrodesk/pkg/database"
	"github.com/rcampos/macrodesk/pkg/logger"
	"github.com/rcampos/macrodesk/pkg/redis"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API and the WebSocket feed.

Endpoints:
  GET  /health                                     - Health check
  POST /api/observations/{domain}                  - Append a revision
  GET  /api/observations/{domain}/{id}/current     - Latest revision
  GET  /api/observations/{domain}/{id}/asof        - Point-in-time read
  POST /api/proposals                              - New trade proposal
  POST /api/proposals/{id}/execute                 - Execute a proposal
  POST /api/journal/{id}/lock                      - Lock a journal entry
  GET  /ws                                         - Event feed

Example:
  go run ./cmd/macrodesk api
  go run ./cmd/macrodesk api --port 8084`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Connected to database")

	redisClient, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Domain wiring.
	seriesRepo := registry.NewSeriesRepository(db.Pool)
	instrumentRepo := registry.NewInstrumentRepository(db.Pool)
	cache := redis.NewCache(redisClient, "macrodesk")
	reg := registry.New(seriesRepo, instrumentRepo, cache, cfg.Redis.CacheTTL)

	store := obstore.New(db.Pool, reg, log)
	manager := partition.NewManager(db.Pool, log, cfg.Compression.MaxChunksPerCycle)
	desk := portfolio.NewDesk(db.Pool, log)
	hub := realtime.NewHub(log)
	defer hub.Close()

	router := api.NewRouter(cfg,
		handlers.NewRegistryHandler(reg, seriesRepo, log),
		handlers.NewObservationHandler(store, hub, log),
		handlers.NewDeskHandler(desk, hub, log),
		handlers.NewAdminHandler(db, manager, nil, hub, log),
		hub, log)

	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
