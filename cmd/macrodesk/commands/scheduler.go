package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcampos/macrodesk/internal/calendar"
	"github.com/rcampos/macrodesk/internal/partition"
	"github.com/rcampos/macrodesk/internal/portfolio"
	"github.com/rcampos/macrodesk/internal/scheduler"
	"github.com/rcampos/macrodesk/internal/scheduler/jobs"
	"github.com/rcampos/macrodesk/pkg/config"
	"github.com/rcampos/macrodesk/pkg/database"
	"github.com/rcampos/macrodesk/pkg/logger"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the scheduled pipelines",
	Long: `Runs the recurring jobs until interrupted:

  chunk_compression - moves cold chunks into compressed segments
  pnl_snapshot      - end-of-day P&L history for open positions
  daily_briefing    - end-of-day desk summary

Example:
  go run ./cmd/macrodesk scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	manager := partition.NewManager(db.Pool, log, cfg.Compression.MaxChunksPerCycle)
	desk := portfolio.NewDesk(db.Pool, log)
	cal := calendar.NewBrazil()

	sched := scheduler.New(log)
	for _, job := range []scheduler.Job{
		jobs.NewCompressionJob(manager, cfg.Compression.Schedule, log),
		jobs.NewPnlSnapshotJob(desk, cal, log),
		jobs.NewBriefingJob(desk, cal, log),
	} {
		if err := sched.AddJob(job); err != nil {
			return fmt.Errorf("add job: %w", err)
		}
	}

	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.WithField("signal", sig.String()).Info("Shutdown signal received")
	return nil
}
