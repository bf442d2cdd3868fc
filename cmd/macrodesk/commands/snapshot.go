package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcampos/macrodesk/internal/portfolio"
	"github.com/rcampos/macrodesk/pkg/config"
	"github.com/rcampos/macrodesk/pkg/database"
	"github.com/rcampos/macrodesk/pkg/logger"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write the daily P&L snapshot and briefing",
	Long: `Writes one pnl_history row per open position and the end-of-day
briefing. Re-running for the same date overwrites the earlier rows, so a
failed evening run can be repeated safely.

Example:
  go run ./cmd/macrodesk snapshot
  go run ./cmd/macrodesk snapshot --date 2025-01-02`,
	RunE: runSnapshot,
}

var snapshotDate string

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVar(&snapshotDate, "date", "", "snapshot date (YYYY-MM-DD, default today)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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

	date := time.Now().UTC()
	if snapshotDate != "" {
		date, err = time.Parse("2006-01-02", snapshotDate)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", snapshotDate, err)
		}
	}

	desk := portfolio.NewDesk(db.Pool, log)

	n, err := desk.SnapshotDaily(cmd.Context(), date)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	briefing, err := desk.BuildBriefing(cmd.Context(), date, "")
	if err != nil {
		return fmt.Errorf("briefing: %w", err)
	}

	fmt.Printf("snapshotted %d positions, total pnl %s\n", n, briefing.TotalPnl)
	return nil
}
