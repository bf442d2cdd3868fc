package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcampos/macrodesk/internal/partition"
	"github.com/rcampos/macrodesk/pkg/config"
	"github.com/rcampos/macrodesk/pkg/database"
	"github.com/rcampos/macrodesk/pkg/logger"
)

var compressCmd = &cobra.Command{
	Use:   "compress",
	Short: "Run one compression cycle",
	Long: `Compresses every chunk past its domain's compression delay, up to
the per-cycle budget. Safe to run while the API is serving: reads are
unaffected and appends briefly queue on the chunks being compressed.

Example:
  go run ./cmd/macrodesk compress`,
	RunE: runCompress,
}

func init() {
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
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
	result, err := manager.RunCycle(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("compression cycle: %w", err)
	}

	fmt.Printf("compressed %d chunks (%d rows)\n", result.ChunksCompressed, result.RowsCompressed)
	return nil
}
