package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcampos/macrodesk/internal/migrations"
	"github.com/rcampos/macrodesk/pkg/config"
	"github.com/rcampos/macrodesk/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Applies or rolls back the embedded schema migrations.

Example:
  go run ./cmd/macrodesk migrate up
  go run ./cmd/macrodesk migrate down
  go run ./cmd/macrodesk migrate version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.New(cfg)

		if err := migrations.Up(cfg.Database.URL); err != nil {
			return err
		}
		log.Info("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.New(cfg)

		if err := migrations.Down(cfg.Database.URL); err != nil {
			return err
		}
		log.Info("Migration rolled back")
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		version, dirty, err := migrations.Version(cfg.Database.URL)
		if err != nil {
			return err
		}
		fmt.Printf("version: %d dirty: %t\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}
