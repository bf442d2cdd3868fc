package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcampos/macrodesk/internal/contracts"
	"github.com/rcampos/macrodesk/internal/migrations"
	"github.com/rcampos/macrodesk/pkg/config"
	"github.com/rcampos/macrodesk/pkg/database"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store health and chunk backlog",
	Long: `Prints database health, the schema version and the per-domain
compression backlog.

Example:
  go run ./cmd/macrodesk status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	health, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	fmt.Printf("database: healthy=%t response_time=%s\n", health.Healthy, health.ResponseTime)

	version, dirty, err := migrations.Version(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}
	fmt.Printf("schema: version=%d dirty=%t\n", version, dirty)

	rows, err := db.Pool.Query(ctx, `
		SELECT domain,
		       count(*) FILTER (WHERE compressed_at IS NULL) AS live,
		       count(*) FILTER (WHERE compressed_at IS NOT NULL) AS compressed,
		       coalesce(sum(row_count), 0) AS rows
		FROM obs.chunks
		GROUP BY domain
	`)
	if err != nil {
		return fmt.Errorf("chunk stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[contracts.Domain][3]int64)
	for rows.Next() {
		var domain contracts.Domain
		var live, compressed, total int64
		if err := rows.Scan(&domain, &live, &compressed, &total); err != nil {
			return err
		}
		stats[domain] = [3]int64{live, compressed, total}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	fmt.Println("chunks:")
	for _, domain := range contracts.Domains {
		s := stats[domain]
		fmt.Printf("  %-16s live=%d compressed=%d rows=%d\n", domain, s[0], s[1], s[2])
	}
	return nil
}
