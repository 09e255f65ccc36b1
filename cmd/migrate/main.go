package main

// Run database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate down
//   go run ./cmd/migrate status

import (
	"context"
	"database/sql"
	"os"

	"github.com/spf13/cobra"

	"talentranker/internal/shared/config"
	"talentranker/internal/shared/storage/db"
	"talentranker/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply TalentRanker database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrationCmd("up", "Apply all pending migrations", db.RunMigrations),
		migrationCmd("down", "Roll back the most recent migration", db.RollbackMigration),
		migrationCmd("status", "Print applied and pending migrations", db.MigrationStatus),
	)
	return root
}

func migrationCmd(use, short string, action func(context.Context, *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			telemetry.Configure(cfg.LogLevel, cfg.Env)
			defer telemetry.Sync()

			ctx := cmd.Context()
			sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			if err := action(ctx, sqlDB); err != nil {
				return err
			}
			telemetry.Info("migrate.done", map[string]any{"command": use})
			return nil
		},
	}
}
