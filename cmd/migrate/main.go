package main

// Run database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate down
//   go run ./cmd/migrate status
//   go run ./cmd/migrate version

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recruitai-backend/internal/shared/config"
	"recruitai-backend/internal/shared/storage/db"
	"recruitai-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseURL string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the recruitai database schema",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "postgres URL (defaults to DATABASE_URL)")

	withDB := func(fn func(ctx context.Context, conn *sql.DB) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			url := databaseURL
			if url == "" {
				url = config.Load().DatabaseURL
			}
			ctx := cmd.Context()
			conn, err := db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return err
			}
			defer conn.Close()
			return fn(ctx, conn)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDB(func(ctx context.Context, conn *sql.DB) error {
				if err := db.RunMigrations(ctx, conn); err != nil {
					return err
				}
				telemetry.Info("migrate.up_complete", nil)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withDB(func(ctx context.Context, conn *sql.DB) error {
				return db.RollbackMigration(ctx, conn)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print applied and pending migrations",
			RunE: withDB(func(ctx context.Context, conn *sql.DB) error {
				return db.MigrationStatus(ctx, conn)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withDB(func(ctx context.Context, conn *sql.DB) error {
				v, err := db.MigrationVersion(ctx, conn)
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			}),
		},
	)
	return root
}
