package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"conecta/internal/db"
	"conecta/internal/db/migrations"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Create the database if needed and apply all pending migrations.`,
		RunE:  runMigrate,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migration",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	})
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := cmd.Context()

	if err := db.CreateDatabaseIfNotExists(ctx, cfg.DatabaseURL, logger); err != nil {
		return oops.Code("DB_CREATE_FAILED").Wrap(err)
	}

	database, err := db.New(ctx, cfg.DatabaseURL, db.DefaultOptions(), logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer database.Close()

	cmd.Println("Running migrations...")
	if err := migrations.RunMigrations(ctx, database.DB); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, err := db.New(cmd.Context(), cfg.DatabaseURL, db.DefaultOptions(), newLogger(cfg))
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer database.Close()

	if err := migrations.Rollback(cmd.Context(), database.DB); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "rollback").Wrap(err)
	}
	cmd.Println("Rolled back one migration")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	database, err := db.New(cmd.Context(), cfg.DatabaseURL, db.DefaultOptions(), newLogger(cfg))
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer database.Close()

	if err := migrations.Status(cmd.Context(), database.DB); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "status").Wrap(err)
	}
	return nil
}
