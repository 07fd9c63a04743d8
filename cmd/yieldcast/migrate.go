package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/khulafarming/yieldcast/internal/cli"
	"github.com/khulafarming/yieldcast/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the history database schema to the latest version.

Other commands migrate automatically; this is useful for checking the
schema version or preparing a database ahead of time.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "show the schema version without applying changes")
	cmd.Flags().Bool("no-backup", false, "skip the database backup taken before upgrading")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")
	noBackup, _ := cmd.Flags().GetBool("no-backup")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		fmt.Fprintf(out, "Database:        %s\n", store.Path())
		fmt.Fprintf(out, "Current version: %d\n", current)
		fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		return nil
	}

	if !noBackup && current > 0 && current < storage.ExpectedSchemaVersion && store.Path() != ":memory:" {
		backup := store.BackupPath(current)
		if err := store.Backup(ctx, backup); err != nil {
			return fmt.Errorf("failed to back up database before migrating: %w", err)
		}
		fmt.Fprintln(out, cli.FormatInfo("Backed up database to "+backup))
	}

	slog.Info("running database migrations", "database", store.Path(), "from_version", current)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database is at schema version %d", storage.ExpectedSchemaVersion)))
	return nil
}
