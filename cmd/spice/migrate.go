package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-forecast/internal/cli"
	"github.com/Veraticus/spice-forecast/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates automatically; use this to check the schema
version or to take a backup before upgrading.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	cmd.Flags().Bool("backup", false, "Back up the database before migrating")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	status, _ := cmd.Flags().GetBool("status")
	backup, _ := cmd.Flags().GetBool("backup")

	store, err := openStorage()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer closeStorage(store)

	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if status {
		state := "up to date"
		if current < storage.ExpectedSchemaVersion {
			state = fmt.Sprintf("%d migration(s) pending", storage.ExpectedSchemaVersion-current)
		}
		_, err := fmt.Fprintln(out, cli.RenderBox("Database Migration Status", fmt.Sprintf(
			"Current version: %d\nLatest version:  %d\nStatus:          %s",
			current, storage.ExpectedSchemaVersion, state)))
		return err
	}

	if current >= storage.ExpectedSchemaVersion {
		_, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database is already at version %d", current)))
		return err
	}

	if backup && current > 0 {
		path := store.DefaultBackupPath(time.Now())
		if err := store.Backup(ctx, path); err != nil {
			return fmt.Errorf("backup failed, not migrating: %w", err)
		}
		if _, err := fmt.Fprintln(out, cli.FormatInfo("Backed up database to "+path)); err != nil {
			return err
		}
	}

	slog.Info("Running database migrations", "from", current, "to", storage.ExpectedSchemaVersion)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	_, err = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database migrated from version %d to %d", current, storage.ExpectedSchemaVersion)))
	return err
}
