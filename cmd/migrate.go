package cmd

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/streed/study-notes/internal/database"
	"github.com/streed/study-notes/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long: `Manage database migrations and schema changes.

Migrations run automatically whenever the server opens the database, so these
commands are mostly useful for inspecting or repairing a database file.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of database migrations",
	RunE:  showMigrationStatus,
}

var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run pending database migrations",
	RunE:  runMigrations,
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback <migration-id>",
	Short: "Roll back a single applied migration",
	Args:  cobra.ExactArgs(1),
	RunE:  rollbackMigration,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateRunCmd)
	migrateCmd.AddCommand(migrateRollbackCmd)
}

// openRawDatabase opens the database without applying migrations.
func openRawDatabase() (*sql.DB, error) {
	path := appConfig.Storage.DatabasePath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	conn, err := sql.Open("sqlite3", database.DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

func showMigrationStatus(cmd *cobra.Command, args []string) error {
	conn, err := openRawDatabase()
	if err != nil {
		return err
	}
	defer conn.Close()

	status, err := migrations.NewMigrationRunner(conn).Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "MIGRATION ID\tSTATUS\tAPPLIED AT\tDESCRIPTION\n")
	fmt.Fprintf(w, "------------\t------\t----------\t-----------\n")

	pending := 0
	for _, m := range status {
		statusText, appliedAt := "PENDING", "-"
		if m.Applied {
			statusText = "APPLIED"
			if m.AppliedAt != nil {
				appliedAt = m.AppliedAt.Format("2006-01-02 15:04")
			}
		} else {
			pending++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, statusText, appliedAt, m.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d migrations, %d pending\n", len(status), pending)
	return nil
}

func runMigrations(cmd *cobra.Command, args []string) error {
	conn, err := openRawDatabase()
	if err != nil {
		return err
	}
	defer conn.Close()

	applied, err := migrations.NewMigrationRunner(conn).Up(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if applied == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations.\n", applied)
	return nil
}

func rollbackMigration(cmd *cobra.Command, args []string) error {
	conn, err := openRawDatabase()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := migrations.NewMigrationRunner(conn).Rollback(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to roll back %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s.\n", args[0])
	return nil
}
