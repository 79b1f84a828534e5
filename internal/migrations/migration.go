package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/streed/study-notes/internal/logger"
)

// Migration is a single, forward-only schema change with an optional rollback.
type Migration struct {
	ID          string // sortable, e.g. "001_create_notes"
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
	Down        func(ctx context.Context, tx *sql.Tx) error
}

// MigrationStatus represents the status of a migration
type MigrationStatus struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Applied     bool       `json:"applied"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
}

// MigrationRunner applies migrations, each in its own transaction.
type MigrationRunner struct {
	db         *sql.DB
	migrations []Migration
}

func NewMigrationRunner(db *sql.DB) *MigrationRunner {
	return newRunner(db, allMigrations())
}

func newRunner(db *sql.DB, migrations []Migration) *MigrationRunner {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &MigrationRunner{db: db, migrations: sorted}
}

func (mr *MigrationRunner) createMigrationsTable(ctx context.Context) error {
	_, err := mr.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (mr *MigrationRunner) appliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	rows, err := mr.db.QueryContext(ctx, "SELECT id, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[id] = at
	}
	return applied, rows.Err()
}

// Up runs every pending migration and returns how many were applied.
func (mr *MigrationRunner) Up(ctx context.Context) (int, error) {
	if err := mr.createMigrationsTable(ctx); err != nil {
		return 0, err
	}

	applied, err := mr.appliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range mr.migrations {
		if _, ok := applied[m.ID]; ok {
			logger.Debug("Migration %s already applied, skipping", m.ID)
			continue
		}

		logger.Info("Running migration: %s - %s", m.ID, m.Description)
		err := mr.inTx(ctx, func(tx *sql.Tx) error {
			if err := m.Up(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (id, description, applied_at) VALUES (?, ?, ?)",
				m.ID, m.Description, time.Now().UTC())
			return err
		})
		if err != nil {
			return count, fmt.Errorf("migration %s failed: %w", m.ID, err)
		}
		count++
	}

	if count == 0 {
		logger.Debug("No pending migrations - database is up to date")
	} else {
		logger.Info("Applied %d migrations", count)
	}
	return count, nil
}

// Status lists every known migration and whether it has been applied.
func (mr *MigrationRunner) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := mr.createMigrationsTable(ctx); err != nil {
		return nil, err
	}
	applied, err := mr.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	status := make([]MigrationStatus, 0, len(mr.migrations))
	for _, m := range mr.migrations {
		s := MigrationStatus{ID: m.ID, Description: m.Description}
		if at, ok := applied[m.ID]; ok {
			s.Applied = true
			s.AppliedAt = &at
		}
		status = append(status, s)
	}
	return status, nil
}

// Rollback reverts a single applied migration.
func (mr *MigrationRunner) Rollback(ctx context.Context, id string) error {
	var target *Migration
	for i := range mr.migrations {
		if mr.migrations[i].ID == id {
			target = &mr.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found", id)
	}
	if target.Down == nil {
		return fmt.Errorf("migration %s does not support rollback", id)
	}

	applied, err := mr.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if _, ok := applied[id]; !ok {
		return fmt.Errorf("migration %s is not applied", id)
	}

	logger.Info("Rolling back migration: %s - %s", target.ID, target.Description)
	err = mr.inTx(ctx, func(tx *sql.Tx) error {
		if err := target.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE id = ?", id)
		return err
	})
	if err != nil {
		return fmt.Errorf("rollback %s failed: %w", id, err)
	}
	return nil
}

func (mr *MigrationRunner) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := mr.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			logger.Error("Failed to rollback transaction: %v", rollbackErr)
		}
		return err
	}
	return tx.Commit()
}
