package migrations

import (
	"context"
	"database/sql"
)

// allMigrations returns all available migrations in order
func allMigrations() []Migration {
	return []Migration{
		{
			ID:          "001_create_notes",
			Description: "Create notes table",
			Up:          execAll(createNotes...),
			Down:        execAll(`DROP INDEX IF EXISTS idx_notes_created_at`, `DROP TABLE IF EXISTS notes`),
		},
		{
			ID:          "002_create_templates",
			Description: "Create templates table",
			Up:          execAll(createTemplates),
			Down:        execAll(`DROP TABLE IF EXISTS templates`),
		},
		// Add new migrations here in chronological order
	}
}

var createNotes = []string{
	`CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		note TEXT NOT NULL,
		tags TEXT,
		quiz TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at)`,
}

const createTemplates = `CREATE TABLE IF NOT EXISTS templates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

func execAll(statements ...string) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}
