package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/streed/study-notes/internal/logger"
	"github.com/streed/study-notes/internal/migrations"
)

// DSN pragmas applied to every pooled connection. case_sensitive_like makes
// note search case-sensitive; busy_timeout makes concurrent writers wait.
const dsnParams = "_cslike=1&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=1"

type DB struct {
	conn *sql.DB
	path string
}

// New opens (creating if needed) the sqlite database at path and applies pending migrations.
func New(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	logger.Debug("Database path: %s", path)

	conn, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.initialize(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// DSN builds the go-sqlite3 connection string for a database file.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?%s", path, dsnParams)
}

func (db *DB) initialize(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	var version string
	if err := db.conn.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&version); err == nil {
		logger.Debug("sqlite version %s", version)
	}

	if _, err := migrations.NewMigrationRunner(db.conn).Up(ctx); err != nil {
		return err
	}
	return nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
