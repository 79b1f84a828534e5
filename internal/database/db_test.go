package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, dbPath
}

func TestNew(t *testing.T) {
	db, dbPath := setupTestDB(t)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewEmptyPath(t *testing.T) {
	if _, err := New(context.Background(), ""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db, _ := setupTestDB(t)

	for _, table := range []string{"notes", "templates", "schema_migrations"} {
		var count int
		err := db.conn.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check for %s table: %v", table, err)
		}
		if count != 1 {
			t.Errorf("%s table should exist", table)
		}
	}
}

func TestCaseSensitiveLike(t *testing.T) {
	db, _ := setupTestDB(t)

	// every pooled connection must carry the pragma, not just the first one
	db.conn.SetMaxOpenConns(4)
	for i := 0; i < 4; i++ {
		var matched int
		if err := db.conn.QueryRow("SELECT 'Biology' LIKE '%bio%'").Scan(&matched); err != nil {
			t.Fatalf("LIKE query failed: %v", err)
		}
		if matched != 0 {
			t.Fatal("LIKE should be case-sensitive")
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	db, dbPath := setupTestDB(t)

	if _, err := db.conn.Exec("INSERT INTO notes (title, note) VALUES ('t', 'n')"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	db.Close()

	reopened, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	var count int
	if err := reopened.conn.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 note after reopen, got %d", count)
	}
}
