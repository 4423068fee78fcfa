package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/hbimpianti/hbdesk/internal/db"
)

func TestRequiresMigrationError(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	// Record only the baseline as applied
	_, err = database.Exec(`
		CREATE TABLE schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`)
	if err != nil {
		t.Fatalf("could not create schema_migrations: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO schema_migrations (version) VALUES ('000001_baseline.sql')`); err != nil {
		t.Fatalf("could not insert migration: %v", err)
	}

	migErr := database.RequiresMigrationError()
	if migErr == nil {
		t.Fatal("expected migration error, got nil")
	}

	errStr := migErr.Error()
	for _, want := range []string{dbPath, "000001_baseline.sql", "1 pending migration", "hbdeskadm migrate"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should contain %q, got: %s", want, errStr)
		}
	}
}

func TestRequiresMigrationErrorFreshDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	migErr := database.RequiresMigrationError()
	if migErr == nil {
		t.Fatal("expected migration error for fresh db, got nil")
	}
	if !strings.Contains(migErr.Error(), "version: none") {
		t.Errorf("fresh db error should contain 'version: none', got: %s", migErr)
	}
}

func TestMigrateWithInfo(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %v, want 2 migrations", applied)
	}

	again, err := database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second migrate applied %v, want none", again)
	}

	if migErr := database.RequiresMigrationError(); migErr != nil {
		t.Errorf("expected nil for fully migrated db, got: %v", migErr)
	}

	var collections int
	if err := database.QueryRow("SELECT COUNT(*) FROM collections").Scan(&collections); err != nil {
		t.Fatalf("could not count collections: %v", err)
	}
	if collections != 6 {
		t.Errorf("collections = %d, want 6 seeded rows", collections)
	}
}

func TestCollectionsRejectNonArrayData(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}

	if _, err := database.Exec(`UPDATE collections SET data = '{}' WHERE name = 'clients'`); err == nil {
		t.Error("expected CHECK constraint to reject a JSON object")
	}
	if _, err := database.Exec(`INSERT INTO collections (name) VALUES ('widgets')`); err == nil {
		t.Error("expected CHECK constraint to reject an unknown collection")
	}
}
