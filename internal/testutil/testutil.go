// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hbimpianti/hbdesk/internal/db"
	"github.com/hbimpianti/hbdesk/internal/domain"
	"github.com/hbimpianti/hbdesk/internal/snapshot"
	"github.com/hbimpianti/hbdesk/internal/store"
)

// TempDB creates a migrated SQLite database in a temp dir and returns it
// with its path.
func TempDB(t *testing.T) (*db.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database, dbPath
}

// TempStore returns a store over a fresh database.
func TempStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	database, path := TempDB(t)
	return store.New(database), path
}

// WriteBackup writes s as a pretty backup file in dir.
func WriteBackup(t *testing.T, dir, filename string, s *snapshot.Snapshot) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if _, err := snapshot.Write(path, s, false); err != nil {
		t.Fatalf("Failed to write backup %s: %v", path, err)
	}
	return path
}

// WriteFile writes content to a file in dir
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads content from a file
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// SampleSnapshot is a small dataset with one record of every kind, all
// references resolving.
func SampleSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Clients: []domain.Client{
			{ID: 1, GivenName: "Anna", FamilyName: "Rossi", Phone: "3331234567"},
			{ID: 2, GivenName: "Marco", FamilyName: "Bianchi", Email: "marco@example.it"},
		},
		Materials: []domain.Material{
			{ID: 1, Description: "Cavo 3x2.5", UnitPrice: dec("1.20")},
		},
		Jobs: []domain.Job{
			{ID: 1, Date: "2024-03-04", ClientID: 1, Description: "Quadro elettrico", Hours: dec("4"), HourlyRate: dec("35")},
		},
		Quotes: []domain.Quote{
			{ID: 1, Number: "P-2024-001", Date: "2024-02-20", ClientID: 2, Subject: "Impianto"},
		},
		Invoices: []domain.Invoice{
			{ID: 1, Number: "F-2024-001", Date: "2024-03-10", ClientID: 1, JobID: 1, Subtotal: dec("140"), Tax: dec("30.80"), Total: dec("170.80")},
		},
		Appointments: []domain.Appointment{
			{ID: 1, DateTime: "2024-03-15T09:00", ClientID: 2, Kind: "sopralluogo"},
		},
		AppName: snapshot.DefaultAppName,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// AssertError asserts that an error is not nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// AssertStringContains asserts that a string contains a substring
func AssertStringContains(t *testing.T, str, substr string) {
	t.Helper()
	if !strings.Contains(str, substr) {
		t.Fatalf("Expected string to contain %q, got %q", substr, str)
	}
}
