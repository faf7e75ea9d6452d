// Package testing provides database and fixture helpers for pricer tests.
package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/pricer/internal/database"
)

// NewTestDB creates a migrated sqlite database in a temporary directory.
// Each call gets its own file, so tests can run in parallel. The database is
// closed automatically when the test finishes.
//
// Known schema names:
//   - "pricing" - applies pricing_schema.sql
//   - anything else - empty database
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileScratch,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}

// WriteTempFile writes content to a file under the test's temp directory and
// returns its path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
