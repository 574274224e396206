package testutil

import (
	"path/filepath"
	"testing"

	"fscope/internal/database"
)

// NewTestDatabase returns a migrated in-memory database closed at test end.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()
	return openDatabase(t, ":memory:")
}

// NewFileDatabase returns a migrated database stored in a temp dir, along
// with its path so a test can reopen it.
func NewFileDatabase(t *testing.T) (*database.SQLiteDatabase, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), database.FileName)
	return openDatabase(t, path), path
}

func openDatabase(t *testing.T, path string) *database.SQLiteDatabase {
	t.Helper()
	db, err := database.NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("opening database %s: %v", path, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
