package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fscope/internal/config"
)

// FileName is the name of the SQLite file inside the configured data dir.
const FileName = "fscope.db"

// NewDatabaseFromConfig opens the database selected by cfg.Type. "sqlite"
// (the default) keeps FileName under cfg.DataDir, creating the directory
// when needed; "memory" lives only as long as the process.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "memory":
		return NewSQLiteDatabase(":memory:")
	case "sqlite", "":
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir required for sqlite database")
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return NewSQLiteDatabase(filepath.Join(cfg.DataDir, FileName))
}
