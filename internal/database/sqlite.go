package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fscope/internal/database/migrations"
	"fscope/internal/fscope"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation is one recorded CLI operation.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// SQLiteDatabase stores bookmarks and the operation log in SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

var _ fscope.BookmarkStore = (*SQLiteDatabase)(nil)

// NewSQLiteDatabase opens the database at path and applies pending
// migrations. path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &SQLiteDatabase{
		db:   db,
		path: path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured
// and migrated.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// CheckMigrations verifies the schema is at the latest version.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Close closes the underlying connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// Bookmark operations

func (s *SQLiteDatabase) FindBookmark(name string) (*fscope.Bookmark, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT id, name, path, token, created_at, refreshed_at FROM bookmarks WHERE name = ?`, name)

	b, err := scanBookmark(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding bookmark by name: %w", err)
	}
	return b, nil
}

func (s *SQLiteDatabase) ListBookmarks() ([]*fscope.Bookmark, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, name, path, token, created_at, refreshed_at FROM bookmarks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*fscope.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	return bookmarks, nil
}

func (s *SQLiteDatabase) SaveBookmark(b *fscope.Bookmark) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO bookmarks (id, name, path, token, created_at, refreshed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path = excluded.path,
			token = excluded.token,
			refreshed_at = excluded.refreshed_at`,
		b.ID, b.Name, b.Path, []byte(b.Token), b.CreatedAt.UTC(), b.RefreshedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving bookmark: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteBookmark(name string) (bool, error) {
	res, err := s.db.ExecContext(context.Background(), `DELETE FROM bookmarks WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("deleting bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting bookmark: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(row scanner) (*fscope.Bookmark, error) {
	var (
		b     fscope.Bookmark
		token []byte
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Path, &token, &b.CreatedAt, &b.RefreshedAt); err != nil {
		return nil, err
	}
	b.Token = fscope.AccessToken(token)
	return &b, nil
}

// Operation log

// CreateOperation records the start of an operation and returns it with its ID.
func (s *SQLiteDatabase) CreateOperation(operation, parameters string, startedAt time.Time) (*Operation, error) {
	res, err := s.db.ExecContext(context.Background(),
		`INSERT INTO operations (operation, parameters, status, started_at) VALUES (?, ?, 'running', ?)`,
		operation, parameters, startedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("inserting operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &Operation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  startedAt.UTC(),
	}, nil
}

// FinishOperation sets the final status of an operation.
func (s *SQLiteDatabase) FinishOperation(id int64, status string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE operations SET status = ?, finished_at = ? WHERE id = ?`, status, finishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("operation %d not found", id)
	}
	return nil
}

// ListOperations returns up to limit operations, newest first.
func (s *SQLiteDatabase) ListOperations(limit int) ([]*Operation, error) {
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT id, operation, parameters, status, started_at, finished_at
		 FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &op.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
