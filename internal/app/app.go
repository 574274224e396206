package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fscope/internal/config"
	"fscope/internal/database"
	"fscope/internal/fs"
	"fscope/internal/fscope"
	"fscope/internal/metrics"
	"fscope/internal/token"
)

// App is the application layer between the CLI and fscope.Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the DB lifecycle on Close.
type App struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	service *fscope.Service
	metrics *metrics.Metrics
	clock   fscope.Clock
	op      *Operation
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Move", "AddBookmark").
// verbose lowers the log threshold to debug.
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string, verbose bool) (*App, error) {
	fsys := fs.NewOSFilesystem()

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	sealer, err := token.NewSealerFromConfig(cfg.Keys)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token sealer: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	l, logFile, err := newLogger(cfg.LogDir, opID, level)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	clock := fscope.RealClock{}
	idgen := fscope.UUIDGenerator{}

	guard := fscope.NewAccessGuard(fsys, sealer, fscope.AccessConfig{
		MaxActive: cfg.Access.MaxActive,
		Sandbox:   cfg.Access.Sandbox,
	}, clock, idgen, logger)

	ignore := cfg.Monitor.Ignore
	monitor := fscope.NewMonitor(fsys, fscope.MonitorConfig{
		Latency: cfg.Monitor.Latency(),
		LoadIgnore: func(root string) (fscope.PathMatcher, error) {
			return fs.LoadIgnoreMatcher(root, ignore)
		},
		Buffer: 64,
		IDs:    idgen,
	}, logger)

	svc := fscope.NewService(fsys, guard, monitor, db, logger, clock, idgen)

	return &App{
		cfg:     cfg,
		db:      db,
		service: svc,
		metrics: metrics.New(guard, monitor),
		clock:   clock,
		op:      NewOperation(operation),
		logFile: logFile,
	}, nil
}

// persistOperation saves the operation with args as its parameters, giving
// it an ID. Only commands that change state call it.
func (a *App) persistOperation(args ...string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = formatParameters(args)
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters, a.clock.Now())
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// record marks the current operation failed when err is non-nil and returns err.
func (a *App) record(err error) error {
	a.op.Fail(err)
	return err
}

// ListDirectory lists the directory at rawPath. Hidden entries are included
// when all is set or the browser config shows them.
func (a *App) ListDirectory(ctx context.Context, rawPath string, all bool) ([]*fscope.DirectoryNode, error) {
	nodes, err := a.service.ListDirectory(ctx, rawPath, all || a.cfg.Browser.ShowHidden)
	a.metrics.ObserveListing(err)
	return nodes, err
}

// Watch starts monitoring the subtree at rawPath.
func (a *App) Watch(ctx context.Context, rawPath string) (*fscope.Stream, error) {
	return a.service.Watch(ctx, rawPath)
}

// AddBookmark stores a token for rawPath under name.
func (a *App) AddBookmark(ctx context.Context, name, rawPath string) (*fscope.Bookmark, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if err := a.persistOperation(name, absPath); err != nil {
		return nil, err
	}
	b, err := a.service.AddBookmark(ctx, name, absPath)
	return b, a.record(err)
}

// OpenBookmark resolves the named bookmark, refreshing it when stale. A
// refresh rewrites the bookmark, so it is recorded in history.
func (a *App) OpenBookmark(ctx context.Context, name string) (*fscope.OpenedBookmark, error) {
	opened, err := a.service.OpenBookmark(ctx, name)
	if err != nil || !opened.Refreshed {
		return opened, err
	}
	if err := a.persistOperation(name, opened.Bookmark.Path); err != nil {
		return nil, err
	}
	return opened, nil
}

// Bookmarks returns all stored bookmarks.
func (a *App) Bookmarks(ctx context.Context) ([]*fscope.Bookmark, error) {
	return a.service.Bookmarks(ctx)
}

// RemoveBookmark deletes the named bookmark.
func (a *App) RemoveBookmark(ctx context.Context, name string) error {
	if err := a.persistOperation(name); err != nil {
		return err
	}
	return a.record(a.service.RemoveBookmark(ctx, name))
}

// CanMove reports whether rawSrc may be moved to rawDst.
func (a *App) CanMove(ctx context.Context, rawSrc, rawDst string) (bool, error) {
	return a.service.CanMove(ctx, rawSrc, rawDst)
}

// Move moves rawSrc to rawDst.
func (a *App) Move(ctx context.Context, rawSrc, rawDst string) error {
	if err := a.persistOperation(rawSrc, rawDst); err != nil {
		return err
	}
	err := a.service.Move(ctx, rawSrc, rawDst)
	a.metrics.ObserveMove(err)
	return a.record(err)
}

// GetHistory returns the most recent recorded operations.
func (a *App) GetHistory(limit int) ([]*database.Operation, error) {
	return a.db.ListOperations(limit)
}

// AccessStats returns the scoped access counters of this process.
func (a *App) AccessStats() fscope.AccessStats {
	return a.service.Guard().Stats()
}

// Metrics returns the Prometheus collectors of this process.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close finalizes the operation and closes all resources.
func (a *App) Close() error {
	var firstErr error

	a.service.Close()

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status, a.clock.Now()); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
