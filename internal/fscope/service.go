package fscope

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Service is the entry point the UI layer talks to. Every operation of a
// Service runs on one worker goroutine, so listings, monitor setup and
// teardown, token work and moves never interleave. Callers block only while
// waiting for their result; cancelling ctx abandons the wait, not the
// operation already handed to the worker.
type Service struct {
	fsys      Filesystem
	guard     *AccessGuard
	mover     *Mover
	monitor   *Monitor
	bookmarks BookmarkStore
	logger    Logger
	clock     Clock
	idgen     IDGenerator

	requests  chan func()
	quit      chan struct{}
	wg        conc.WaitGroup
	closeOnce sync.Once
}

// NewService creates a Service and starts its worker. The caller must call
// Close when done. bookmarks may be nil if bookmark operations are unused.
func NewService(fsys Filesystem, guard *AccessGuard, monitor *Monitor, bookmarks BookmarkStore, logger Logger, clock Clock, idgen IDGenerator) *Service {
	s := &Service{
		fsys:      fsys,
		guard:     guard,
		mover:     NewMover(fsys, guard, logger),
		monitor:   monitor,
		bookmarks: bookmarks,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		requests:  make(chan func()),
		quit:      make(chan struct{}),
	}
	s.wg.Go(s.loop)
	return s
}

func (s *Service) loop() {
	for {
		select {
		case fn := <-s.requests:
			fn()
		case <-s.quit:
			return
		}
	}
}

// call runs fn on the worker and waits for its result. A panic in fn is
// returned to the caller as ErrRequestPanicked.
func call[T any](ctx context.Context, s *Service, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	done := make(chan result, 1)

	select {
	case s.requests <- func() {
		var (
			r  result
			pc panics.Catcher
		)
		pc.Try(func() { r.v, r.err = fn() })
		if rec := pc.Recovered(); rec != nil {
			s.logger.Error("service request panicked", "panic", rec.Value)
			r = result{err: fmt.Errorf("%w: %w", ErrRequestPanicked, rec.AsError())}
		}
		done <- r
	}:
	case <-s.quit:
		return zero, ErrServiceClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops the worker and the active monitor subscription.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.wg.Wait()
		s.monitor.Stop()
	})
}

// Guard returns the access guard used by the service.
func (s *Service) Guard() *AccessGuard {
	return s.guard
}

// Monitor returns the monitor used by the service.
func (s *Service) Monitor() *Monitor {
	return s.monitor
}

// ListDirectory lists dir. See ListDirectory.
func (s *Service) ListDirectory(ctx context.Context, dir string, includeHidden bool) ([]*DirectoryNode, error) {
	return call(ctx, s, func() ([]*DirectoryNode, error) {
		s.logger.Debug("listing directory", "path", dir, "hidden", includeHidden)
		return ListDirectory(s.fsys, dir, includeHidden)
	})
}

// Watch replaces the current subscription with one for root.
func (s *Service) Watch(ctx context.Context, root string) (*Stream, error) {
	return call(ctx, s, func() (*Stream, error) {
		return s.monitor.Watch(root), nil
	})
}

// StopWatching cancels the current subscription.
func (s *Service) StopWatching(ctx context.Context) error {
	_, err := call(ctx, s, func() (struct{}, error) {
		s.monitor.Stop()
		return struct{}{}, nil
	})
	return err
}

// CreateToken creates an access token for path.
func (s *Service) CreateToken(ctx context.Context, path string) (AccessToken, error) {
	return call(ctx, s, func() (AccessToken, error) {
		return s.guard.CreateToken(path)
	})
}

// ResolveToken resolves tok to its current location.
func (s *Service) ResolveToken(ctx context.Context, tok AccessToken) (ResolvedLocation, error) {
	return call(ctx, s, func() (ResolvedLocation, error) {
		return s.guard.ResolveToken(tok)
	})
}

// CanMove reports whether src may be moved to dst.
func (s *Service) CanMove(ctx context.Context, src, dst string) (bool, error) {
	return call(ctx, s, func() (bool, error) {
		return s.mover.CanMove(src, dst), nil
	})
}

// Move moves src to dst.
func (s *Service) Move(ctx context.Context, src, dst string) error {
	_, err := call(ctx, s, func() (struct{}, error) {
		return struct{}{}, s.mover.Move(src, dst)
	})
	return err
}

// AddBookmark creates a token for path and stores it under name, replacing
// any bookmark of the same name.
func (s *Service) AddBookmark(ctx context.Context, name, path string) (*Bookmark, error) {
	return call(ctx, s, func() (*Bookmark, error) {
		if s.bookmarks == nil {
			return nil, fmt.Errorf("no bookmark store configured")
		}
		tok, err := s.guard.CreateToken(path)
		if err != nil {
			return nil, err
		}
		loc, err := s.guard.ResolveToken(tok)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now().UTC()
		b := &Bookmark{
			ID:          s.idgen.New(),
			Name:        name,
			Path:        loc.Path,
			Token:       tok,
			CreatedAt:   now,
			RefreshedAt: now,
		}
		if err := s.bookmarks.SaveBookmark(b); err != nil {
			return nil, fmt.Errorf("saving bookmark: %w", err)
		}
		s.logger.Info("bookmark added", "name", name, "path", loc.Path)
		return b, nil
	})
}

// OpenedBookmark is a bookmark together with the location it resolved to.
type OpenedBookmark struct {
	Bookmark *Bookmark
	Location ResolvedLocation
	// Refreshed is set when a stale token was replaced by a fresh one.
	Refreshed bool
}

// OpenBookmark resolves the named bookmark. A stale token is replaced by a
// fresh one for the new location and the bookmark is saved again.
func (s *Service) OpenBookmark(ctx context.Context, name string) (*OpenedBookmark, error) {
	return call(ctx, s, func() (*OpenedBookmark, error) {
		b, err := s.findBookmark(name)
		if err != nil {
			return nil, err
		}

		loc, err := s.guard.ResolveToken(b.Token)
		if err != nil {
			return nil, err
		}
		if !loc.Stale {
			return &OpenedBookmark{Bookmark: b, Location: loc}, nil
		}

		tok, err := s.guard.CreateToken(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("refreshing stale bookmark %q: %w", name, err)
		}
		b.Token = tok
		b.Path = loc.Path
		b.RefreshedAt = s.clock.Now().UTC()
		if err := s.bookmarks.SaveBookmark(b); err != nil {
			return nil, fmt.Errorf("saving refreshed bookmark: %w", err)
		}
		s.logger.Info("bookmark refreshed", "name", name, "path", loc.Path)

		loc.Stale = false
		return &OpenedBookmark{Bookmark: b, Location: loc, Refreshed: true}, nil
	})
}

// Bookmarks returns all stored bookmarks.
func (s *Service) Bookmarks(ctx context.Context) ([]*Bookmark, error) {
	return call(ctx, s, func() ([]*Bookmark, error) {
		if s.bookmarks == nil {
			return nil, fmt.Errorf("no bookmark store configured")
		}
		return s.bookmarks.ListBookmarks()
	})
}

// RemoveBookmark deletes the named bookmark.
func (s *Service) RemoveBookmark(ctx context.Context, name string) error {
	_, err := call(ctx, s, func() (struct{}, error) {
		if s.bookmarks == nil {
			return struct{}{}, fmt.Errorf("no bookmark store configured")
		}
		found, err := s.bookmarks.DeleteBookmark(name)
		if err != nil {
			return struct{}{}, fmt.Errorf("deleting bookmark: %w", err)
		}
		if !found {
			return struct{}{}, fmt.Errorf("%w: %s", ErrBookmarkNotFound, name)
		}
		s.logger.Info("bookmark removed", "name", name)
		return struct{}{}, nil
	})
	return err
}

func (s *Service) findBookmark(name string) (*Bookmark, error) {
	if s.bookmarks == nil {
		return nil, fmt.Errorf("no bookmark store configured")
	}
	b, err := s.bookmarks.FindBookmark(name)
	if err != nil {
		return nil, fmt.Errorf("finding bookmark: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrBookmarkNotFound, name)
	}
	return b, nil
}
