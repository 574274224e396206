package fscope

import (
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"
)

// DefaultLatency is the coalescing window used when none is configured.
const DefaultLatency = 500 * time.Millisecond

var errWatcherClosed = errors.New("notification source closed")

// PathMatcher reports whether a path relative to the watched root is excluded
// from monitoring.
type PathMatcher interface {
	Match(relativePath string) bool
}

// MonitorConfig holds Monitor settings.
type MonitorConfig struct {
	// Latency is the batching window. Events arriving within it are
	// delivered together. Zero or negative selects DefaultLatency.
	Latency time.Duration
	// Ignore excludes directories from the recursive watch set. May be nil.
	Ignore PathMatcher
	// LoadIgnore, when set, builds the matcher for each watched root and
	// takes precedence over Ignore.
	LoadIgnore func(root string) (PathMatcher, error)
	// Buffer is the capacity of a stream's event channel.
	Buffer int
	// IDs names streams. Defaults to UUIDGenerator.
	IDs IDGenerator
}

// Monitor subscribes to change notifications for a directory subtree. A
// Monitor owns at most one live subscription; starting a new one tears down
// the previous one first.
type Monitor struct {
	fsys   Filesystem
	cfg    MonitorConfig
	logger Logger

	mu      sync.Mutex
	current *Stream

	seq  atomic.Uint64
	live atomic.Int64
}

// NewMonitor creates a Monitor. It does not watch anything until Watch.
func NewMonitor(fsys Filesystem, cfg MonitorConfig, logger Logger) *Monitor {
	if cfg.Latency <= 0 {
		cfg.Latency = DefaultLatency
	}
	if cfg.IDs == nil {
		cfg.IDs = UUIDGenerator{}
	}
	return &Monitor{
		fsys:   fsys,
		cfg:    cfg,
		logger: logger,
	}
}

// Watch starts monitoring root and returns the stream of its changes. Any
// stream previously returned by this Monitor is cancelled first. When the
// subscription cannot be created the returned stream is already terminated
// and Err reports the cause.
func (m *Monitor) Watch(root string) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Cancel()
		m.current = nil
	}

	s, err := m.open(root)
	if err != nil {
		m.logger.Warn("monitor failed to start", "root", root, "error", err)
		return terminatedStream(err)
	}
	m.current = s
	return s
}

// Stop cancels the current stream, if any.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Cancel()
		m.current = nil
	}
}

// Current returns the stream started by the last successful Watch, or nil.
func (m *Monitor) Current() *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Live returns the number of native subscriptions currently open.
func (m *Monitor) Live() int {
	return int(m.live.Load())
}

func (m *Monitor) open(root string) (*Stream, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := m.fsys.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	ignore := m.cfg.Ignore
	if m.cfg.LoadIgnore != nil {
		matcher, err := m.cfg.LoadIgnore(absRoot)
		if err != nil {
			m.logger.Warn("cannot load ignore patterns", "root", absRoot, "error", err)
		} else {
			ignore = matcher
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	m.live.Add(1)

	id := m.cfg.IDs.New()
	s := &Stream{
		id:      id,
		root:    absRoot,
		fsys:    m.fsys,
		ignore:  ignore,
		latency: m.cfg.Latency,
		logger:  m.logger.With("stream", id),
		seq:     &m.seq,
		watcher: watcher,
		release: func() { m.live.Add(-1) },
		events:  make(chan ChangeEvent, max(m.cfg.Buffer, 0)),
		stop:    make(chan struct{}),
		dirs:    make(map[string]struct{}),
	}

	if err := watcher.Add(absRoot); err != nil {
		s.closeNative()
		return nil, fmt.Errorf("watching root: %w", err)
	}
	s.dirs[absRoot] = struct{}{}
	s.addTree(absRoot)
	watched := len(s.dirs)

	s.wg.Go(s.run)

	s.logger.Info("monitor started", "root", absRoot, "dirs", watched)
	return s, nil
}

// Stream is a single-subscriber sequence of change events. It ends only
// when cancelled, or immediately if the subscription could not be created.
type Stream struct {
	id      string
	root    string
	fsys    Filesystem
	ignore  PathMatcher
	latency time.Duration
	logger  Logger
	seq     *atomic.Uint64

	watcher *fsnotify.Watcher
	release func()

	events chan ChangeEvent
	stop   chan struct{}
	wg     conc.WaitGroup

	cancelOnce sync.Once
	nativeOnce sync.Once

	errMu sync.Mutex
	err   error

	// dirs is owned by the run loop once it starts.
	dirs map[string]struct{}
}

func terminatedStream(err error) *Stream {
	s := &Stream{
		events: make(chan ChangeEvent),
		stop:   make(chan struct{}),
		err:    err,
	}
	close(s.events)
	s.cancelOnce.Do(func() { close(s.stop) })
	return s
}

// ID identifies the subscription in logs.
func (s *Stream) ID() string {
	return s.id
}

// Root returns the absolute path being watched.
func (s *Stream) Root() string {
	return s.root
}

// Events returns the channel events are published on. It is closed when the
// stream ends.
func (s *Stream) Events() <-chan ChangeEvent {
	return s.events
}

// All returns the events as a lazy sequence. Stopping the iteration early
// cancels the stream.
func (s *Stream) All() iter.Seq[ChangeEvent] {
	return func(yield func(ChangeEvent) bool) {
		for ev := range s.events {
			if !yield(ev) {
				s.Cancel()
				return
			}
		}
	}
}

// Err reports why the stream ended without being cancelled, if it did.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Cancel stops the stream and releases the native subscription before
// returning. It is safe to call more than once and from any goroutine.
func (s *Stream) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		s.closeNative()
	})
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) closeNative() {
	s.nativeOnce.Do(func() {
		if s.watcher == nil {
			return
		}
		if err := s.watcher.Close(); err != nil {
			s.logger.Warn("closing watcher", "error", err)
		}
		s.release()
		s.logger.Debug("monitor released", "root", s.root)
	})
}

func (s *Stream) run() {
	defer close(s.events)
	defer s.closeNative()

	var (
		batch  []ChangeEvent
		index  = make(map[string]int)
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	flush := func() bool {
		for _, ev := range batch {
			ev.ID = s.seq.Add(1)
			select {
			case s.events <- ev:
			case <-s.stop:
				return false
			}
		}
		if len(batch) > 0 {
			s.logger.Debug("batch delivered", "events", len(batch))
		}
		batch = batch[:0]
		clear(index)
		timerC = nil
		return true
	}

	for {
		select {
		case <-s.stop:
			return

		case raw, ok := <-s.watcher.Events:
			if !ok {
				s.setErr(errWatcherClosed)
				return
			}
			if s.ignored(raw.Name) {
				continue
			}
			ev, ok := toChangeEvent(raw, s.classify(raw))
			if !ok {
				continue
			}
			if i, seen := index[ev.Path]; seen {
				batch[i] = batch[i].merge(ev)
			} else {
				index[ev.Path] = len(batch)
				batch = append(batch, ev)
			}

			if timerC == nil {
				timer = time.NewTimer(s.latency)
				timerC = timer.C
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				s.setErr(errWatcherClosed)
				return
			}
			s.logger.Warn("watcher error", "error", err)

		case <-timerC:
			if !flush() {
				return
			}
		}
	}
}

// classify reports whether raw concerns a directory and keeps the recursive
// watch set current.
func (s *Stream) classify(raw fsnotify.Event) bool {
	if info, err := s.fsys.Lstat(raw.Name); err == nil {
		if !info.IsDir() {
			return false
		}
		if raw.Has(fsnotify.Create) {
			if _, known := s.dirs[raw.Name]; !known && !s.ignored(raw.Name) {
				s.watchDir(raw.Name)
				s.addTree(raw.Name)
			}
		}
		return true
	}

	// Gone: fall back to what we knew about it.
	_, known := s.dirs[raw.Name]
	if known && (raw.Has(fsnotify.Remove) || raw.Has(fsnotify.Rename)) {
		delete(s.dirs, raw.Name)
		_ = s.watcher.Remove(raw.Name)
	}
	return known
}

// addTree watches every non-ignored directory below dir.
func (s *Stream) addTree(dir string) {
	entries, err := s.fsys.ReadDir(dir)
	if err != nil {
		s.logger.Warn("cannot list directory for watching", "path", dir, "error", err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(dir, entry.Name())
		if s.ignored(child) {
			continue
		}
		if s.watchDir(child) {
			s.addTree(child)
		}
	}
}

func (s *Stream) watchDir(dir string) bool {
	if err := s.watcher.Add(dir); err != nil {
		s.logger.Warn("cannot watch directory", "path", dir, "error", err)
		return false
	}
	s.dirs[dir] = struct{}{}
	return true
}

func (s *Stream) ignored(path string) bool {
	if s.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return s.ignore.Match(rel)
}
