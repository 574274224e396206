package fscope_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	fsimpl "fscope/internal/fs"
	"fscope/internal/fscope"
	"fscope/internal/testutil"
)

const eventTimeout = 5 * time.Second

func newMonitor(t *testing.T, latency time.Duration) *fscope.Monitor {
	t.Helper()
	m := fscope.NewMonitor(fsimpl.NewOSFilesystem(), fscope.MonitorConfig{
		Latency: latency,
		Ignore:  fsimpl.NewIgnoreMatcher([]string{"node_modules"}),
		Buffer:  16,
	}, fscope.NewNopLogger())
	t.Cleanup(m.Stop)
	return m
}

// waitFor reads events until one for path carrying flags arrives and
// returns it.
func waitFor(t *testing.T, s *fscope.Stream, path string, flags fscope.EventFlags) fscope.ChangeEvent {
	t.Helper()
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatalf("stream ended before event for %s: %v", path, s.Err())
			}
			if ev.Path == path && ev.Flags.Has(flags) {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s within %s", path, eventTimeout)
		}
	}
}

// collect reads events until none arrive for quiet.
func collect(s *fscope.Stream, quiet time.Duration) []fscope.ChangeEvent {
	var events []fscope.ChangeEvent
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(quiet):
			return events
		}
	}
}

// assertSeen checks that events include want and exclude unwanted.
func assertSeen(t *testing.T, events []fscope.ChangeEvent, want, unwanted string) {
	t.Helper()
	seen := false
	for _, ev := range events {
		switch ev.Path {
		case want:
			seen = true
		case unwanted:
			t.Errorf("received event inside ignored directory: %+v", ev)
		}
	}
	if !seen {
		t.Errorf("no event for %s in %+v", want, events)
	}
}

func TestMonitor_DeliversEvents(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	m := newMonitor(t, 20*time.Millisecond)

	s := m.Watch(root)
	if err := s.Err(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if s.Root() != root {
		t.Errorf("Root() = %q, want %q", s.Root(), root)
	}

	file := filepath.Join(root, "new.txt")
	writeFile(t, file, "hello")

	ev := waitFor(t, s, file, fscope.EventCreated)
	if !ev.Flags.Has(fscope.EventIsFile) {
		t.Errorf("Flags = %v, want file", ev.Flags)
	}
	if ev.ID == 0 {
		t.Error("ID = 0, want a sequence number")
	}

	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}
	ev2 := waitFor(t, s, file, fscope.EventRemoved)
	if ev2.ID <= ev.ID {
		t.Errorf("IDs not increasing: %d then %d", ev.ID, ev2.ID)
	}
}

func TestMonitor_CoalescesWithinWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		latency time.Duration
	}{
		{name: "explicit window", latency: 300 * time.Millisecond},
		{name: "zero selects default", latency: 0},
		{name: "negative selects default", latency: -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := tempDir(t)
			m := newMonitor(t, tt.latency)
			s := m.Watch(root)
			if err := s.Err(); err != nil {
				t.Fatalf("Watch() error = %v", err)
			}

			file := filepath.Join(root, "busy.txt")
			f, err := os.Create(file)
			if err != nil {
				t.Fatal(err)
			}
			for range 5 {
				if _, err := f.WriteString("x"); err != nil {
					t.Fatal(err)
				}
			}
			f.Close()

			events := collect(s, time.Second)
			var forFile []fscope.ChangeEvent
			for _, ev := range events {
				if ev.Path == file {
					forFile = append(forFile, ev)
				}
			}
			if len(forFile) != 1 {
				t.Fatalf("got %d events for %s, want 1 coalesced event: %+v", len(forFile), file, events)
			}
			want := fscope.EventCreated | fscope.EventModified | fscope.EventIsFile
			if !forFile[0].Flags.Has(want) {
				t.Errorf("Flags = %v, want %v", forFile[0].Flags, want)
			}
		})
	}
}

func TestMonitor_WatchesNewSubdirectories(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	m := newMonitor(t, 10*time.Millisecond)
	s := m.Watch(root)
	if err := s.Err(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	sub := filepath.Join(root, "sub")
	mkdir(t, sub)
	waitFor(t, s, sub, fscope.EventCreated|fscope.EventIsDir)

	nested := filepath.Join(sub, "inner.txt")
	writeFile(t, nested, "")
	waitFor(t, s, nested, fscope.EventCreated|fscope.EventIsFile)
}

func TestMonitor_WatchWhileTreeChanges(t *testing.T) {
	t.Parallel()

	logger := testutil.NewRecordingLogger()
	m := fscope.NewMonitor(fsimpl.NewOSFilesystem(), fscope.MonitorConfig{Latency: time.Millisecond}, logger)
	t.Cleanup(m.Stop)

	for i := range 50 {
		root := tempDir(t)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := range 5 {
				os.Mkdir(filepath.Join(root, fmt.Sprintf("d%d-%d", i, j)), 0755)
			}
		}()

		s := m.Watch(root)
		if err := s.Err(); err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
		<-done
		s.Cancel()
	}

	if m.Live() != 0 {
		t.Errorf("Live() = %d, want 0", m.Live())
	}
	if !logger.Contains("INFO monitor started") {
		t.Errorf("start not logged, got %v", logger.Entries())
	}
}

func TestMonitor_ExistingSubtreeAndIgnore(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	deep := filepath.Join(root, "a", "b")
	mkdir(t, deep)
	ignored := filepath.Join(root, "node_modules")
	mkdir(t, ignored)

	m := newMonitor(t, 10*time.Millisecond)
	s := m.Watch(root)
	if err := s.Err(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeFile(t, filepath.Join(ignored, "skip.js"), "")
	file := filepath.Join(deep, "found.txt")
	writeFile(t, file, "")

	assertSeen(t, collect(s, 500*time.Millisecond), file, filepath.Join(ignored, "skip.js"))
}

func TestMonitor_CancelReleasesSubscription(t *testing.T) {
	t.Parallel()

	logger := testutil.NewRecordingLogger()
	m := fscope.NewMonitor(fsimpl.NewOSFilesystem(), fscope.MonitorConfig{Latency: fscope.DefaultLatency}, logger)
	t.Cleanup(m.Stop)
	s := m.Watch(tempDir(t))
	if err := s.Err(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if !logger.Contains("INFO monitor started stream=" + s.ID()) {
		t.Errorf("start not logged with stream id, got %v", logger.Entries())
	}
	if m.Live() != 1 {
		t.Errorf("Live() = %d, want 1", m.Live())
	}

	s.Cancel()
	if m.Live() != 0 {
		t.Errorf("Live() after Cancel = %d, want 0", m.Live())
	}
	if _, ok := <-s.Events(); ok {
		t.Error("Events() still open after Cancel")
	}
	if s.Err() != nil {
		t.Errorf("Err() after Cancel = %v, want nil", s.Err())
	}

	s.Cancel()
	if m.Live() != 0 {
		t.Errorf("Live() after second Cancel = %d, want 0", m.Live())
	}
}

func TestMonitor_InvalidRoot(t *testing.T) {
	t.Parallel()

	dir := tempDir(t)
	file := filepath.Join(dir, "file")
	writeFile(t, file, "")

	tests := []struct {
		name string
		root string
	}{
		{name: "missing", root: filepath.Join(dir, "missing")},
		{name: "not a directory", root: file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMonitor(t, fscope.DefaultLatency)
			s := m.Watch(tt.root)

			if _, ok := <-s.Events(); ok {
				t.Error("Events() delivered on a failed stream")
			}
			if s.Err() == nil {
				t.Error("Err() = nil, want the start failure")
			}
			if m.Live() != 0 {
				t.Errorf("Live() = %d, want 0", m.Live())
			}
			if m.Current() != nil {
				t.Error("Current() != nil after failed Watch")
			}
			s.Cancel()
		})
	}
}

func TestMonitor_WatchReplacesPrevious(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, 10*time.Millisecond)
	first := m.Watch(tempDir(t))
	second := m.Watch(tempDir(t))

	if _, ok := <-first.Events(); ok {
		t.Error("first stream still open after second Watch")
	}
	if m.Live() != 1 {
		t.Errorf("Live() = %d, want 1", m.Live())
	}
	if m.Current() != second {
		t.Error("Current() is not the latest stream")
	}

	m.Stop()
	if m.Live() != 0 {
		t.Errorf("Live() after Stop = %d, want 0", m.Live())
	}
}

func TestMonitor_BreakingIterationCancels(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	m := newMonitor(t, 10*time.Millisecond)
	s := m.Watch(root)
	if err := s.Err(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	done := make(chan fscope.ChangeEvent, 1)
	go func() {
		for ev := range s.All() {
			done <- ev
			break
		}
	}()

	writeFile(t, filepath.Join(root, "trigger"), "")
	select {
	case <-done:
	case <-time.After(eventTimeout):
		t.Fatal("no event received")
	}

	deadline := time.Now().Add(eventTimeout)
	for m.Live() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Live() != 0 {
		t.Errorf("Live() = %d after breaking out of All, want 0", m.Live())
	}
}

func TestMonitor_LoadIgnorePerRoot(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	writeFile(t, filepath.Join(root, fsimpl.IgnoreFileName), "build\n")
	build := filepath.Join(root, "build")
	mkdir(t, build)
	src := filepath.Join(root, "src")
	mkdir(t, src)

	m := fscope.NewMonitor(fsimpl.NewOSFilesystem(), fscope.MonitorConfig{
		Latency: 10 * time.Millisecond,
		LoadIgnore: func(root string) (fscope.PathMatcher, error) {
			return fsimpl.LoadIgnoreMatcher(root, nil)
		},
	}, fscope.NewNopLogger())
	t.Cleanup(m.Stop)

	s := m.Watch(root)
	if err := s.Err(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeFile(t, filepath.Join(build, "out.o"), "")
	file := filepath.Join(src, "main.c")
	writeFile(t, file, "")

	assertSeen(t, collect(s, 500*time.Millisecond), file, filepath.Join(build, "out.o"))
}

func TestMonitor_IgnoredFilesNotDelivered(t *testing.T) {
	t.Parallel()

	root := tempDir(t)
	m := fscope.NewMonitor(fsimpl.NewOSFilesystem(), fscope.MonitorConfig{
		Latency: 10 * time.Millisecond,
		Ignore:  fsimpl.NewIgnoreMatcher([]string{"*.swp"}),
	}, fscope.NewNopLogger())
	t.Cleanup(m.Stop)

	s := m.Watch(root)
	if err := s.Err(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeFile(t, filepath.Join(root, ".notes.txt.swp"), "")
	file := filepath.Join(root, "notes.txt")
	writeFile(t, file, "")

	assertSeen(t, collect(s, 500*time.Millisecond), file, filepath.Join(root, ".notes.txt.swp"))
}
