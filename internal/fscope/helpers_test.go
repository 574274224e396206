package fscope_test

import (
	"os"
	"path/filepath"
	"testing"

	"fscope/internal/fscope"
	"fscope/internal/testutil"
	"fscope/internal/token"
)

func newGuard(t *testing.T, fsys fscope.Filesystem, cfg fscope.AccessConfig) *fscope.AccessGuard {
	t.Helper()
	return fscope.NewAccessGuard(fsys, token.NewTestSealer(), cfg, testutil.FixedClock(), testutil.NewStubIDGenerator(), fscope.NewNopLogger())
}

// tempDir returns a fresh temp directory with symlinks resolved, so paths
// reported back by the filesystem compare equal to the ones built here.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}
