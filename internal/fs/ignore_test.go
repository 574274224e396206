package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIgnoreMatcher_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		patterns []string
		rel      string
		want     bool
	}{
		{name: "name at top level", patterns: []string{"node_modules"}, rel: "node_modules", want: true},
		{name: "name nested", patterns: []string{"node_modules"}, rel: filepath.Join("web", "node_modules"), want: true},
		{name: "file below ignored dir", patterns: []string{"node_modules"}, rel: filepath.Join("web", "node_modules", "react", "index.js"), want: true},
		{name: "name is not a substring match", patterns: []string{"node_modules"}, rel: "node_modules_old", want: false},
		{name: "glob on basename", patterns: []string{"*.log"}, rel: filepath.Join("var", "app.log"), want: true},
		{name: "glob misses other extension", patterns: []string{"*.log"}, rel: "app.txt", want: false},
		{name: "character class", patterns: []string{"*.[oa]"}, rel: filepath.Join("obj", "main.o"), want: true},
		{name: "leading slash anchors", patterns: []string{"/build"}, rel: "build", want: true},
		{name: "anchored covers subtree", patterns: []string{"/build"}, rel: filepath.Join("build", "out", "x.o"), want: true},
		{name: "anchored misses nested", patterns: []string{"/build"}, rel: filepath.Join("src", "build"), want: false},
		{name: "nested path", patterns: []string{"web/dist"}, rel: filepath.Join("web", "dist", "app.js"), want: true},
		{name: "glob under directory", patterns: []string{"logs/*.gz"}, rel: filepath.Join("logs", "old.gz"), want: true},
		{name: "glob under directory is anchored", patterns: []string{"logs/*.gz"}, rel: filepath.Join("app", "logs", "old.gz"), want: false},
		{name: "double star", patterns: []string{"**/tmp"}, rel: filepath.Join("a", "b", "tmp", "x"), want: true},
		{name: "trailing slash stripped", patterns: []string{"cache/"}, rel: filepath.Join("a", "cache"), want: true},
		{name: "negation re-includes", patterns: []string{"*.log", "!keep.log"}, rel: "keep.log", want: false},
		{name: "negation leaves others", patterns: []string{"*.log", "!keep.log"}, rel: "drop.log", want: true},
		{name: "later pattern excludes again", patterns: []string{"*.log", "!keep.log", "keep.*"}, rel: "keep.log", want: true},
		{name: "negation alone excludes nothing", patterns: []string{"!vendor"}, rel: "vendor", want: false},
		{name: "root never excluded", patterns: []string{"*"}, rel: ".", want: false},
		{name: "outside root never excluded", patterns: []string{"*"}, rel: filepath.Join("..", "x"), want: false},
		{name: "comments and blanks", patterns: []string{"", "   ", "# node_modules"}, rel: "node_modules", want: false},
		{name: "malformed glob skipped", patterns: []string{"[", "*.bak"}, rel: "a.bak", want: true},
		{name: "no patterns", patterns: nil, rel: "anything", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NewIgnoreMatcher(tt.patterns).Match(tt.rel); got != tt.want {
				t.Errorf("Match(%q) with %q = %v, want %v", tt.rel, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestNewIgnoreMatcher_Len(t *testing.T) {
	t.Parallel()

	m := NewIgnoreMatcher([]string{"# header", "", "*.log", "!", "/", "web/dist/", "!keep.log"})
	if got := m.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
	if m.Match("anything") {
		t.Error("a bare '/' or '!' must not match every path")
	}
}

func TestLoadIgnoreMatcher(t *testing.T) {
	t.Parallel()

	t.Run("file patterns follow configured ones", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		content := "# local rules\n/build\n!vendor\n"
		if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte(content), 0644); err != nil {
			t.Fatalf("writing ignore file: %v", err)
		}

		m, err := LoadIgnoreMatcher(root, []string{"node_modules", "vendor"})
		if err != nil {
			t.Fatalf("LoadIgnoreMatcher() error = %v", err)
		}
		checks := map[string]bool{
			filepath.Join("web", "node_modules"): true,
			"build":                              true,
			filepath.Join("src", "build"):        false,
			"vendor":                             false,
			"src":                                false,
		}
		for rel, want := range checks {
			if got := m.Match(rel); got != want {
				t.Errorf("Match(%q) = %v, want %v", rel, got, want)
			}
		}
	})

	t.Run("missing file uses configured patterns", func(t *testing.T) {
		t.Parallel()
		m, err := LoadIgnoreMatcher(t.TempDir(), DefaultIgnorePatterns)
		if err != nil {
			t.Fatalf("LoadIgnoreMatcher() error = %v", err)
		}
		if m.Len() != len(DefaultIgnorePatterns) {
			t.Errorf("Len() = %d, want %d", m.Len(), len(DefaultIgnorePatterns))
		}
		if !m.Match(filepath.Join(".git", "HEAD")) {
			t.Error("expected .git contents to be ignored")
		}
	})

	t.Run("unreadable ignore file", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		// A directory in place of the file fails on read, not on open.
		if err := os.Mkdir(filepath.Join(root, IgnoreFileName), 0755); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadIgnoreMatcher(root, nil); err == nil {
			t.Error("LoadIgnoreMatcher() expected error")
		}
	})
}

func TestParseIgnoreFile_Missing(t *testing.T) {
	t.Parallel()

	lines, err := ParseIgnoreFile(filepath.Join(t.TempDir(), IgnoreFileName))
	if err != nil {
		t.Fatalf("ParseIgnoreFile() error = %v", err)
	}
	if lines != nil {
		t.Errorf("ParseIgnoreFile() = %v, want nil", lines)
	}
}
