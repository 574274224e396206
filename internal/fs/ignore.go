package fs

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is the per-root file listing extra monitor exclusions.
const IgnoreFileName = ".fscopeignore"

// DefaultIgnorePatterns name directories that are never watched unless the
// configuration overrides them: VCS metadata and dependency or build trees.
var DefaultIgnorePatterns = []string{".git", ".hg", ".svn", "node_modules", "vendor", "dist", "venv"}

// IgnoreMatcher decides which paths below a watched root are excluded, using
// gitignore syntax. A pattern matching a directory also excludes everything
// beneath it, and a leading '/' anchors a pattern at the root. A trailing
// slash is dropped, because the monitor asks about a directory before it
// knows what is inside.
type IgnoreMatcher struct {
	gi       *ignore.GitIgnore
	patterns int
}

// NewIgnoreMatcher compiles patterns. Blank lines and comments are skipped.
// A pattern that is not a valid expression never matches.
func NewIgnoreMatcher(patterns []string) *IgnoreMatcher {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSuffix(strings.TrimSpace(p), "/")
		if p == "" || p == "!" || strings.HasPrefix(p, "#") {
			continue
		}
		lines = append(lines, p)
	}
	return &IgnoreMatcher{gi: ignore.CompileIgnoreLines(lines...), patterns: len(lines)}
}

// Len returns the number of patterns kept.
func (m *IgnoreMatcher) Len() int {
	return m.patterns
}

// Match reports whether relativePath, relative to the watched root, is
// excluded. The root itself and paths outside it are never excluded.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	rel := filepath.ToSlash(filepath.Clean(relativePath))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	return m.gi.MatchesPath(rel)
}

// LoadIgnoreMatcher combines patterns with the lines of root's ignore file,
// file patterns last so they can re-include configured exclusions.
func LoadIgnoreMatcher(root string, patterns []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	all := make([]string, 0, len(patterns)+len(fromFile))
	all = append(all, patterns...)
	all = append(all, fromFile...)
	return NewIgnoreMatcher(all), nil
}

// ParseIgnoreFile returns the raw lines of the ignore file at p. A missing
// file yields no lines and no error.
func ParseIgnoreFile(p string) ([]string, error) {
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", p, err)
	}
	return lines, nil
}
