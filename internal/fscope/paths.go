package fscope

import (
	"path/filepath"
	"strings"
)

// within reports whether path is root or lies below it. Both must be clean
// absolute paths.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// cleanAbs makes path absolute and lexically clean, dropping trailing
// separators and "." or ".." segments.
func cleanAbs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// canonical resolves symlinks in the longest existing prefix of a clean
// absolute path, so that aliases of the same location compare equal.
func canonical(fsys Filesystem, path string) string {
	if resolved, err := fsys.EvalSymlinks(path); err == nil {
		return resolved
	}
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return filepath.Join(canonical(fsys, parent), filepath.Base(path))
}
