package fscope

import (
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ListDirectory returns the immediate children of dir sorted by
// case-insensitive, locale-aware name order. Entries whose name starts with
// a dot are skipped unless includeHidden is set.
func ListDirectory(fsys Filesystem, dir string, includeHidden bool) ([]*DirectoryNode, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, opError("list", dir, ErrDirectoryUnreadable, err)
	}

	entries, err := fsys.ReadDir(absDir)
	if err != nil {
		return nil, opError("list", absDir, ErrDirectoryUnreadable, err)
	}

	nodes := make([]*DirectoryNode, 0, len(entries))
	for _, entry := range entries {
		if !includeHidden && isHidden(entry.Name()) {
			continue
		}
		nodes = append(nodes, NewDirectoryNode(fsys, filepath.Join(absDir, entry.Name()), entry.IsDir()))
	}

	// A collator keeps scratch buffers, so each listing gets its own.
	c := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(nodes, func(a, b *DirectoryNode) int {
		if r := c.CompareString(a.Name(), b.Name()); r != 0 {
			return r
		}
		return strings.Compare(a.Name(), b.Name())
	})

	return nodes, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
