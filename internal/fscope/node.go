package fscope

import (
	"path/filepath"
	"sync"
	"time"
)

// DirectoryNode is one entry of a directory listing. Nodes are immutable and
// safe to share; the modification time is fetched on first use only.
type DirectoryNode struct {
	path    string
	isDir   bool
	modTime func() (time.Time, error)
}

// NewDirectoryNode creates a node for path. The modification time is read
// from fsys the first time ModTime is called.
func NewDirectoryNode(fsys Filesystem, path string, isDir bool) *DirectoryNode {
	return &DirectoryNode{
		path:  path,
		isDir: isDir,
		modTime: sync.OnceValues(func() (time.Time, error) {
			info, err := fsys.Lstat(path)
			if err != nil {
				return time.Time{}, err
			}
			return info.ModTime(), nil
		}),
	}
}

// Path returns the absolute location of the entry.
func (n *DirectoryNode) Path() string {
	return n.path
}

// Name returns the display name, derived from the path.
func (n *DirectoryNode) Name() string {
	return filepath.Base(n.path)
}

// IsDir reports whether the entry is a directory.
func (n *DirectoryNode) IsDir() bool {
	return n.isDir
}

// ModTime returns the last modification time of the entry.
func (n *DirectoryNode) ModTime() (time.Time, error) {
	return n.modTime()
}
