package fs

import (
	"io/fs"
	"os"
	"path/filepath"

	"fscope/internal/fscope"
)

// OSFilesystem is the real filesystem implementation of fscope.Filesystem.
type OSFilesystem struct{}

// NewOSFilesystem creates a filesystem that operates on the real filesystem.
func NewOSFilesystem() *OSFilesystem {
	return &OSFilesystem{}
}

func (*OSFilesystem) ReadDir(dir string) ([]fs.DirEntry, error) {
	return os.ReadDir(dir)
}

func (*OSFilesystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (*OSFilesystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (*OSFilesystem) EvalSymlinks(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// Compile-time check that OSFilesystem implements fscope.Filesystem interface
var _ fscope.Filesystem = (*OSFilesystem)(nil)
