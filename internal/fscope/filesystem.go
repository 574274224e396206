package fscope

import "io/fs"

// FileID identifies a filesystem object independently of its path.
type FileID struct {
	Dev uint64
	Ino uint64
}

// Filesystem is the set of OS primitives the core consumes. It exists so the
// move and access logic can be exercised against injected failures.
type Filesystem interface {
	// ReadDir returns the immediate children of dir, unsorted.
	ReadDir(dir string) ([]fs.DirEntry, error)

	// Stat follows symlinks; Lstat does not.
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)

	// Readable and Writable report the calling process's effective access.
	Readable(path string) bool
	Writable(path string) bool

	// Identity extracts the device/inode pair from info.
	Identity(info fs.FileInfo) (FileID, bool)

	// EvalSymlinks returns path with every symlink resolved.
	EvalSymlinks(path string) (string, error)

	// RenameNoReplace moves src to dst. It fails with an error matching
	// fs.ErrExist when dst exists, atomically where the OS allows.
	RenameNoReplace(src, dst string) error
}
