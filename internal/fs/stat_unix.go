//go:build unix

package fs

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"

	"fscope/internal/fscope"
)

// Identity extracts the device/inode pair from a FileInfo produced by Stat
// or Lstat.
func (*OSFilesystem) Identity(info fs.FileInfo) (fscope.FileID, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fscope.FileID{}, false
	}
	return fscope.FileID{Dev: uint64(stat.Dev), Ino: uint64(stat.Ino)}, true
}

// Readable reports whether the effective user may read path.
func (*OSFilesystem) Readable(path string) bool {
	return unix.Faccessat(unix.AT_FDCWD, path, unix.R_OK, unix.AT_EACCESS) == nil
}

// Writable reports whether the effective user may write path.
func (*OSFilesystem) Writable(path string) bool {
	return unix.Faccessat(unix.AT_FDCWD, path, unix.W_OK, unix.AT_EACCESS) == nil
}
