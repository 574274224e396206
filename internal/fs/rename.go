package fs

import (
	"io/fs"
	"os"
)

// checkedRename refuses to replace an existing dst, then renames.
func checkedRename(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
	}
	return os.Rename(src, dst)
}
