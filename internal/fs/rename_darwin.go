//go:build darwin

package fs

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// RenameNoReplace renames src to dst with renamex_np(RENAME_EXCL), so a
// destination created after validation is never overwritten. Volumes
// without support fall back to a checked rename.
func (m *OSFilesystem) RenameNoReplace(src, dst string) error {
	err := unix.RenamexNp(src, dst, unix.RENAME_EXCL)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ENOTSUP) {
		return checkedRename(src, dst)
	}
	return &os.LinkError{Op: "rename", Old: src, New: dst, Err: err}
}
