//go:build !linux && !darwin

package fs

// RenameNoReplace renames src to dst unless dst exists. The existence check
// and the rename are not atomic on this platform.
func (m *OSFilesystem) RenameNoReplace(src, dst string) error {
	return checkedRename(src, dst)
}
