package testutil

import (
	"path/filepath"
	"sync"

	"fscope/internal/fs"
	"fscope/internal/fscope"
)

var _ fscope.Filesystem = (*FaultFilesystem)(nil)

// FaultFilesystem is the real filesystem with injectable failures. Access
// checks can be denied per path and renames can be made to fail or to run a
// hook first, which lets tests reproduce permission errors and races even
// when running as root.
type FaultFilesystem struct {
	*fs.OSFilesystem

	mu           sync.Mutex
	unreadable   map[string]bool
	unwritable   map[string]bool
	renameErr    error
	beforeRename func(src, dst string)
	renames      int
}

// NewFaultFilesystem creates a FaultFilesystem with no faults armed.
func NewFaultFilesystem() *FaultFilesystem {
	return &FaultFilesystem{
		OSFilesystem: fs.NewOSFilesystem(),
		unreadable:   make(map[string]bool),
		unwritable:   make(map[string]bool),
	}
}

// DenyRead makes Readable report false for path.
func (f *FaultFilesystem) DenyRead(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadable[filepath.Clean(path)] = true
}

// DenyWrite makes Writable report false for path.
func (f *FaultFilesystem) DenyWrite(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unwritable[filepath.Clean(path)] = true
}

// FailRename makes every later rename return err without touching disk.
func (f *FaultFilesystem) FailRename(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renameErr = err
}

// BeforeRename runs fn right before each rename reaches the OS.
func (f *FaultFilesystem) BeforeRename(fn func(src, dst string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeRename = fn
}

// Renames returns how many renames were attempted.
func (f *FaultFilesystem) Renames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renames
}

func (f *FaultFilesystem) Readable(path string) bool {
	f.mu.Lock()
	denied := f.unreadable[filepath.Clean(path)]
	f.mu.Unlock()
	return !denied && f.OSFilesystem.Readable(path)
}

func (f *FaultFilesystem) Writable(path string) bool {
	f.mu.Lock()
	denied := f.unwritable[filepath.Clean(path)]
	f.mu.Unlock()
	return !denied && f.OSFilesystem.Writable(path)
}

func (f *FaultFilesystem) RenameNoReplace(src, dst string) error {
	f.mu.Lock()
	f.renames++
	err := f.renameErr
	hook := f.beforeRename
	f.mu.Unlock()

	if hook != nil {
		hook(src, dst)
	}
	if err != nil {
		return err
	}
	return f.OSFilesystem.RenameNoReplace(src, dst)
}
