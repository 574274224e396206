package fscope

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Mover validates and performs moves and renames.
type Mover struct {
	fsys   Filesystem
	guard  *AccessGuard
	logger Logger
}

// NewMover creates a Mover that brackets moves with scoped access from guard.
func NewMover(fsys Filesystem, guard *AccessGuard, logger Logger) *Mover {
	return &Mover{
		fsys:   fsys,
		guard:  guard,
		logger: logger,
	}
}

// CanMove reports whether moving src to dst would pass validation. It has
// no side effects.
func (m *Mover) CanMove(src, dst string) bool {
	_, _, err := m.validate(src, dst)
	return err == nil
}

// validate runs the ordered pre-conditions and returns the cleaned paths.
// The checks are best effort; the filesystem may change before the move.
func (m *Mover) validate(src, dst string) (string, string, error) {
	absSrc, err := cleanAbs(src)
	if err != nil {
		return "", "", m.invalid(src, dst, err)
	}
	absDst, err := cleanAbs(dst)
	if err != nil {
		return "", "", m.invalid(src, dst, err)
	}

	if absSrc == absDst {
		return "", "", m.invalid(absSrc, absDst, errors.New("source and destination are the same"))
	}

	canonSrc := canonical(m.fsys, absSrc)
	canonDst := canonical(m.fsys, absDst)
	if within(absSrc, absDst) || within(canonSrc, canonDst) {
		return "", "", m.invalid(absSrc, absDst, errors.New("destination is inside source"))
	}

	if _, err := m.fsys.Lstat(absSrc); err != nil {
		return "", "", m.invalid(absSrc, absDst, err)
	}

	if _, err := m.fsys.Lstat(absDst); err == nil {
		return "", "", &OpError{Op: "move", Path: absSrc, Dest: absDst, Kind: ErrDestinationExists}
	}

	if !m.fsys.Readable(absSrc) {
		return "", "", m.invalid(absSrc, absDst, fmt.Errorf("source not readable: %w", fs.ErrPermission))
	}

	if !m.fsys.Writable(filepath.Dir(absDst)) {
		return "", "", m.invalid(absSrc, absDst, fmt.Errorf("destination directory not writable: %w", fs.ErrPermission))
	}

	return absSrc, absDst, nil
}

func (m *Mover) invalid(src, dst string, err error) *OpError {
	return &OpError{Op: "move", Path: src, Dest: dst, Kind: ErrInvalidMove, Err: err}
}

// Move moves src to dst after validation, holding scoped access to src and
// to dst's parent for the duration of the OS call.
func (m *Mover) Move(src, dst string) error {
	absSrc, absDst, err := m.validate(src, dst)
	if err != nil {
		m.logger.Debug("move rejected", "src", src, "dst", dst, "error", err)
		return err
	}

	err = m.guard.With(absSrc, func() error {
		return m.guard.With(filepath.Dir(absDst), func() error {
			return m.fsys.RenameNoReplace(absSrc, absDst)
		})
	})
	if err != nil {
		var opErr *OpError
		if errors.As(err, &opErr) && errors.Is(err, ErrAccessDenied) {
			opErr.Dest = absDst
			return opErr
		}
		moveErr := classifyMoveError(absSrc, absDst, err)
		m.logger.Warn("move failed", "src", absSrc, "dst", absDst, "error", moveErr)
		return moveErr
	}

	m.logger.Info("moved", "src", absSrc, "dst", absDst)
	return nil
}

// classifyMoveError maps an OS failure from the rename onto the move error
// kinds. A destination that appeared after validation is reported as
// ErrDestinationExists.
func classifyMoveError(src, dst string, err error) *OpError {
	kind := ErrMoveFailed
	switch {
	case errors.Is(err, fs.ErrExist):
		kind = ErrDestinationExists
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EROFS):
		kind = ErrAccessDenied
	}
	return &OpError{Op: "move", Path: src, Dest: dst, Kind: kind, Err: err}
}
