package fscope

import (
	"errors"
	"strings"
)

// Failure kinds. Every error returned by this package matches exactly one of
// these through errors.Is, and still matches the underlying OS cause when
// there is one.
var (
	ErrDirectoryUnreadable   = errors.New("directory unreadable")
	ErrTokenCreationFailed   = errors.New("token creation failed")
	ErrTokenResolutionFailed = errors.New("token resolution failed")
	ErrAccessDenied          = errors.New("access denied")
	ErrDestinationExists     = errors.New("destination exists")
	ErrInvalidMove           = errors.New("invalid move")
	ErrMoveFailed            = errors.New("move failed")

	// ErrAccessLimitReached accompanies ErrAccessDenied when every scoped
	// access slot is in use.
	ErrAccessLimitReached = errors.New("scoped access limit reached")

	// ErrServiceClosed is returned for requests submitted after Close.
	ErrServiceClosed = errors.New("service closed")

	// ErrRequestPanicked is returned when an operation panicked on the
	// service worker. The worker keeps serving later requests.
	ErrRequestPanicked = errors.New("service request panicked")
)

// OpError records a failed operation, the path(s) it concerned, its kind and
// the cause.
type OpError struct {
	Op   string
	Path string
	Dest string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(" ")
	b.WriteString(e.Path)
	if e.Dest != "" {
		b.WriteString(" -> ")
		b.WriteString(e.Dest)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op, path string, kind, err error) *OpError {
	return &OpError{Op: op, Path: path, Kind: kind, Err: err}
}

// ErrBookmarkNotFound is returned when no bookmark has the requested name.
var ErrBookmarkNotFound = errors.New("bookmark not found")
