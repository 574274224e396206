package fscope

import "strings"

// EventFlags describes what happened to a path.
type EventFlags uint8

const (
	EventCreated EventFlags = 1 << iota
	EventModified
	EventRemoved
	EventRenamed
	EventIsFile
	EventIsDir
)

var flagNames = []struct {
	flag EventFlags
	name string
}{
	{EventCreated, "created"},
	{EventModified, "modified"},
	{EventRemoved, "removed"},
	{EventRenamed, "renamed"},
	{EventIsFile, "file"},
	{EventIsDir, "dir"},
}

// Has reports whether every bit of f2 is set in f.
func (f EventFlags) Has(f2 EventFlags) bool {
	return f&f2 == f2
}

func (f EventFlags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ChangeEvent is one normalized change notification.
type ChangeEvent struct {
	Path  string
	Flags EventFlags
	// ID increases monotonically, in delivery order, across every event a
	// Monitor produces.
	ID uint64
}

// merge folds a later event for the same path into e.
func (e ChangeEvent) merge(later ChangeEvent) ChangeEvent {
	kind := (e.Flags | later.Flags) &^ (EventIsFile | EventIsDir)
	// The most recent observation decides the entry type.
	return ChangeEvent{
		Path:  e.Path,
		Flags: kind | later.Flags&(EventIsFile|EventIsDir),
	}
}
