package fscope

import "github.com/fsnotify/fsnotify"

// toChangeEvent converts a raw fsnotify event. It is the only place that
// interprets notification values; nothing fsnotify-typed leaves a Stream.
// ok is false for events that carry no change worth publishing. IDs are
// assigned when the event is delivered.
func toChangeEvent(raw fsnotify.Event, isDir bool) (ev ChangeEvent, ok bool) {
	var flags EventFlags
	if raw.Has(fsnotify.Create) {
		flags |= EventCreated
	}
	if raw.Has(fsnotify.Write) || raw.Has(fsnotify.Chmod) {
		flags |= EventModified
	}
	if raw.Has(fsnotify.Remove) {
		flags |= EventRemoved
	}
	if raw.Has(fsnotify.Rename) {
		flags |= EventRenamed
	}
	if flags == 0 {
		return ChangeEvent{}, false
	}

	if isDir {
		flags |= EventIsDir
	} else {
		flags |= EventIsFile
	}

	return ChangeEvent{Path: raw.Name, Flags: flags}, true
}
