package fscope

import (
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestEventFlags_String(t *testing.T) {
	tests := []struct {
		flags EventFlags
		want  string
	}{
		{0, "none"},
		{EventCreated | EventIsFile, "created|file"},
		{EventModified | EventRenamed | EventIsDir, "modified|renamed|dir"},
		{EventRemoved, "removed"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("EventFlags(%d).String() = %q, want %q", tt.flags, got, tt.want)
		}
	}
}

func TestChangeEvent_Merge(t *testing.T) {
	first := ChangeEvent{Path: "/a", Flags: EventCreated | EventIsFile}
	later := ChangeEvent{Path: "/a", Flags: EventModified | EventIsDir}

	got := first.merge(later)
	want := EventCreated | EventModified | EventIsDir
	if got.Flags != want {
		t.Errorf("merge().Flags = %v, want %v", got.Flags, want)
	}
	if got.Flags.Has(EventIsFile) {
		t.Error("merge() kept the stale entry type")
	}
	if got.Path != "/a" {
		t.Errorf("merge().Path = %q, want %q", got.Path, "/a")
	}
}

func TestToChangeEvent(t *testing.T) {
	tests := []struct {
		name  string
		op    fsnotify.Op
		isDir bool
		want  EventFlags
		ok    bool
	}{
		{name: "create file", op: fsnotify.Create, want: EventCreated | EventIsFile, ok: true},
		{name: "write", op: fsnotify.Write, want: EventModified | EventIsFile, ok: true},
		{name: "chmod", op: fsnotify.Chmod, want: EventModified | EventIsFile, ok: true},
		{name: "remove dir", op: fsnotify.Remove, isDir: true, want: EventRemoved | EventIsDir, ok: true},
		{name: "rename", op: fsnotify.Rename, want: EventRenamed | EventIsFile, ok: true},
		{name: "create and write", op: fsnotify.Create | fsnotify.Write, want: EventCreated | EventModified | EventIsFile, ok: true},
		{name: "no op", op: 0, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := toChangeEvent(fsnotify.Event{Name: "/x", Op: tt.op}, tt.isDir)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if ev.Flags != tt.want {
				t.Errorf("Flags = %v, want %v", ev.Flags, tt.want)
			}
			if ev.Path != "/x" {
				t.Errorf("Path = %q, want %q", ev.Path, "/x")
			}
		})
	}
}
