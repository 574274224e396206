package fscope

import "time"

// Bookmark is a named, persisted access token.
type Bookmark struct {
	ID          string
	Name        string
	Path        string
	Token       AccessToken
	CreatedAt   time.Time
	RefreshedAt time.Time
}

// BookmarkStore persists bookmarks.
type BookmarkStore interface {
	// FindBookmark returns the bookmark with the given name, or nil if none.
	FindBookmark(name string) (*Bookmark, error)

	// ListBookmarks returns all bookmarks ordered by name.
	ListBookmarks() ([]*Bookmark, error)

	// SaveBookmark inserts b, or replaces the bookmark with the same name.
	SaveBookmark(b *Bookmark) error

	// DeleteBookmark removes the named bookmark and reports whether it existed.
	DeleteBookmark(name string) (bool, error)
}
