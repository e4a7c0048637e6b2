package domain

import "time"

// BookUserData is the per-book persisted bundle of reading state. It is
// created lazily on first save; every mutation is a read-modify-write of
// the whole bundle that re-stamps LastOpenedAt.
type BookUserData struct {
	LastPosition PositionRef  `json:"last_position"`
	Progress     float64      `json:"progress"`
	Bookmarks    []Bookmark   `json:"bookmarks"`
	Annotations  []Annotation `json:"annotations"`
	LastOpenedAt time.Time    `json:"last_opened_at"`
}

// AnnotationAt returns the index of the annotation stored at anchor, or -1.
func (d *BookUserData) AnnotationAt(anchor PositionRef) int {
	for i := range d.Annotations {
		if d.Annotations[i].Anchor == anchor {
			return i
		}
	}
	return -1
}

// BookmarkAt returns the index of the bookmark stored at anchor, or -1.
func (d *BookUserData) BookmarkAt(anchor PositionRef) int {
	for i := range d.Bookmarks {
		if d.Bookmarks[i].Anchor == anchor {
			return i
		}
	}
	return -1
}

// UserDataRepository defines persistence for per-book reader state.
//
// Update applies mutate to the latest stored bundle so concurrent owners
// (position tracker, annotation manager, bookmark manager) merge into fresh
// state instead of clobbering each other with stale copies. SavePosition is
// the fire-and-forget path used on relocation: writes for the same book are
// serialized and coalesced so an older save can never land after a newer
// one. Read failures yield an empty bundle, never an error surfaced to the
// caller; write failures are logged and swallowed, leaving the in-memory
// state authoritative for the session.
type UserDataRepository interface {
	Get(bookID string) *BookUserData
	Update(bookID string, mutate func(*BookUserData)) *BookUserData
	SavePosition(bookID string, pos PositionRef, progress float64)
	Delete(bookID string)
	Flush()
}
