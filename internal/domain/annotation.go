package domain

import "time"

// HighlightColor is one of the eight palette values offered by the reader.
type HighlightColor string

const (
	ColorYellow HighlightColor = "yellow"
	ColorGreen  HighlightColor = "green"
	ColorBlue   HighlightColor = "blue"
	ColorPink   HighlightColor = "pink"
	ColorPurple HighlightColor = "purple"
	ColorOrange HighlightColor = "orange"
	ColorRed    HighlightColor = "red"
	ColorGray   HighlightColor = "gray"
)

// ValidColor reports whether c is one of the supported palette values.
func ValidColor(c HighlightColor) bool {
	switch c {
	case ColorYellow, ColorGreen, ColorBlue, ColorPink, ColorPurple, ColorOrange, ColorRed, ColorGray:
		return true
	}
	return false
}

// AnnotationStyle selects how an annotation is drawn over its passage.
type AnnotationStyle string

const (
	StyleHighlight AnnotationStyle = "highlight"
	StyleUnderline AnnotationStyle = "underline"
)

// ValidStyle reports whether s is a supported presentation style.
func ValidStyle(s AnnotationStyle) bool {
	return s == StyleHighlight || s == StyleUnderline
}

// Annotation represents a user's saved markup over a passage. Annotations
// are unique by Anchor within one book: creating at an anchor that already
// holds one replaces the stored record instead of duplicating it.
type Annotation struct {
	Anchor    PositionRef     `json:"anchor"`
	Quote     string          `json:"quote"`
	Note      string          `json:"note,omitempty"`
	Color     HighlightColor  `json:"color"`
	Style     AnnotationStyle `json:"style"`
	Tags      []string        `json:"tags,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AnnotationDraft carries the user-editable fields of an annotation.
type AnnotationDraft struct {
	Note  string          `json:"note,omitempty"`
	Color HighlightColor  `json:"color"`
	Style AnnotationStyle `json:"style"`
	Tags  []string        `json:"tags,omitempty"`
}

// Bookmark marks a position the user wants to return to. Unique by Anchor
// within one book.
type Bookmark struct {
	Anchor    PositionRef `json:"anchor"`
	Quote     string      `json:"quote"`
	CreatedAt time.Time   `json:"created_at"`
}

// AnnotationService defines the use-case operations for annotations and
// bookmarks. Create persists the record and then attempts overlay
// placement; when the anchor does not resolve it returns the persisted
// annotation together with ErrInvalidAnchor so the record is never lost to
// a rendering race.
type AnnotationService interface {
	Create(bookID string, anchor PositionRef, quote string, draft AnnotationDraft) (*Annotation, error)
	Update(bookID string, anchor PositionRef, draft AnnotationDraft) (*Annotation, error)
	Delete(bookID string, anchor PositionRef) error
	List(bookID string) ([]Annotation, error)
	Get(bookID string, anchor PositionRef) (*Annotation, error)

	AddBookmark(bookID string, anchor PositionRef, quote string) (*Bookmark, error)
	RemoveBookmark(bookID string, anchor PositionRef) error
	ListBookmarks(bookID string) ([]Bookmark, error)
}
