package domain

import "context"

// SearchMatch is one hit produced by either search strategy. Matches are
// transient: they live only for the duration of one search session and are
// never persisted. Batch scan matches carry unit-level anchors; interactive
// matches carry precise in-unit anchors.
type SearchMatch struct {
	Anchor  PositionRef `json:"anchor"`
	Excerpt string      `json:"excerpt"`
	Unit    int         `json:"unit"`
}

// SearchService runs both search strategies over the active book.
//
// Scan is the batch corpus scan: document order, case-insensitive, capped
// at a configured match limit, per-unit failures skipped. Interactive adds
// a match overlay for every hit and maintains a cursor that Next and Prev
// move with wraparound, restyling the previously active match and
// navigating the surface to the new one. CloseInteractive clears all match
// overlays and resets the cursor; re-issuing Interactive clears the prior
// session's overlays first.
type SearchService interface {
	Scan(ctx context.Context, query string) ([]SearchMatch, error)
	Interactive(ctx context.Context, query string) ([]SearchMatch, error)
	Next(ctx context.Context) (*SearchMatch, int, error)
	Prev(ctx context.Context) (*SearchMatch, int, error)
	CloseInteractive() error
}
