package domain

import "context"

// SessionInfo describes the active reading session for the view layer.
type SessionInfo struct {
	Book      *Book       `json:"book"`
	Position  PositionRef `json:"position"`
	Progress  *float64    `json:"progress,omitempty"`
	UnitCount int         `json:"unit_count"`
}

// ReaderService orchestrates one reading session at a time: opening a book
// tears down the previous session (in-flight scans cancelled, notes
// cleared, surface closed), restores the last persisted position,
// reconciles annotation overlays, and wires the selection controller.
// Position saves on relocation are fire-and-forget and serialized per book.
type ReaderService interface {
	OpenBook(ctx context.Context, bookID string) (*SessionInfo, error)
	CloseActive() error
	Active() (*SessionInfo, error)

	GoTo(ctx context.Context, ref PositionRef) (*SessionInfo, error)
	NextUnit(ctx context.Context) (*SessionInfo, error)
	PrevUnit(ctx context.Context) (*SessionInfo, error)
	VisibleContent() (*ContentUnit, error)
	Overlays() ([]Overlay, error)

	ReportSelection(sel Selection) error
	Resize(width, height int) error
}
