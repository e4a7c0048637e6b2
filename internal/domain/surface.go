package domain

import "context"

// OverlayKind distinguishes the visual overlay classes drawn over content
// at an anchor, independent of any persisted record.
type OverlayKind string

const (
	OverlayHighlight   OverlayKind = "highlight"
	OverlayUnderline   OverlayKind = "underline"
	OverlayMatch       OverlayKind = "match"
	OverlayActiveMatch OverlayKind = "match-active"
)

// Overlay is one visual overlay as tracked by the reading surface.
type Overlay struct {
	Anchor PositionRef `json:"anchor"`
	Kind   OverlayKind `json:"kind"`
	Style  string      `json:"style,omitempty"`
}

// Rect is a screen-space bounding rectangle, used for menu placement.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Selection describes a completed text selection reported by the view
// layer. A selection that collapses to empty text raises no event.
type Selection struct {
	Text   string      `json:"text"`
	Anchor PositionRef `json:"anchor"`
	Rect   Rect        `json:"rect"`
}

// RelocatedEvent fires whenever the visible content changes: page turn,
// resize-triggered re-layout, or programmatic navigation. At most one
// event is delivered per relocation.
type RelocatedEvent struct {
	Position PositionRef
	Unit     int
}

// ContentMountedEvent fires each time a unit of content is newly attached
// to the live surface. Reflow may destroy and recreate the underlying
// nodes, so listeners re-resolve their mount points on every event.
type ContentMountedEvent struct {
	Unit int
}

// MountID identifies a transient element attached into live content. A
// mount is invalidated when its content unit is reflowed away or the
// surface closes; operations on an invalid mount are silent no-ops.
type MountID string

// ContentUnit is one spine-level unit of renderable content.
type ContentUnit struct {
	Index      int      `json:"index"`
	Label      string   `json:"label,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

// RenderEngine is the format-specific capability behind a reading surface.
// Unit loads are the suspension points of the surface; they may be slow
// and must respect ctx.
type RenderEngine interface {
	UnitCount() int
	Unit(ctx context.Context, index int) (*ContentUnit, error)
}

// ReadingSurface wraps the pagination engine for one open document.
//
// Every operation on a closed surface fails with ErrHandleClosed. Overlay
// and mount operations against anchors that no longer resolve are treated
// as silent no-ops (AddOverlay and Mount report ErrInvalidAnchor so a
// caller that cares can tell, but no state changes and nothing panics):
// a reflow racing an overlay call must never take the application down.
type ReadingSurface interface {
	BookID() string

	// RenderAt displays the given position, or the document start when ref
	// is NoPosition. It resolves once content is loaded and fires one
	// ContentMountedEvent followed by one RelocatedEvent.
	RenderAt(ctx context.Context, ref PositionRef) error
	NextUnit(ctx context.Context) error
	PrevUnit(ctx context.Context) error
	CurrentPosition() (PositionRef, error)
	VisibleContent() (*ContentUnit, error)

	// PercentageOf maps a ref to a read fraction in [0,1]. The corpus
	// index is built asynchronously after open; until it is ready the
	// second return is false and the UI shows an indeterminate state.
	PercentageOf(ref PositionRef) (float64, bool)

	UnitCount() (int, error)
	// UnitStart returns the anchor for the beginning of a unit, for results
	// that point at a unit rather than a paragraph inside it.
	UnitStart(unit int) (PositionRef, error)
	UnitText(ctx context.Context, unit int) (string, error)
	SearchUnit(ctx context.Context, unit int, query string) ([]SearchMatch, error)

	AddOverlay(anchor PositionRef, kind OverlayKind, styleClass string) error
	RemoveOverlay(anchor PositionRef, kind OverlayKind) error
	OverlaysAt(anchor PositionRef) []OverlayKind
	Overlays() []Overlay

	Mount(anchor PositionRef) (MountID, error)
	Unmount(id MountID)
	MountValid(id MountID) bool

	OnRelocated(fn func(RelocatedEvent))
	OnContentMounted(fn func(ContentMountedEvent))
	OnSelectionChanged(fn func(Selection))

	// ReportSelection is the ingress for the view layer's raw selection
	// events. Empty text is dropped without raising an event.
	ReportSelection(sel Selection)
	Resize(width, height int)

	Close() error
}

// SurfaceOpener opens raw document content as a reading surface. Only EPUB
// and plain text go through the surface; PDF uses an independent, simpler
// path with no selection or annotation support.
type SurfaceOpener interface {
	Open(ctx context.Context, src Source) (ReadingSurface, error)
}
