package domain

// SelectionState names the states of the selection-menu state machine.
type SelectionState string

const (
	SelectionIdle    SelectionState = "idle"
	SelectionPending SelectionState = "pending"
	SelectionMenu    SelectionState = "menu"
)

// SelectionSnapshot is the controller state exposed to the view layer.
type SelectionSnapshot struct {
	State     SelectionState `json:"state"`
	Selection *Selection     `json:"selection,omitempty"`
	MenuRect  *Rect          `json:"menu_rect,omitempty"`
}

// SelectionService owns the transient selection-menu state machine:
// Idle -> Pending -> Menu -> Idle. A relocation or resize force-dismisses
// the menu, since stale screen coordinates are worse than no menu. A bare
// click within the debounce window of the menu opening is ignored so the
// selection-end event and the click that follows it cannot race the menu
// closed. OverlayClicked short-circuits straight to the annotation edit
// flow without entering Pending.
type SelectionService interface {
	Snapshot() SelectionSnapshot
	ReportClick()

	// Menu actions. Each clears the menu and returns to Idle.
	Copy() (string, error)
	Annotate() (*Selection, error)
	AskAI() (string, error)
	InlineAI() (*InlineNote, error)

	OverlayClicked(anchor PositionRef) (*Annotation, error)
	Dismiss()
}
