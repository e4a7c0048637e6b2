package service

import (
	"sync"
	"time"

	"ebook-reader/internal/domain"
)

// clickDebounce is how long after the menu opens a bare click is ignored.
// The click that ends a selection gesture arrives just after the selection
// event and must not close the menu it opened.
const clickDebounce = 300 * time.Millisecond

// SelectionController implements domain.SelectionService. It listens to
// the surface's selection and relocation events for the attached session
// and drives the Idle -> Pending -> Menu machine.
type SelectionController struct {
	annotations domain.AnnotationService
	notes       domain.NoteService
	chat        domain.ChatService
	settings    domain.SettingsRepository
	logger      domain.Logger
	now         func() time.Time

	mu      sync.Mutex
	state   domain.SelectionState
	pending *domain.Selection
	menuAt  time.Time
	bookID  string
	surface domain.ReadingSurface
}

func NewSelectionController(
	annotations domain.AnnotationService,
	notes domain.NoteService,
	chat domain.ChatService,
	settings domain.SettingsRepository,
	logger domain.Logger,
) *SelectionController {
	return &SelectionController{
		annotations: annotations,
		notes:       notes,
		chat:        chat,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
		state:       domain.SelectionIdle,
	}
}

// Attach binds the controller to the active session and subscribes to its
// surface events. Events from a previously attached surface are dropped by
// identity, since surfaces cannot unsubscribe listeners.
func (c *SelectionController) Attach(bookID string, surface domain.ReadingSurface) {
	c.mu.Lock()
	c.bookID = bookID
	c.surface = surface
	c.resetLocked()
	c.mu.Unlock()

	surface.OnSelectionChanged(func(sel domain.Selection) {
		c.handleSelection(surface, sel)
	})
	surface.OnRelocated(func(ev domain.RelocatedEvent) {
		c.handleRelocated(surface)
	})
}

func (c *SelectionController) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bookID = ""
	c.surface = nil
	c.resetLocked()
}

func (c *SelectionController) Snapshot() domain.SelectionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := domain.SelectionSnapshot{State: c.state}
	if c.pending != nil {
		sel := *c.pending
		snap.Selection = &sel
		if c.state == domain.SelectionMenu {
			rect := sel.Rect
			snap.MenuRect = &rect
		}
	}
	return snap
}

// ReportClick handles a bare click on the content. Inside the debounce
// window it is the tail of the selection gesture and is ignored; after
// that it dismisses the menu.
func (c *SelectionController) ReportClick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.SelectionMenu {
		return
	}
	if c.now().Sub(c.menuAt) < clickDebounce {
		return
	}
	c.resetLocked()
}

func (c *SelectionController) Copy() (string, error) {
	sel, err := c.takeSelection()
	if err != nil {
		return "", err
	}
	return sel.Text, nil
}

func (c *SelectionController) Annotate() (*domain.Selection, error) {
	return c.takeSelection()
}

func (c *SelectionController) AskAI() (string, error) {
	sel, err := c.takeSelection()
	if err != nil {
		return "", err
	}
	c.chat.StagePassage(sel.Text)
	return sel.Text, nil
}

func (c *SelectionController) InlineAI() (*domain.InlineNote, error) {
	sel, err := c.takeSelection()
	if err != nil {
		return nil, err
	}
	mode := c.settings.Load().AINoteMode
	return c.notes.Create(sel.Anchor, sel.Text, mode)
}

// OverlayClicked short-circuits into the annotation edit flow: any open
// menu is cleared and the persisted record for the clicked overlay comes
// back for editing.
func (c *SelectionController) OverlayClicked(anchor domain.PositionRef) (*domain.Annotation, error) {
	c.mu.Lock()
	bookID := c.bookID
	c.resetLocked()
	c.mu.Unlock()

	if bookID == "" {
		return nil, domain.ErrNoActiveSession
	}
	return c.annotations.Get(bookID, anchor)
}

func (c *SelectionController) Dismiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *SelectionController) handleSelection(from domain.ReadingSurface, sel domain.Selection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.surface != from {
		return
	}
	// The view reports settled selections, so the pending phase has
	// already passed by the time the event lands here.
	c.state = domain.SelectionMenu
	c.pending = &sel
	c.menuAt = c.now()
}

func (c *SelectionController) handleRelocated(from domain.ReadingSurface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.surface != from {
		return
	}
	if c.state == domain.SelectionIdle {
		return
	}
	// The menu is positioned in screen coordinates; after a relocation
	// those point at arbitrary content.
	c.logger.Debug("selection menu dismissed by relocation")
	c.resetLocked()
}

func (c *SelectionController) takeSelection() (*domain.Selection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != domain.SelectionMenu || c.pending == nil {
		return nil, domain.ErrNoSelection
	}
	sel := *c.pending
	c.resetLocked()
	return &sel, nil
}

func (c *SelectionController) resetLocked() {
	c.state = domain.SelectionIdle
	c.pending = nil
	c.menuAt = time.Time{}
}
