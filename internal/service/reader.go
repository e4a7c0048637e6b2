package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ebook-reader/internal/domain"
)

// ReaderManager implements domain.ReaderService: one reading session at a
// time. Opening a book tears the previous session down completely before
// the new surface exists, so stale scans, notes and overlays can never
// leak across books.
type ReaderManager struct {
	library     domain.LibraryRepository
	userData    domain.UserDataRepository
	opener      domain.SurfaceOpener
	probe       domain.FormatProbe
	settings    domain.SettingsRepository
	chat        domain.ChatService
	selection   *SelectionController
	annotations *AnnotationManager
	search      *SearchService
	notes       *NoteManager
	logger      domain.Logger

	mu     sync.Mutex
	active *activeSession
}

type activeSession struct {
	book    *domain.Book
	surface domain.ReadingSurface
}

func NewReaderManager(
	library domain.LibraryRepository,
	userData domain.UserDataRepository,
	opener domain.SurfaceOpener,
	probe domain.FormatProbe,
	settings domain.SettingsRepository,
	chat domain.ChatService,
	selection *SelectionController,
	annotations *AnnotationManager,
	search *SearchService,
	notes *NoteManager,
	logger domain.Logger,
) *ReaderManager {
	return &ReaderManager{
		library:     library,
		userData:    userData,
		opener:      opener,
		probe:       probe,
		settings:    settings,
		chat:        chat,
		selection:   selection,
		annotations: annotations,
		search:      search,
		notes:       notes,
		logger:      logger,
	}
}

func (m *ReaderManager) OpenBook(ctx context.Context, bookID string) (*domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	book, err := m.library.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if book.Format == domain.FormatPDF {
		return nil, fmt.Errorf("%w: pdf books use the page reader", domain.ErrUnsupportedFormat)
	}

	m.closeActiveLocked()

	data, err := os.ReadFile(book.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrRenderFailure, book.Path, err)
	}
	src := domain.Source{
		BookID: book.ID,
		Name:   filepath.Base(book.Path),
		Format: book.Format,
		Data:   data,
	}

	surf, err := m.opener.Open(ctx, src)
	if err != nil {
		return nil, err
	}

	// Restore the saved position. A stale anchor (the file changed since
	// the last session) falls back to the document start rather than
	// failing the open.
	last := m.userData.Get(bookID).LastPosition
	if err := surf.RenderAt(ctx, last); err != nil {
		if !errors.Is(err, domain.ErrInvalidAnchor) {
			surf.Close()
			return nil, err
		}
		m.logger.Warn("saved position no longer resolves, starting from the top", "book", bookID, "position", last)
		if err := surf.RenderAt(ctx, domain.NoPosition); err != nil {
			surf.Close()
			return nil, err
		}
	}

	m.annotations.Attach(bookID, surf)
	m.search.Attach(surf)
	m.notes.Attach(surf)
	m.selection.Attach(bookID, surf)

	// Relocations record the position fire-and-forget; the repository
	// coalesces bursts from page flipping into one write.
	surf.OnRelocated(func(ev domain.RelocatedEvent) {
		progress := -1.0
		if frac, ok := surf.PercentageOf(ev.Position); ok {
			progress = frac
		}
		m.userData.SavePosition(bookID, ev.Position, progress)
	})

	m.stageChatContext(ctx, src)

	if err := m.library.TouchOpened(bookID, time.Now()); err != nil {
		m.logger.Warn("failed to record open time", "book", bookID, "error", err)
	}

	m.active = &activeSession{book: book, surface: surf}
	m.logger.Info("reading session opened", "book", bookID, "format", book.Format)
	return m.sessionInfoLocked()
}

func (m *ReaderManager) CloseActive() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeActiveLocked()
	return nil
}

func (m *ReaderManager) Active() (*domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, domain.ErrNoActiveSession
	}
	return m.sessionInfoLocked()
}

func (m *ReaderManager) GoTo(ctx context.Context, ref domain.PositionRef) (*domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, domain.ErrNoActiveSession
	}
	if err := m.active.surface.RenderAt(ctx, ref); err != nil {
		return nil, err
	}
	return m.sessionInfoLocked()
}

func (m *ReaderManager) NextUnit(ctx context.Context) (*domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, domain.ErrNoActiveSession
	}
	if err := m.active.surface.NextUnit(ctx); err != nil {
		return nil, err
	}
	return m.sessionInfoLocked()
}

func (m *ReaderManager) PrevUnit(ctx context.Context) (*domain.SessionInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, domain.ErrNoActiveSession
	}
	if err := m.active.surface.PrevUnit(ctx); err != nil {
		return nil, err
	}
	return m.sessionInfoLocked()
}

func (m *ReaderManager) VisibleContent() (*domain.ContentUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, domain.ErrNoActiveSession
	}
	return m.active.surface.VisibleContent()
}

func (m *ReaderManager) Overlays() ([]domain.Overlay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, domain.ErrNoActiveSession
	}
	return m.active.surface.Overlays(), nil
}

func (m *ReaderManager) ReportSelection(sel domain.Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return domain.ErrNoActiveSession
	}
	m.active.surface.ReportSelection(sel)
	return nil
}

func (m *ReaderManager) Resize(width, height int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return domain.ErrNoActiveSession
	}
	if width <= 0 || height <= 0 {
		return &domain.ValidationError{Field: "size", Message: "width and height must be positive"}
	}
	m.active.surface.Resize(width, height)
	return nil
}

// closeActiveLocked tears the session down in dependency order: notes
// first while the surface still accepts unmounts, then the stateful
// collaborators, then the surface itself, then a flush so the last
// position is durable.
func (m *ReaderManager) closeActiveLocked() {
	if m.active == nil {
		return
	}
	bookID := m.active.book.ID
	m.notes.CloseAll()
	m.notes.Detach()
	m.search.Detach()
	m.selection.Detach()
	m.annotations.Detach()
	m.chat.SetDocumentContext("")
	m.active.surface.Close()
	m.active = nil
	m.userData.Flush()
	m.logger.Info("reading session closed", "book", bookID)
}

// stageChatContext hands the chat collaborator a bounded plain-text slice
// of the book when the include-book setting is on.
func (m *ReaderManager) stageChatContext(ctx context.Context, src domain.Source) {
	settings := m.settings.Load()
	if !settings.AIIncludeBook {
		m.chat.SetDocumentContext("")
		return
	}
	text, err := m.probe.PlainText(ctx, src, settings.AIContextUnits)
	if err != nil {
		m.logger.Warn("failed to extract chat context", "book", src.BookID, "error", err)
		m.chat.SetDocumentContext("")
		return
	}
	m.chat.SetDocumentContext(text)
}

func (m *ReaderManager) sessionInfoLocked() (*domain.SessionInfo, error) {
	surf := m.active.surface
	position, err := surf.CurrentPosition()
	if err != nil {
		return nil, err
	}
	unitCount, err := surf.UnitCount()
	if err != nil {
		return nil, err
	}
	info := &domain.SessionInfo{
		Book:      m.active.book,
		Position:  position,
		UnitCount: unitCount,
	}
	if frac, ok := surf.PercentageOf(position); ok {
		info.Progress = &frac
	}
	return info, nil
}
