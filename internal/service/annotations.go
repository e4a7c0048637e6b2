package service

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ebook-reader/internal/domain"
)

// AnnotationManager implements domain.AnnotationService. Records are
// persisted through the user data repository keyed by anchor; overlays on
// the attached surface are kept in step with the records. Persistence is
// the source of truth: an overlay that cannot be placed right now costs a
// visual, never the record.
type AnnotationManager struct {
	userData domain.UserDataRepository
	logger   domain.Logger

	mu      sync.Mutex
	bookID  string
	surface domain.ReadingSurface
}

func NewAnnotationManager(userData domain.UserDataRepository, logger domain.Logger) *AnnotationManager {
	return &AnnotationManager{
		userData: userData,
		logger:   logger,
	}
}

// Attach binds the manager to the active session and re-adds overlays for
// every persisted annotation of that book.
func (m *AnnotationManager) Attach(bookID string, surface domain.ReadingSurface) {
	m.mu.Lock()
	m.bookID = bookID
	m.surface = surface
	m.mu.Unlock()

	data := m.userData.Get(bookID)
	restored := 0
	for _, a := range data.Annotations {
		if err := surface.AddOverlay(a.Anchor, overlayKindFor(a.Style), styleClassFor(a.Style, a.Color)); err != nil {
			m.logger.Debug("annotation overlay not restored", "book", bookID, "anchor", a.Anchor, "error", err)
			continue
		}
		restored++
	}
	if len(data.Annotations) > 0 {
		m.logger.Info("annotation overlays restored", "book", bookID, "restored", restored, "total", len(data.Annotations))
	}
}

func (m *AnnotationManager) Detach() {
	m.mu.Lock()
	m.bookID = ""
	m.surface = nil
	m.mu.Unlock()
}

func (m *AnnotationManager) Create(bookID string, anchor domain.PositionRef, quote string, draft domain.AnnotationDraft) (*domain.Annotation, error) {
	if bookID == "" {
		return nil, fmt.Errorf("book id is required")
	}
	if anchor.IsZero() {
		return nil, &domain.ValidationError{Field: "anchor", Message: "anchor is required"}
	}
	if quote == "" {
		return nil, &domain.ValidationError{Field: "quote", Message: "quote is required"}
	}
	draft = draftWithDefaults(draft)
	if !domain.ValidColor(draft.Color) {
		return nil, &domain.ValidationError{Field: "color", Message: fmt.Sprintf("unsupported color %q", draft.Color)}
	}
	if !domain.ValidStyle(draft.Style) {
		return nil, &domain.ValidationError{Field: "style", Message: fmt.Sprintf("unsupported style %q", draft.Style)}
	}

	annotation := domain.Annotation{
		Anchor:    anchor,
		Quote:     quote,
		Note:      draft.Note,
		Color:     draft.Color,
		Style:     draft.Style,
		Tags:      append([]string(nil), draft.Tags...),
		CreatedAt: time.Now(),
	}

	// Persist first. The overlay attempt below may lose a race with a
	// reflow and that must not lose the record.
	m.userData.Update(bookID, func(d *domain.BookUserData) {
		if i := d.AnnotationAt(anchor); i >= 0 {
			d.Annotations[i] = annotation
			return
		}
		d.Annotations = append(d.Annotations, annotation)
	})

	overlayErr := m.replaceOverlay(bookID, anchor, annotation.Style, annotation.Color)
	m.logger.Info("annotation created", "book", bookID, "anchor", anchor, "style", annotation.Style)
	return &annotation, overlayErr
}

func (m *AnnotationManager) Update(bookID string, anchor domain.PositionRef, draft domain.AnnotationDraft) (*domain.Annotation, error) {
	draft = draftWithDefaults(draft)
	if !domain.ValidColor(draft.Color) {
		return nil, &domain.ValidationError{Field: "color", Message: fmt.Sprintf("unsupported color %q", draft.Color)}
	}
	if !domain.ValidStyle(draft.Style) {
		return nil, &domain.ValidationError{Field: "style", Message: fmt.Sprintf("unsupported style %q", draft.Style)}
	}

	var updated *domain.Annotation
	m.userData.Update(bookID, func(d *domain.BookUserData) {
		i := d.AnnotationAt(anchor)
		if i < 0 {
			return
		}
		d.Annotations[i].Note = draft.Note
		d.Annotations[i].Color = draft.Color
		d.Annotations[i].Style = draft.Style
		d.Annotations[i].Tags = append([]string(nil), draft.Tags...)
		cp := d.Annotations[i]
		updated = &cp
	})
	if updated == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAnnotationNotFound, anchor)
	}

	overlayErr := m.replaceOverlay(bookID, anchor, updated.Style, updated.Color)
	return updated, overlayErr
}

// Delete removes the record and any overlay. Deleting an absent
// annotation is a no-op; the user's intent is already satisfied.
func (m *AnnotationManager) Delete(bookID string, anchor domain.PositionRef) error {
	m.userData.Update(bookID, func(d *domain.BookUserData) {
		if i := d.AnnotationAt(anchor); i >= 0 {
			d.Annotations = append(d.Annotations[:i], d.Annotations[i+1:]...)
		}
	})
	m.removeOverlayVariants(bookID, anchor)
	return nil
}

func (m *AnnotationManager) List(bookID string) ([]domain.Annotation, error) {
	data := m.userData.Get(bookID)
	out := append([]domain.Annotation(nil), data.Annotations...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *AnnotationManager) Get(bookID string, anchor domain.PositionRef) (*domain.Annotation, error) {
	data := m.userData.Get(bookID)
	if i := data.AnnotationAt(anchor); i >= 0 {
		cp := data.Annotations[i]
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrAnnotationNotFound, anchor)
}

func (m *AnnotationManager) AddBookmark(bookID string, anchor domain.PositionRef, quote string) (*domain.Bookmark, error) {
	if anchor.IsZero() {
		return nil, &domain.ValidationError{Field: "anchor", Message: "anchor is required"}
	}
	bookmark := domain.Bookmark{
		Anchor:    anchor,
		Quote:     quote,
		CreatedAt: time.Now(),
	}
	m.userData.Update(bookID, func(d *domain.BookUserData) {
		if i := d.BookmarkAt(anchor); i >= 0 {
			d.Bookmarks[i] = bookmark
			return
		}
		d.Bookmarks = append(d.Bookmarks, bookmark)
	})
	return &bookmark, nil
}

func (m *AnnotationManager) RemoveBookmark(bookID string, anchor domain.PositionRef) error {
	m.userData.Update(bookID, func(d *domain.BookUserData) {
		if i := d.BookmarkAt(anchor); i >= 0 {
			d.Bookmarks = append(d.Bookmarks[:i], d.Bookmarks[i+1:]...)
		}
	})
	return nil
}

func (m *AnnotationManager) ListBookmarks(bookID string) ([]domain.Bookmark, error) {
	data := m.userData.Get(bookID)
	out := append([]domain.Bookmark(nil), data.Bookmarks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// replaceOverlay removes both style variants at the anchor and draws the
// current one. A style change must not leave the old variant behind.
func (m *AnnotationManager) replaceOverlay(bookID string, anchor domain.PositionRef, style domain.AnnotationStyle, color domain.HighlightColor) error {
	surface := m.attachedSurface(bookID)
	if surface == nil {
		return nil
	}
	m.removeOverlayVariants(bookID, anchor)
	if err := surface.AddOverlay(anchor, overlayKindFor(style), styleClassFor(style, color)); err != nil {
		if errors.Is(err, domain.ErrInvalidAnchor) {
			return err
		}
		m.logger.Debug("annotation overlay not placed", "book", bookID, "anchor", anchor, "error", err)
	}
	return nil
}

func (m *AnnotationManager) removeOverlayVariants(bookID string, anchor domain.PositionRef) {
	surface := m.attachedSurface(bookID)
	if surface == nil {
		return
	}
	_ = surface.RemoveOverlay(anchor, domain.OverlayHighlight)
	_ = surface.RemoveOverlay(anchor, domain.OverlayUnderline)
}

func (m *AnnotationManager) attachedSurface(bookID string) domain.ReadingSurface {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.surface == nil || m.bookID != bookID {
		return nil
	}
	return m.surface
}

func draftWithDefaults(draft domain.AnnotationDraft) domain.AnnotationDraft {
	if draft.Color == "" {
		draft.Color = domain.ColorYellow
	}
	if draft.Style == "" {
		draft.Style = domain.StyleHighlight
	}
	return draft
}

func overlayKindFor(style domain.AnnotationStyle) domain.OverlayKind {
	if style == domain.StyleUnderline {
		return domain.OverlayUnderline
	}
	return domain.OverlayHighlight
}

func styleClassFor(style domain.AnnotationStyle, color domain.HighlightColor) string {
	if style == domain.StyleUnderline {
		return "ul-" + string(color)
	}
	return "hl-" + string(color)
}
