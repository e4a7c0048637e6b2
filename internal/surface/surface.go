package surface

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"ebook-reader/internal/domain"
)

// Manager opens raw document content as reading surfaces. Only EPUB and
// plain text are accepted here; PDF has its own path.
type Manager struct {
	log domain.Logger
}

func NewManager(log domain.Logger) *Manager {
	return &Manager{log: log}
}

func (m *Manager) Open(ctx context.Context, src domain.Source) (domain.ReadingSurface, error) {
	var (
		eng    domain.RenderEngine
		single bool
	)
	switch src.Format {
	case domain.FormatText:
		eng = newTextEngine(src.Data)
		single = true
	case domain.FormatEPUB:
		e, err := newEpubEngine(src.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
		}
		eng = e
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, src.Format)
	}

	indexCtx, cancel := context.WithCancel(context.Background())
	s := &Surface{
		bookID:      src.BookID,
		eng:         eng,
		single:      single,
		log:         m.log,
		overlays:    make(map[overlayKey]string),
		mounts:      make(map[domain.MountID]mountPoint),
		paraCounts:  make(map[int]int),
		indexCancel: cancel,
	}

	// The corpus index is built off the open path; PercentageOf reports
	// an indeterminate state until it lands.
	go s.buildIndex(indexCtx)

	return s, nil
}

type overlayKey struct {
	anchor domain.PositionRef
	kind   domain.OverlayKind
}

type mountPoint struct {
	anchor domain.PositionRef
	unit   int
}

// Surface implements domain.ReadingSurface over one render engine.
//
// Engine unit loads are the suspension points; they run outside the state
// lock so a slow chapter parse never blocks event delivery. Callbacks fire
// outside the lock as well, so listeners may re-enter the surface.
type Surface struct {
	bookID string
	eng    domain.RenderEngine
	single bool
	log    domain.Logger

	mu          sync.Mutex
	closed      bool
	rendered    bool
	current     domain.PositionRef
	unit        int
	visible     *domain.ContentUnit
	overlays    map[overlayKey]string
	mounts      map[domain.MountID]mountPoint
	nextMount   int
	index       *corpusIndex
	paraCounts  map[int]int
	indexCancel context.CancelFunc

	onRelocated      []func(domain.RelocatedEvent)
	onContentMounted []func(domain.ContentMountedEvent)
	onSelection      []func(domain.Selection)
}

func (s *Surface) BookID() string { return s.bookID }

func (s *Surface) RenderAt(ctx context.Context, pos domain.PositionRef) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrHandleClosed
	}
	target := ref{unit: 0, para: -1}
	if !pos.IsZero() {
		r, ok := s.resolveLocked(pos)
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %q", domain.ErrInvalidAnchor, pos)
		}
		target = r
	}
	eng := s.eng
	s.mu.Unlock()

	unit, err := eng.Unit(ctx, target.unit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: unit %d: %v", domain.ErrRenderFailure, target.unit, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrHandleClosed
	}
	s.rendered = true
	s.unit = target.unit
	s.visible = unit
	s.paraCounts[target.unit] = len(unit.Paragraphs)
	if pos.IsZero() {
		s.current = unitRef(0)
	} else {
		s.current = pos
	}
	// Relocation recreates the live nodes, so every mount is gone.
	s.invalidateMountsLocked()
	mountedFns := append([]func(domain.ContentMountedEvent){}, s.onContentMounted...)
	relocatedFns := append([]func(domain.RelocatedEvent){}, s.onRelocated...)
	relocated := domain.RelocatedEvent{Position: s.current, Unit: s.unit}
	mounted := domain.ContentMountedEvent{Unit: s.unit}
	s.mu.Unlock()

	for _, fn := range mountedFns {
		fn(mounted)
	}
	for _, fn := range relocatedFns {
		fn(relocated)
	}
	return nil
}

func (s *Surface) NextUnit(ctx context.Context) error {
	return s.step(ctx, 1)
}

func (s *Surface) PrevUnit(ctx context.Context) error {
	return s.step(ctx, -1)
}

func (s *Surface) step(ctx context.Context, delta int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrHandleClosed
	}
	target := s.unit + delta
	count := s.eng.UnitCount()
	s.mu.Unlock()

	if target < 0 || target >= count {
		return nil
	}
	return s.RenderAt(ctx, unitRef(target))
}

func (s *Surface) CurrentPosition() (domain.PositionRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.NoPosition, domain.ErrHandleClosed
	}
	return s.current, nil
}

func (s *Surface) VisibleContent() (*domain.ContentUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrHandleClosed
	}
	if s.visible == nil {
		return nil, nil
	}
	cp := *s.visible
	return &cp, nil
}

func (s *Surface) PercentageOf(pos domain.PositionRef) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.index == nil {
		return 0, false
	}
	r, ok := parseRef(pos)
	if !ok {
		return 0, false
	}
	return s.index.fractionAt(r)
}

func (s *Surface) UnitCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrHandleClosed
	}
	return s.eng.UnitCount(), nil
}

func (s *Surface) UnitStart(unit int) (domain.PositionRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.NoPosition, domain.ErrHandleClosed
	}
	if unit < 0 || unit >= s.eng.UnitCount() {
		return domain.NoPosition, fmt.Errorf("%w: unit %d", domain.ErrInvalidAnchor, unit)
	}
	if s.single {
		return paraRef(unit, 0, true), nil
	}
	return unitRef(unit), nil
}

func (s *Surface) UnitText(ctx context.Context, unit int) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", domain.ErrHandleClosed
	}
	eng := s.eng
	s.mu.Unlock()

	u, err := eng.Unit(ctx, unit)
	if err != nil {
		return "", err
	}
	s.noteParaCount(unit, len(u.Paragraphs))
	return strings.Join(u.Paragraphs, "\n\n"), nil
}

// SearchUnit is the engine-native in-unit search: case-insensitive
// substring over each paragraph, one match per occurrence, with
// paragraph-precise anchors and a bounded excerpt window.
func (s *Surface) SearchUnit(ctx context.Context, unit int, query string) ([]domain.SearchMatch, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, domain.ErrHandleClosed
	}
	eng := s.eng
	single := s.single
	s.mu.Unlock()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	u, err := eng.Unit(ctx, unit)
	if err != nil {
		return nil, err
	}
	s.noteParaCount(unit, len(u.Paragraphs))

	needle := strings.ToLower(query)
	var matches []domain.SearchMatch
	for p, para := range u.Paragraphs {
		hay := strings.ToLower(para)
		from := 0
		for {
			i := strings.Index(hay[from:], needle)
			if i < 0 {
				break
			}
			at := from + i
			matches = append(matches, domain.SearchMatch{
				Anchor:  paraRef(unit, p, single),
				Excerpt: Excerpt(para, at, len(needle)),
				Unit:    unit,
			})
			from = at + len(needle)
		}
	}
	return matches, nil
}

func (s *Surface) AddOverlay(anchor domain.PositionRef, kind domain.OverlayKind, styleClass string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrHandleClosed
	}
	if _, ok := s.resolveLocked(anchor); !ok {
		// A reflow may have raced the overlay call; losing the visual is
		// fine, taking the app down is not.
		s.log.Debug("overlay skipped, anchor does not resolve", "anchor", anchor, "kind", kind)
		return fmt.Errorf("%w: %q", domain.ErrInvalidAnchor, anchor)
	}
	s.overlays[overlayKey{anchor: anchor, kind: kind}] = styleClass
	return nil
}

func (s *Surface) RemoveOverlay(anchor domain.PositionRef, kind domain.OverlayKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrHandleClosed
	}
	delete(s.overlays, overlayKey{anchor: anchor, kind: kind})
	return nil
}

func (s *Surface) OverlaysAt(anchor domain.PositionRef) []domain.OverlayKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	var kinds []domain.OverlayKind
	for k := range s.overlays {
		if k.anchor == anchor {
			kinds = append(kinds, k.kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (s *Surface) Overlays() []domain.Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	out := make([]domain.Overlay, 0, len(s.overlays))
	for k, style := range s.overlays {
		out = append(out, domain.Overlay{Anchor: k.anchor, Kind: k.kind, Style: style})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Anchor != out[j].Anchor {
			return out[i].Anchor < out[j].Anchor
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

func (s *Surface) Mount(anchor domain.PositionRef) (domain.MountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", domain.ErrHandleClosed
	}
	r, ok := s.resolveLocked(anchor)
	if !ok || r.unit != s.unit || !s.rendered {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAnchor, anchor)
	}
	s.nextMount++
	id := domain.MountID(fmt.Sprintf("m%d", s.nextMount))
	s.mounts[id] = mountPoint{anchor: anchor, unit: r.unit}
	return id, nil
}

func (s *Surface) Unmount(id domain.MountID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	delete(s.mounts, id)
}

func (s *Surface) MountValid(id domain.MountID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	_, ok := s.mounts[id]
	return ok
}

func (s *Surface) OnRelocated(fn func(domain.RelocatedEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onRelocated = append(s.onRelocated, fn)
}

func (s *Surface) OnContentMounted(fn func(domain.ContentMountedEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onContentMounted = append(s.onContentMounted, fn)
}

func (s *Surface) OnSelectionChanged(fn func(domain.Selection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.onSelection = append(s.onSelection, fn)
}

func (s *Surface) ReportSelection(sel domain.Selection) {
	s.mu.Lock()
	if s.closed || strings.TrimSpace(sel.Text) == "" {
		s.mu.Unlock()
		return
	}
	fns := append([]func(domain.Selection){}, s.onSelection...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(sel)
	}
}

// Resize models a re-layout: live nodes are recreated, mounts die, and
// listeners get a fresh ContentMounted + Relocated pair at the unchanged
// position.
func (s *Surface) Resize(width, height int) {
	s.mu.Lock()
	if s.closed || !s.rendered {
		s.mu.Unlock()
		return
	}
	s.invalidateMountsLocked()
	mountedFns := append([]func(domain.ContentMountedEvent){}, s.onContentMounted...)
	relocatedFns := append([]func(domain.RelocatedEvent){}, s.onRelocated...)
	relocated := domain.RelocatedEvent{Position: s.current, Unit: s.unit}
	mounted := domain.ContentMountedEvent{Unit: s.unit}
	s.mu.Unlock()

	for _, fn := range mountedFns {
		fn(mounted)
	}
	for _, fn := range relocatedFns {
		fn(relocated)
	}
}

// Close is idempotent. After it returns, every other operation fails with
// ErrHandleClosed and pending callbacks are dropped.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.indexCancel()
	s.overlays = nil
	s.mounts = nil
	s.visible = nil
	s.onRelocated = nil
	s.onContentMounted = nil
	s.onSelection = nil
	return nil
}

func (s *Surface) buildIndex(ctx context.Context) {
	ix, err := buildIndex(ctx, s.eng)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("corpus index build failed, percentages stay indeterminate", "book", s.bookID, "error", err)
		}
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.index = ix
	for i := 0; i < len(ix.paraStart); i++ {
		if n, ok := ix.paraCount(i); ok {
			s.paraCounts[i] = n
		}
	}
}

// resolveLocked parses an anchor and bounds-checks it against what the
// surface knows so far. Paragraph bounds are only enforceable for units
// whose content has been loaded; unloaded units resolve optimistically.
func (s *Surface) resolveLocked(pos domain.PositionRef) (ref, bool) {
	r, ok := parseRef(pos)
	if !ok {
		return ref{}, false
	}
	if r.unit < 0 || r.unit >= s.eng.UnitCount() {
		return ref{}, false
	}
	if r.para >= 0 {
		if count, known := s.paraCounts[r.unit]; known && r.para >= count {
			return ref{}, false
		}
	}
	return r, true
}

func (s *Surface) invalidateMountsLocked() {
	for id := range s.mounts {
		delete(s.mounts, id)
	}
}

func (s *Surface) noteParaCount(unit, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.paraCounts[unit] = count
}

// Excerpt returns a bounded display window around a match, clamped to
// rune boundaries.
func Excerpt(text string, at, matchLen int) string {
	const window = 30
	start := at - window
	if start < 0 {
		start = 0
	}
	end := at + matchLen + window
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}
	return text[start:end]
}
