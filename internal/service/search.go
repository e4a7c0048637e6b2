package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ebook-reader/internal/domain"
	"ebook-reader/internal/surface"

	"golang.org/x/sync/errgroup"
)

const (
	defaultScanMatchLimit = 500
	defaultSearchWorkers  = 8

	matchStyle       = "search-match"
	activeMatchStyle = "search-match-active"
)

// SearchService implements domain.SearchService over the active session's
// surface. The batch scan walks units in document order and bails out the
// moment the surface closes under it; the interactive search fans unit
// loads out over a bounded worker pool and keeps a cursor into the flat,
// document-ordered match list.
type SearchService struct {
	logger  domain.Logger
	limit   int
	workers int

	mu      sync.Mutex
	surface domain.ReadingSurface
	matches []domain.SearchMatch
	cursor  int
	query   string
}

func NewSearchService(cfg domain.Config, logger domain.Logger) *SearchService {
	limit := cfg.GetSearchMatchLimit()
	if limit <= 0 {
		limit = defaultScanMatchLimit
	}
	workers := cfg.GetSearchWorkers()
	if workers <= 0 {
		workers = defaultSearchWorkers
	}
	return &SearchService{
		logger:  logger,
		limit:   limit,
		workers: workers,
		cursor:  -1,
	}
}

// Attach binds the service to the active session's surface.
func (s *SearchService) Attach(surface domain.ReadingSurface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surface
	s.matches = nil
	s.cursor = -1
	s.query = ""
}

// Detach drops all search state without touching overlays; the surface is
// being torn down and takes them with it.
func (s *SearchService) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = nil
	s.matches = nil
	s.cursor = -1
	s.query = ""
}

// Scan is the batch corpus search: case-insensitive over
// whitespace-normalized unit text, document order, capped at the match
// limit. Units that fail to load are skipped so one corrupt chapter does
// not empty the results.
func (s *SearchService) Scan(ctx context.Context, query string) ([]domain.SearchMatch, error) {
	surf := s.attachedSurface()
	if surf == nil {
		return nil, domain.ErrNoActiveSession
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Message: "query is required"}
	}

	count, err := surf.UnitCount()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)

	matches := make([]domain.SearchMatch, 0, 32)
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		text, err := surf.UnitText(ctx, i)
		if err != nil {
			if errors.Is(err, domain.ErrHandleClosed) || ctx.Err() != nil {
				// The book was switched under the scan; late results
				// belong to nobody.
				return nil, domain.ErrHandleClosed
			}
			s.logger.Warn("scan skipping unit", "unit", i, "error", err)
			continue
		}
		anchor, err := surf.UnitStart(i)
		if err != nil {
			continue
		}

		norm := strings.Join(strings.Fields(text), " ")
		hay := strings.ToLower(norm)
		from := 0
		for {
			at := strings.Index(hay[from:], needle)
			if at < 0 {
				break
			}
			at += from
			matches = append(matches, domain.SearchMatch{
				Anchor:  anchor,
				Excerpt: surface.Excerpt(norm, at, len(needle)),
				Unit:    i,
			})
			if len(matches) >= s.limit {
				s.logger.Info("scan hit match limit", "query", query, "limit", s.limit)
				return matches, nil
			}
			from = at + len(needle)
		}
	}
	return matches, nil
}

// Interactive runs the engine-native per-unit search across the whole
// book with a bounded worker pool, overlays every hit, and primes the
// cursor before the first match.
func (s *SearchService) Interactive(ctx context.Context, query string) ([]domain.SearchMatch, error) {
	surf := s.attachedSurface()
	if surf == nil {
		return nil, domain.ErrNoActiveSession
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Message: "query is required"}
	}

	s.clearOverlays()

	count, err := surf.UnitCount()
	if err != nil {
		return nil, err
	}

	perUnit := make([][]domain.SearchMatch, count)
	sem := make(chan struct{}, s.workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}
			found, err := surf.SearchUnit(gctx, i, query)
			if err != nil {
				if errors.Is(err, domain.ErrHandleClosed) {
					return err
				}
				s.logger.Warn("search skipping unit", "unit", i, "error", err)
				return nil
			}
			perUnit[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matches []domain.SearchMatch
	for _, found := range perUnit {
		matches = append(matches, found...)
	}
	for _, m := range matches {
		if err := surf.AddOverlay(m.Anchor, domain.OverlayMatch, matchStyle); err != nil {
			s.logger.Debug("match overlay not placed", "anchor", m.Anchor, "error", err)
		}
	}

	s.mu.Lock()
	s.matches = matches
	s.cursor = -1
	s.query = query
	s.mu.Unlock()

	s.logger.Info("interactive search ready", "query", query, "matches", len(matches))
	return append([]domain.SearchMatch(nil), matches...), nil
}

// Next advances the cursor with wraparound, restyles the active match and
// navigates to it.
func (s *SearchService) Next(ctx context.Context) (*domain.SearchMatch, int, error) {
	return s.move(ctx, func(cursor, n int) int {
		if cursor < 0 {
			return 0
		}
		return (cursor + 1) % n
	})
}

// Prev moves the cursor backwards; from the first match or an unset
// cursor it wraps to the last.
func (s *SearchService) Prev(ctx context.Context) (*domain.SearchMatch, int, error) {
	return s.move(ctx, func(cursor, n int) int {
		if cursor <= 0 {
			return n - 1
		}
		return cursor - 1
	})
}

func (s *SearchService) move(ctx context.Context, step func(cursor, n int) int) (*domain.SearchMatch, int, error) {
	s.mu.Lock()
	surf := s.surface
	if surf == nil {
		s.mu.Unlock()
		return nil, 0, domain.ErrNoActiveSession
	}
	if len(s.matches) == 0 {
		s.mu.Unlock()
		return nil, 0, domain.ErrNoActiveSearch
	}
	prev := s.cursor
	next := step(s.cursor, len(s.matches))
	s.cursor = next
	var prevMatch *domain.SearchMatch
	if prev >= 0 && prev != next {
		m := s.matches[prev]
		prevMatch = &m
	}
	current := s.matches[next]
	s.mu.Unlock()

	// Demote the previously active match, promote the new one. Overlay
	// errors degrade the styling, not the navigation.
	if prevMatch != nil {
		_ = surf.RemoveOverlay(prevMatch.Anchor, domain.OverlayActiveMatch)
		if err := surf.AddOverlay(prevMatch.Anchor, domain.OverlayMatch, matchStyle); err != nil {
			s.logger.Debug("match overlay not restored", "anchor", prevMatch.Anchor, "error", err)
		}
	}
	_ = surf.RemoveOverlay(current.Anchor, domain.OverlayMatch)
	if err := surf.AddOverlay(current.Anchor, domain.OverlayActiveMatch, activeMatchStyle); err != nil {
		s.logger.Debug("active match overlay not placed", "anchor", current.Anchor, "error", err)
	}

	if err := surf.RenderAt(ctx, current.Anchor); err != nil {
		return nil, 0, fmt.Errorf("failed to navigate to match: %w", err)
	}
	return &current, next, nil
}

// CloseInteractive removes every match overlay and resets the cursor.
// Closing with no active search is a no-op.
func (s *SearchService) CloseInteractive() error {
	s.clearOverlays()
	s.mu.Lock()
	s.matches = nil
	s.cursor = -1
	s.query = ""
	s.mu.Unlock()
	return nil
}

func (s *SearchService) clearOverlays() {
	s.mu.Lock()
	surf := s.surface
	matches := append([]domain.SearchMatch(nil), s.matches...)
	s.mu.Unlock()
	if surf == nil {
		return
	}
	for _, m := range matches {
		_ = surf.RemoveOverlay(m.Anchor, domain.OverlayMatch)
		_ = surf.RemoveOverlay(m.Anchor, domain.OverlayActiveMatch)
	}
}

func (s *SearchService) attachedSurface() domain.ReadingSurface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}
