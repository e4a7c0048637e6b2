package surface

import (
	"context"
	"fmt"
	"sync"

	"ebook-reader/internal/domain"
)

// epubEngine serves spine items as content units, extracting chapter text
// on first access and caching it for the life of the surface.
type epubEngine struct {
	book *epubBook

	mu    sync.Mutex
	cache map[int]*domain.ContentUnit
}

func newEpubEngine(data []byte) (*epubEngine, error) {
	book, err := parseEPUB(data)
	if err != nil {
		return nil, err
	}
	return &epubEngine{
		book:  book,
		cache: make(map[int]*domain.ContentUnit),
	}, nil
}

func (e *epubEngine) UnitCount() int { return len(e.book.spine) }

func (e *epubEngine) Unit(ctx context.Context, index int) (*domain.ContentUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(e.book.spine) {
		return nil, fmt.Errorf("unit %d out of range", index)
	}

	e.mu.Lock()
	if u, ok := e.cache[index]; ok {
		e.mu.Unlock()
		cp := *u
		return &cp, nil
	}
	e.mu.Unlock()

	item := e.book.spine[index]
	paras, err := e.book.chapterParagraphs(item)
	if err != nil {
		return nil, err
	}

	u := &domain.ContentUnit{Index: index, Label: item.label, Paragraphs: paras}
	e.mu.Lock()
	e.cache[index] = u
	e.mu.Unlock()
	cp := *u
	return &cp, nil
}
