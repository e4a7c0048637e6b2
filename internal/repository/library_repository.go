package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ebook-reader/internal/domain"
)

// LibraryRepository implements domain.LibraryRepository over the blob
// store. Mutations persist the whole index synchronously; the library is
// small and changes rarely.
type LibraryRepository struct {
	store  domain.BlobStore
	logger domain.Logger

	mu     sync.Mutex
	books  map[string]*domain.Book
	loaded bool
}

func NewLibraryRepository(store domain.BlobStore, logger domain.Logger) *LibraryRepository {
	return &LibraryRepository{
		store:  store,
		logger: logger,
		books:  make(map[string]*domain.Book),
	}
}

func (r *LibraryRepository) Upsert(book *domain.Book) error {
	if book == nil || book.ID == "" {
		return fmt.Errorf("book id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	cp := *book
	r.books[book.ID] = &cp
	return r.persistLocked()
}

func (r *LibraryRepository) GetByID(id string) (*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	book, ok := r.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, id)
	}
	cp := *book
	return &cp, nil
}

// List returns the library ordered by recency: last opened first, then
// most recently added.
func (r *LibraryRepository) List() ([]*domain.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	out := make([]*domain.Book, 0, len(r.books))
	for _, book := range r.books {
		cp := *book
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastOpenedAt.Equal(out[j].LastOpenedAt) {
			return out[i].LastOpenedAt.After(out[j].LastOpenedAt)
		}
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.After(out[j].AddedAt)
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (r *LibraryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	if _, ok := r.books[id]; !ok {
		return nil
	}
	delete(r.books, id)
	return r.persistLocked()
}

func (r *LibraryRepository) TouchOpened(id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	book, ok := r.books[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrBookNotFound, id)
	}
	book.LastOpenedAt = at
	return r.persistLocked()
}

func (r *LibraryRepository) loadLocked() {
	if r.loaded {
		return
	}
	r.loaded = true
	raw, err := r.store.Get(domain.KeyLibrary)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			r.logger.Warn("failed to read library index, starting empty", "error", err)
		}
		return
	}
	var books map[string]*domain.Book
	if err := json.Unmarshal(raw, &books); err != nil {
		r.logger.Warn("failed to decode library index, starting empty", "error", err)
		return
	}
	if books != nil {
		r.books = books
	}
}

func (r *LibraryRepository) persistLocked() error {
	raw, err := json.Marshal(r.books)
	if err != nil {
		return fmt.Errorf("failed to encode library index: %w", err)
	}
	return r.store.Put(domain.KeyLibrary, raw)
}
