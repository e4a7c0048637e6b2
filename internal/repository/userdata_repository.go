package repository

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ebook-reader/internal/domain"
)

// UserDataRepository implements domain.UserDataRepository over the blob
// store. The in-memory cache is authoritative: a read failure at startup
// degrades to empty bundles, a write failure is logged and swallowed, and
// the reader keeps working either way.
//
// All writes funnel through a single flush worker that persists the whole
// document, so concurrent saves serialize and the latest state wins. Rapid
// position updates coalesce into one write.
type UserDataRepository struct {
	store  domain.BlobStore
	logger domain.Logger

	mu       sync.Mutex
	books    map[string]*domain.BookUserData
	loaded   bool
	dirty    bool
	flushing bool
	idle     chan struct{}
}

func NewUserDataRepository(store domain.BlobStore, logger domain.Logger) *UserDataRepository {
	return &UserDataRepository{
		store:  store,
		logger: logger,
		books:  make(map[string]*domain.BookUserData),
	}
}

func (r *UserDataRepository) Get(bookID string) *domain.BookUserData {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	if data, ok := r.books[bookID]; ok {
		return cloneBookData(data)
	}
	return &domain.BookUserData{}
}

func (r *UserDataRepository) Update(bookID string, mutate func(*domain.BookUserData)) *domain.BookUserData {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	data, ok := r.books[bookID]
	if !ok {
		data = &domain.BookUserData{}
		r.books[bookID] = data
	}
	mutate(data)
	data.LastOpenedAt = time.Now()
	r.scheduleFlushLocked()
	return cloneBookData(data)
}

// SavePosition records the reading position. A negative progress keeps the
// previous value, for positions reported before the corpus index is ready.
func (r *UserDataRepository) SavePosition(bookID string, pos domain.PositionRef, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	data, ok := r.books[bookID]
	if !ok {
		data = &domain.BookUserData{}
		r.books[bookID] = data
	}
	data.LastPosition = pos
	if progress >= 0 {
		data.Progress = progress
	}
	data.LastOpenedAt = time.Now()
	r.scheduleFlushLocked()
}

func (r *UserDataRepository) Delete(bookID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadLocked()
	if _, ok := r.books[bookID]; !ok {
		return
	}
	delete(r.books, bookID)
	r.scheduleFlushLocked()
}

// Flush blocks until every scheduled write has hit the store.
func (r *UserDataRepository) Flush() {
	r.mu.Lock()
	if r.dirty && !r.flushing {
		r.flushing = true
		go r.flushLoop()
	}
	if !r.flushing {
		r.mu.Unlock()
		return
	}
	if r.idle == nil {
		r.idle = make(chan struct{})
	}
	ch := r.idle
	r.mu.Unlock()
	<-ch
}

func (r *UserDataRepository) loadLocked() {
	if r.loaded {
		return
	}
	r.loaded = true
	raw, err := r.store.Get(domain.KeyReaderData)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			r.logger.Warn("failed to read user data, starting empty", "error", err)
		}
		return
	}
	var books map[string]*domain.BookUserData
	if err := json.Unmarshal(raw, &books); err != nil {
		r.logger.Warn("failed to decode user data, starting empty", "error", err)
		return
	}
	if books != nil {
		r.books = books
	}
}

func (r *UserDataRepository) scheduleFlushLocked() {
	r.dirty = true
	if r.flushing {
		return
	}
	r.flushing = true
	go r.flushLoop()
}

func (r *UserDataRepository) flushLoop() {
	for {
		r.mu.Lock()
		if !r.dirty {
			r.flushing = false
			if r.idle != nil {
				close(r.idle)
				r.idle = nil
			}
			r.mu.Unlock()
			return
		}
		r.dirty = false
		raw, err := json.Marshal(r.books)
		r.mu.Unlock()

		if err != nil {
			r.logger.Error("failed to encode user data", err)
			continue
		}
		if err := r.store.Put(domain.KeyReaderData, raw); err != nil {
			r.logger.Error("failed to persist user data", err)
		}
	}
}

func cloneBookData(data *domain.BookUserData) *domain.BookUserData {
	cp := *data
	if data.Bookmarks != nil {
		cp.Bookmarks = append([]domain.Bookmark(nil), data.Bookmarks...)
	}
	if data.Annotations != nil {
		cp.Annotations = make([]domain.Annotation, len(data.Annotations))
		for i, a := range data.Annotations {
			cp.Annotations[i] = a
			if a.Tags != nil {
				cp.Annotations[i].Tags = append([]string(nil), a.Tags...)
			}
		}
	}
	return &cp
}
