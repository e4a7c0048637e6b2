package handler

import (
	"errors"
	"net/http"
	"strings"

	"ebook-reader/internal/domain"

	"github.com/gorilla/mux"
)

// AnnotationHandler handles annotation and bookmark HTTP requests
type AnnotationHandler struct {
	annotations domain.AnnotationService
	logger      domain.Logger
}

// NewAnnotationHandler creates a new annotation handler
func NewAnnotationHandler(annotations domain.AnnotationService, logger domain.Logger) *AnnotationHandler {
	return &AnnotationHandler{
		annotations: annotations,
		logger:      logger,
	}
}

type createAnnotationRequest struct {
	Anchor string   `json:"anchor"`
	Quote  string   `json:"quote"`
	Note   string   `json:"note"`
	Color  string   `json:"color"`
	Style  string   `json:"style"`
	Tags   []string `json:"tags"`
}

func (r createAnnotationRequest) draft() domain.AnnotationDraft {
	return domain.AnnotationDraft{
		Note:  r.Note,
		Color: domain.HighlightColor(r.Color),
		Style: domain.AnnotationStyle(r.Style),
		Tags:  r.Tags,
	}
}

// List handles getting all annotations for a book
func (h *AnnotationHandler) List(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	annotations, err := h.annotations.List(bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Ensure JSON is [] not null when there are no annotations.
	if annotations == nil {
		annotations = make([]domain.Annotation, 0)
	}
	writeJSON(w, http.StatusOK, annotations)
}

// Create handles creating an annotation. A record at the same anchor is
// replaced.
func (h *AnnotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	var req createAnnotationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	annotation, err := h.annotations.Create(bookID, domain.PositionRef(req.Anchor), req.Quote, req.draft())
	if err != nil {
		// The record persists even when the overlay loses its race with a
		// reflow. Only report errors that lost the record too.
		if annotation == nil || !errors.Is(err, domain.ErrInvalidAnchor) {
			h.logger.Error("Create annotation failed", err, "book_id", bookID, "anchor", req.Anchor)
			writeServiceError(w, err)
			return
		}
		h.logger.Warn("annotation saved without overlay", "book_id", bookID, "anchor", req.Anchor)
	}
	writeJSON(w, http.StatusCreated, annotation)
}

// Get handles getting a single annotation by anchor
func (h *AnnotationHandler) Get(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}
	anchor := mux.Vars(r)["anchor"]

	annotation, err := h.annotations.Get(bookID, domain.PositionRef(anchor))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, annotation)
}

type updateAnnotationRequest struct {
	Note  string   `json:"note"`
	Color string   `json:"color"`
	Style string   `json:"style"`
	Tags  []string `json:"tags"`
}

// Update handles editing the annotation at an anchor
func (h *AnnotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}
	anchor := mux.Vars(r)["anchor"]

	var req updateAnnotationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	draft := domain.AnnotationDraft{
		Note:  req.Note,
		Color: domain.HighlightColor(req.Color),
		Style: domain.AnnotationStyle(req.Style),
		Tags:  req.Tags,
	}
	annotation, err := h.annotations.Update(bookID, domain.PositionRef(anchor), draft)
	if err != nil {
		if annotation == nil || !errors.Is(err, domain.ErrInvalidAnchor) {
			writeServiceError(w, err)
			return
		}
		h.logger.Warn("annotation updated without overlay", "book_id", bookID, "anchor", anchor)
	}
	writeJSON(w, http.StatusOK, annotation)
}

// Delete handles removing the annotation at an anchor
func (h *AnnotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}
	anchor := mux.Vars(r)["anchor"]

	if err := h.annotations.Delete(bookID, domain.PositionRef(anchor)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Annotation deleted"})
}

type addBookmarkRequest struct {
	Anchor string `json:"anchor"`
	Quote  string `json:"quote"`
}

// ListBookmarks handles getting all bookmarks for a book
func (h *AnnotationHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	bookmarks, err := h.annotations.ListBookmarks(bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if bookmarks == nil {
		bookmarks = make([]domain.Bookmark, 0)
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

// AddBookmark handles placing a bookmark at an anchor
func (h *AnnotationHandler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	var req addBookmarkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	bookmark, err := h.annotations.AddBookmark(bookID, domain.PositionRef(req.Anchor), req.Quote)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookmark)
}

// RemoveBookmark handles removing the bookmark at an anchor
func (h *AnnotationHandler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}
	anchor := mux.Vars(r)["anchor"]

	if err := h.annotations.RemoveBookmark(bookID, domain.PositionRef(anchor)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bookmark removed"})
}

// pathBookID extracts the {id} path variable, writing a 400 when absent.
func pathBookID(w http.ResponseWriter, r *http.Request) (string, bool) {
	bookID := strings.TrimSpace(mux.Vars(r)["id"])
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "Book ID is required")
		return "", false
	}
	return bookID, true
}
