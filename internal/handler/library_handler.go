package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"ebook-reader/internal/domain"

	"github.com/gorilla/mux"
)

// LibraryHandler handles library-related HTTP requests
type LibraryHandler struct {
	library domain.LibraryService
	logger  domain.Logger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(library domain.LibraryService, logger domain.Logger) *LibraryHandler {
	return &LibraryHandler{
		library: library,
		logger:  logger,
	}
}

// List handles getting all books in the library
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.library.List()
	if err != nil {
		h.logger.Error("Failed to list library", err)
		writeServiceError(w, err)
		return
	}

	// Ensure JSON is [] not null when the library is empty.
	if books == nil {
		books = make([]*domain.Book, 0)
	}

	writeJSON(w, http.StatusOK, books)
}

// Import handles file upload into the library
func (h *LibraryHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	// Sanitize filename (strip any path components)
	fileName := strings.TrimSpace(filepath.Base(header.Filename))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "File name is required")
		return
	}

	book, err := h.library.Import(r.Context(), fileName, file)
	if err != nil {
		h.logger.Error("Import failed", err, "file", fileName)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, book)
}

// Get handles getting a specific book
func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookID := vars["id"]
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "Book ID is required")
		return
	}

	book, err := h.library.Get(bookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, book)
}

// Delete handles removing a book, its file and its user data
func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookID := vars["id"]
	if bookID == "" {
		writeError(w, http.StatusBadRequest, "Book ID is required")
		return
	}

	if err := h.library.Delete(bookID); err != nil {
		h.logger.Error("Delete failed", err, "book_id", bookID)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Book deleted successfully"})
}
