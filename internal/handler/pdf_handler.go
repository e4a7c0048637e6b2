package handler

import (
	"net/http"
	"strconv"

	"ebook-reader/internal/domain"

	"github.com/gorilla/mux"
)

// PDFHandler handles HTTP requests for the page-based PDF path
type PDFHandler struct {
	pdf    domain.PDFService
	logger domain.Logger
}

// NewPDFHandler creates a new PDF handler
func NewPDFHandler(pdf domain.PDFService, logger domain.Logger) *PDFHandler {
	return &PDFHandler{
		pdf:    pdf,
		logger: logger,
	}
}

// Open opens a PDF book for page access
func (h *PDFHandler) Open(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	doc, err := h.pdf.Open(r.Context(), bookID)
	if err != nil {
		h.logger.Error("Open PDF failed", err, "book_id", bookID)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Page returns the text of one page
func (h *PDFHandler) Page(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "page number must be an integer")
		return
	}

	page, err := h.pdf.Page(bookID, number)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type savePageRequest struct {
	Page int `json:"page"`
}

// SavePosition records the current page as the reading position
func (h *PDFHandler) SavePosition(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	var req savePageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.pdf.SavePage(bookID, req.Page); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Position saved"})
}

// Close evicts the open PDF document
func (h *PDFHandler) Close(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathBookID(w, r)
	if !ok {
		return
	}

	h.pdf.Close(bookID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "PDF closed"})
}
