package handler

import (
	"net/http"
	"strings"

	"ebook-reader/internal/domain"
)

// ReaderHandler exposes the active reading session over HTTP
type ReaderHandler struct {
	reader domain.ReaderService
	logger domain.Logger
}

// NewReaderHandler creates a new reader handler
func NewReaderHandler(reader domain.ReaderService, logger domain.Logger) *ReaderHandler {
	return &ReaderHandler{
		reader: reader,
		logger: logger,
	}
}

type openSessionRequest struct {
	BookID string `json:"book_id"`
}

// Open opens a book, replacing any previous session
func (h *ReaderHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	req.BookID = strings.TrimSpace(req.BookID)
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}

	info, err := h.reader.OpenBook(r.Context(), req.BookID)
	if err != nil {
		h.logger.Error("Open book failed", err, "book_id", req.BookID)
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Close tears down the active session
func (h *ReaderHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.reader.CloseActive(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session closed"})
}

// Active returns the current session info
func (h *ReaderHandler) Active(w http.ResponseWriter, r *http.Request) {
	info, err := h.reader.Active()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type gotoRequest struct {
	Position string `json:"position"`
}

// GoTo jumps the session to an anchor
func (h *ReaderHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req gotoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if strings.TrimSpace(req.Position) == "" {
		writeError(w, http.StatusBadRequest, "position is required")
		return
	}

	info, err := h.reader.GoTo(r.Context(), domain.PositionRef(req.Position))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Next advances the session one content unit
func (h *ReaderHandler) Next(w http.ResponseWriter, r *http.Request) {
	info, err := h.reader.NextUnit(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Prev moves the session back one content unit
func (h *ReaderHandler) Prev(w http.ResponseWriter, r *http.Request) {
	info, err := h.reader.PrevUnit(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Content returns the currently visible content unit
func (h *ReaderHandler) Content(w http.ResponseWriter, r *http.Request) {
	unit, err := h.reader.VisibleContent()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unit)
}

// Overlays returns the overlays mounted on the visible unit
func (h *ReaderHandler) Overlays(w http.ResponseWriter, r *http.Request) {
	overlays, err := h.reader.Overlays()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if overlays == nil {
		overlays = make([]domain.Overlay, 0)
	}
	writeJSON(w, http.StatusOK, overlays)
}

type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resize reports a viewport size change
func (h *ReaderHandler) Resize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.reader.Resize(req.Width, req.Height); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Resized"})
}

type reportSelectionRequest struct {
	Text   string      `json:"text"`
	Anchor string      `json:"anchor"`
	Rect   domain.Rect `json:"rect"`
}

// Selection reports a settled text selection from the view
func (h *ReaderHandler) Selection(w http.ResponseWriter, r *http.Request) {
	var req reportSelectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	sel := domain.Selection{
		Text:   req.Text,
		Anchor: domain.PositionRef(req.Anchor),
		Rect:   req.Rect,
	}
	if err := h.reader.ReportSelection(sel); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Selection reported"})
}
