package handler

import (
	"net/http"
	"strings"

	"ebook-reader/internal/domain"
)

// SelectionHandler exposes the selection-menu state machine
type SelectionHandler struct {
	selection domain.SelectionService
	logger    domain.Logger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(selection domain.SelectionService, logger domain.Logger) *SelectionHandler {
	return &SelectionHandler{
		selection: selection,
		logger:    logger,
	}
}

// Snapshot returns the current menu state
func (h *SelectionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.selection.Snapshot())
}

// Click reports a bare click. Within the debounce window of the menu
// opening it is ignored; after that it dismisses the menu.
func (h *SelectionHandler) Click(w http.ResponseWriter, r *http.Request) {
	h.selection.ReportClick()
	writeJSON(w, http.StatusOK, h.selection.Snapshot())
}

// Copy takes the selected text and closes the menu
func (h *SelectionHandler) Copy(w http.ResponseWriter, r *http.Request) {
	text, err := h.selection.Copy()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// Annotate takes the selection for the annotation modal and closes the menu
func (h *SelectionHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	sel, err := h.selection.Annotate()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// AskAI stages the selected passage for the next chat message
func (h *SelectionHandler) AskAI(w http.ResponseWriter, r *http.Request) {
	text, err := h.selection.AskAI()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// InlineAI creates an inline note awaiting its prompt
func (h *SelectionHandler) InlineAI(w http.ResponseWriter, r *http.Request) {
	note, err := h.selection.InlineAI()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

type overlayClickedRequest struct {
	Anchor string `json:"anchor"`
}

// OverlayClicked resolves a clicked overlay to its annotation for editing
func (h *SelectionHandler) OverlayClicked(w http.ResponseWriter, r *http.Request) {
	var req overlayClickedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	if strings.TrimSpace(req.Anchor) == "" {
		writeError(w, http.StatusBadRequest, "anchor is required")
		return
	}

	annotation, err := h.selection.OverlayClicked(domain.PositionRef(req.Anchor))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, annotation)
}

// Dismiss closes the menu without taking an action
func (h *SelectionHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.selection.Dismiss()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Dismissed"})
}
