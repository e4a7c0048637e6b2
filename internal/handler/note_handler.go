package handler

import (
	"net/http"
	"strings"

	"ebook-reader/internal/domain"

	"github.com/gorilla/mux"
)

// NoteHandler handles inline AI note HTTP requests
type NoteHandler struct {
	notes  domain.NoteService
	logger domain.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes domain.NoteService, logger domain.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		logger: logger,
	}
}

type createNoteRequest struct {
	Trigger string `json:"trigger"`
	Context string `json:"context"`
	Mode    string `json:"mode"`
}

type streamChunk struct {
	Text string `json:"text"`
}

// List handles getting all live notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes := h.notes.List()
	if notes == nil {
		notes = make([]*domain.InlineNote, 0)
	}
	writeJSON(w, http.StatusOK, notes)
}

// Create handles creating a note awaiting its prompt
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	note, err := h.notes.Create(domain.PositionRef(req.Trigger), req.Context, domain.NoteMode(req.Mode))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// Get handles getting a single note
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]

	note, err := h.notes.Get(noteID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

type notePromptRequest struct {
	Prompt string `json:"prompt"`
}

// Prompt submits the user prompt and streams the reply as SSE chunk
// events, ending with a done event carrying the settled note. Stream
// failures settle the note with placeholder text rather than erroring.
func (h *NoteHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]

	var req notePromptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	// Resolve the note before committing to the event stream so a bad id
	// still gets a plain 404.
	if _, err := h.notes.Get(noteID); err != nil {
		writeServiceError(w, err)
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		return
	}

	note, err := h.notes.SubmitPrompt(r.Context(), noteID, req.Prompt, func(chunk string) error {
		return sseEvent(w, flusher, "chunk", streamChunk{Text: chunk})
	})
	if err != nil {
		h.logger.Error("Note prompt failed", err, "note_id", noteID)
		_ = sseEvent(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}

	_ = sseEvent(w, flusher, "done", note)
}

// Dismiss removes a note and its mount. Dismissing an unknown or already
// dismissed note is a no-op.
func (h *NoteHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	noteID := mux.Vars(r)["id"]

	h.notes.Dismiss(noteID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Note dismissed"})
}
