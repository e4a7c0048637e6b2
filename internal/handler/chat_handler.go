package handler

import (
	"net/http"
	"strings"

	"ebook-reader/internal/domain"
)

// ChatHandler handles conversational AI HTTP requests
type ChatHandler struct {
	chat   domain.ChatService
	logger domain.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat domain.ChatService, logger domain.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

// Send submits a chat message and streams the reply as SSE chunk events,
// ending with a done event carrying the settled message. A failed stream
// still emits done: the transcript keeps the failure placeholder.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		return
	}

	msg, err := h.chat.Send(r.Context(), req.Prompt, func(chunk string) error {
		return sseEvent(w, flusher, "chunk", streamChunk{Text: chunk})
	})
	if err != nil {
		h.logger.Error("Chat send failed", err)
		if msg == nil {
			_ = sseEvent(w, flusher, "error", map[string]string{"error": err.Error()})
			return
		}
	}

	_ = sseEvent(w, flusher, "done", msg)
}

// History returns the transcript of the active conversation
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.chat.History()
	if history == nil {
		history = make([]domain.ChatMessage, 0)
	}
	writeJSON(w, http.StatusOK, history)
}

// Reset discards the conversation
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.chat.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation reset"})
}

// Model returns the model the conversation currently targets
func (h *ChatHandler) Model(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"model": h.chat.Model()})
}
