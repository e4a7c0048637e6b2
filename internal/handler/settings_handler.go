package handler

import (
	"net/http"

	"ebook-reader/internal/domain"
)

// SettingsHandler handles reader settings HTTP requests
type SettingsHandler struct {
	settings domain.SettingsRepository
	chat     domain.ChatService
	logger   domain.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings domain.SettingsRepository, chat domain.ChatService, logger domain.Logger) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		chat:     chat,
		logger:   logger,
	}
}

// Get returns the current settings merged over defaults
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.Load())
}

// Update saves settings. Fields absent from the body keep their current
// values. A changed AI model is pushed to the chat service, which resets
// the conversation.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	settings := h.settings.Load()
	if err := decodeJSON(r, &settings); err != nil {
		writeServiceError(w, err)
		return
	}

	if settings.FontSize < 8 || settings.FontSize > 72 {
		writeError(w, http.StatusBadRequest, "font_size out of range")
		return
	}
	if settings.AIModel == "" {
		writeError(w, http.StatusBadRequest, "ai_model is required")
		return
	}
	if settings.AINoteMode != domain.NoteAnchored && settings.AINoteMode != domain.NoteFloating {
		settings.AINoteMode = domain.DefaultSettings().AINoteMode
	}

	if err := h.settings.Save(settings); err != nil {
		h.logger.Error("Save settings failed", err)
		writeServiceError(w, err)
		return
	}

	h.chat.SetModel(settings.AIModel)
	writeJSON(w, http.StatusOK, settings)
}
