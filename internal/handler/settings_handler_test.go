package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ebook-reader/internal/domain"
)

type MockSettingsStore struct {
	settings domain.Settings
	saves    int
}

func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{settings: domain.DefaultSettings()}
}

func (m *MockSettingsStore) Load() domain.Settings {
	return m.settings
}

func (m *MockSettingsStore) Save(s domain.Settings) error {
	m.settings = s
	m.saves++
	return nil
}

func TestSettingsHandler_Get(t *testing.T) {
	store := NewMockSettingsStore()
	handler := NewSettingsHandler(store, NewMockChatService(), NewMockHandlerLogger())

	req := httptest.NewRequest("GET", "/api/v1/settings", nil)
	rr := httptest.NewRecorder()

	handler.Get(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}

	var settings domain.Settings
	if err := json.Unmarshal(rr.Body.Bytes(), &settings); err != nil {
		t.Errorf("Failed to unmarshal response: %v", err)
	}
	if settings.FontSize != domain.DefaultSettings().FontSize {
		t.Errorf("Expected default font size %d, got %d", domain.DefaultSettings().FontSize, settings.FontSize)
	}
}

func TestSettingsHandler_UpdateKeepsAbsentFields(t *testing.T) {
	store := NewMockSettingsStore()
	handler := NewSettingsHandler(store, NewMockChatService(), NewMockHandlerLogger())

	// Only theme in the body; everything else keeps its current value.
	req := httptest.NewRequest("PUT", "/api/v1/settings", bytes.NewBufferString(`{"theme":"dark"}`))
	rr := httptest.NewRecorder()

	handler.Update(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if store.settings.Theme != "dark" {
		t.Errorf("Expected theme 'dark', got '%s'", store.settings.Theme)
	}
	if store.settings.FontSize != domain.DefaultSettings().FontSize {
		t.Errorf("Expected font size kept at %d, got %d", domain.DefaultSettings().FontSize, store.settings.FontSize)
	}
	if store.saves != 1 {
		t.Errorf("Expected 1 save, got %d", store.saves)
	}
}

func TestSettingsHandler_UpdatePropagatesModel(t *testing.T) {
	store := NewMockSettingsStore()
	chat := NewMockChatService()
	chat.history = []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "hi"}}
	handler := NewSettingsHandler(store, chat, NewMockHandlerLogger())

	req := httptest.NewRequest("PUT", "/api/v1/settings", bytes.NewBufferString(`{"ai_model":"gemini-2.5-pro"}`))
	rr := httptest.NewRecorder()

	handler.Update(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if chat.model != "gemini-2.5-pro" {
		t.Errorf("Expected chat model switched, got '%s'", chat.model)
	}
	// Switching models resets the conversation.
	if len(chat.history) != 0 {
		t.Errorf("Expected conversation reset, got %d messages", len(chat.history))
	}
}

func TestSettingsHandler_UpdateValidation(t *testing.T) {
	store := NewMockSettingsStore()
	handler := NewSettingsHandler(store, NewMockChatService(), NewMockHandlerLogger())

	cases := []struct {
		name string
		body string
	}{
		{"font size too small", `{"font_size":4}`},
		{"font size too large", `{"font_size":100}`},
		{"empty model", `{"ai_model":""}`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest("PUT", "/api/v1/settings", bytes.NewBufferString(tc.body))
		rr := httptest.NewRecorder()
		handler.Update(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: Expected status code %d, got %d", tc.name, http.StatusBadRequest, rr.Code)
		}
	}
	if store.saves != 0 {
		t.Errorf("Expected no saves on validation failure, got %d", store.saves)
	}
}

func TestSettingsHandler_UpdateUnknownNoteModeDefaults(t *testing.T) {
	store := NewMockSettingsStore()
	handler := NewSettingsHandler(store, NewMockChatService(), NewMockHandlerLogger())

	req := httptest.NewRequest("PUT", "/api/v1/settings", bytes.NewBufferString(`{"ai_note_mode":"sticky"}`))
	rr := httptest.NewRecorder()

	handler.Update(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if store.settings.AINoteMode != domain.NoteAnchored {
		t.Errorf("Expected note mode defaulted to anchored, got '%s'", store.settings.AINoteMode)
	}
}
