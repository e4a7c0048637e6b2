package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ebook-reader/internal/domain"
)

type MockChatService struct {
	chunks    []string
	streamErr error
	history   []domain.ChatMessage
	model     string
	staged    string
	docCtx    string
	resets    int
}

func NewMockChatService() *MockChatService {
	return &MockChatService{
		chunks: []string{"It is ", "a whale."},
		model:  "gemini-2.0-flash-001",
	}
}

func (m *MockChatService) Send(ctx context.Context, prompt string, onChunk func(string) error) (*domain.ChatMessage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, &domain.ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	m.history = append(m.history, domain.ChatMessage{Role: domain.ChatRoleUser, Content: prompt, CreatedAt: time.Now()})
	if m.streamErr != nil {
		msg := domain.ChatMessage{Role: domain.ChatRoleModel, Content: "The response failed to generate.", Failed: true, CreatedAt: time.Now()}
		m.history = append(m.history, msg)
		return &msg, m.streamErr
	}
	var full strings.Builder
	for _, chunk := range m.chunks {
		full.WriteString(chunk)
		if onChunk != nil {
			if err := onChunk(chunk); err != nil {
				return nil, err
			}
		}
	}
	msg := domain.ChatMessage{Role: domain.ChatRoleModel, Content: full.String(), CreatedAt: time.Now()}
	m.history = append(m.history, msg)
	return &msg, nil
}

func (m *MockChatService) OneShot(ctx context.Context, prompt string) (string, error) {
	return strings.Join(m.chunks, ""), nil
}

func (m *MockChatService) History() []domain.ChatMessage {
	return m.history
}

func (m *MockChatService) Reset() {
	m.history = nil
	m.resets++
}

func (m *MockChatService) SetModel(model string) {
	if model != m.model {
		m.model = model
		m.history = nil
	}
}

func (m *MockChatService) Model() string {
	return m.model
}

func (m *MockChatService) StagePassage(text string) {
	m.staged = text
}

func (m *MockChatService) SetDocumentContext(text string) {
	m.docCtx = text
}

func TestChatHandler_SendStreamsSSE(t *testing.T) {
	service := NewMockChatService()
	handler := NewChatHandler(service, NewMockHandlerLogger())

	body := bytes.NewBufferString(`{"prompt":"What surfaced?"}`)
	req := httptest.NewRequest("POST", "/api/v1/chat", body)
	rr := httptest.NewRecorder()

	handler.Send(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected event stream content type, got '%s'", ct)
	}

	events := rr.Body.String()
	if strings.Count(events, "event: chunk") != 2 {
		t.Errorf("Expected 2 chunk events, got body %q", events)
	}
	if !strings.Contains(events, `{"text":"It is "}`) {
		t.Errorf("Expected first chunk payload in body %q", events)
	}
	if !strings.Contains(events, "event: done") {
		t.Errorf("Expected done event in body %q", events)
	}
	if !strings.Contains(events, `"content":"It is a whale."`) {
		t.Errorf("Expected settled message in done event, got body %q", events)
	}
}

func TestChatHandler_SendValidation(t *testing.T) {
	service := NewMockChatService()
	handler := NewChatHandler(service, NewMockHandlerLogger())

	req := httptest.NewRequest("POST", "/api/v1/chat", bytes.NewBufferString(`{"prompt":"   "}`))
	rr := httptest.NewRecorder()

	handler.Send(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, status)
	}
	if len(service.history) != 0 {
		t.Errorf("Expected no history entries, got %d", len(service.history))
	}
}

func TestChatHandler_SendStreamFailureKeepsTranscript(t *testing.T) {
	service := NewMockChatService()
	service.streamErr = domain.ErrStreamFailure
	handler := NewChatHandler(service, NewMockHandlerLogger())

	req := httptest.NewRequest("POST", "/api/v1/chat", bytes.NewBufferString(`{"prompt":"hello"}`))
	rr := httptest.NewRecorder()

	handler.Send(rr, req)

	// The stream already started; the failed message still arrives as done.
	events := rr.Body.String()
	if !strings.Contains(events, "event: done") {
		t.Errorf("Expected done event in body %q", events)
	}
	if !strings.Contains(events, `"failed":true`) {
		t.Errorf("Expected failed flag in done event, got body %q", events)
	}
}

func TestChatHandler_History(t *testing.T) {
	service := NewMockChatService()
	service.history = []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "hi"},
		{Role: domain.ChatRoleModel, Content: "hello"},
	}
	handler := NewChatHandler(service, NewMockHandlerLogger())

	req := httptest.NewRequest("GET", "/api/v1/chat/history", nil)
	rr := httptest.NewRecorder()

	handler.History(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if !strings.Contains(rr.Body.String(), `"content":"hello"`) {
		t.Errorf("Expected history contents, got %q", rr.Body.String())
	}
}

func TestChatHandler_HistoryEmptyIsArray(t *testing.T) {
	handler := NewChatHandler(NewMockChatService(), NewMockHandlerLogger())

	req := httptest.NewRequest("GET", "/api/v1/chat/history", nil)
	rr := httptest.NewRecorder()

	handler.History(rr, req)

	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", body)
	}
}

func TestChatHandler_Reset(t *testing.T) {
	service := NewMockChatService()
	service.history = []domain.ChatMessage{{Role: domain.ChatRoleUser, Content: "hi"}}
	handler := NewChatHandler(service, NewMockHandlerLogger())

	req := httptest.NewRequest("POST", "/api/v1/chat/reset", nil)
	rr := httptest.NewRecorder()

	handler.Reset(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if service.resets != 1 {
		t.Errorf("Expected 1 reset, got %d", service.resets)
	}
}
