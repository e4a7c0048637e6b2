package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ebook-reader/internal/domain"

	"github.com/gorilla/mux"
)

type MockPDFService struct {
	open  map[string][]string
	saved map[string]int
}

func NewMockPDFService() *MockPDFService {
	return &MockPDFService{
		open:  make(map[string][]string),
		saved: make(map[string]int),
	}
}

func (m *MockPDFService) Open(ctx context.Context, bookID string) (*domain.PDFDocument, error) {
	if bookID == "missing" {
		return nil, domain.ErrBookNotFound
	}
	pages := []string{"A whale on page one.", "Still reading on page two."}
	m.open[bookID] = pages
	return &domain.PDFDocument{
		BookID:    bookID,
		Metadata:  domain.BookMetadata{Title: "Field Guide", PageCount: len(pages)},
		PageCount: len(pages),
	}, nil
}

func (m *MockPDFService) Page(bookID string, number int) (*domain.PDFPage, error) {
	pages, ok := m.open[bookID]
	if !ok {
		return nil, domain.ErrHandleClosed
	}
	if number < 1 || number > len(pages) {
		return nil, &domain.ValidationError{Field: "page", Message: "page out of range"}
	}
	return &domain.PDFPage{Number: number, Text: pages[number-1]}, nil
}

func (m *MockPDFService) SavePage(bookID string, number int) error {
	if _, ok := m.open[bookID]; !ok {
		return domain.ErrHandleClosed
	}
	m.saved[bookID] = number
	return nil
}

func (m *MockPDFService) Close(bookID string) {
	delete(m.open, bookID)
}

func (m *MockPDFService) Extract(ctx context.Context, data []byte) (*domain.BookMetadata, []domain.PDFPage, error) {
	return &domain.BookMetadata{Title: "Field Guide"}, nil, nil
}

func pdfRouter(h *PDFHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/pdf/{id}/open", h.Open).Methods("POST")
	router.HandleFunc("/api/v1/pdf/{id}/pages/{number}", h.Page).Methods("GET")
	router.HandleFunc("/api/v1/pdf/{id}/position", h.SavePosition).Methods("PUT")
	router.HandleFunc("/api/v1/pdf/{id}/close", h.Close).Methods("POST")
	return router
}

func TestPDFHandler_OpenAndPage(t *testing.T) {
	service := NewMockPDFService()
	handler := NewPDFHandler(service, NewMockHandlerLogger())
	router := pdfRouter(handler)

	req := httptest.NewRequest("POST", "/api/v1/pdf/guide/open", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if !strings.Contains(rr.Body.String(), `"page_count":2`) {
		t.Errorf("Expected page count in response, got %q", rr.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/v1/pdf/guide/pages/1", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if !strings.Contains(rr.Body.String(), "A whale on page one.") {
		t.Errorf("Expected page text, got %q", rr.Body.String())
	}
}

func TestPDFHandler_OpenNotFound(t *testing.T) {
	handler := NewPDFHandler(NewMockPDFService(), NewMockHandlerLogger())
	router := pdfRouter(handler)

	req := httptest.NewRequest("POST", "/api/v1/pdf/missing/open", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, status)
	}
}

func TestPDFHandler_PageNumberMustBeInteger(t *testing.T) {
	service := NewMockPDFService()
	handler := NewPDFHandler(service, NewMockHandlerLogger())
	router := pdfRouter(handler)

	if _, err := service.Open(context.Background(), "guide"); err != nil {
		t.Fatalf("Failed to open PDF: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/pdf/guide/pages/one", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, status)
	}
}

func TestPDFHandler_PageWhenNotOpen(t *testing.T) {
	handler := NewPDFHandler(NewMockPDFService(), NewMockHandlerLogger())
	router := pdfRouter(handler)

	req := httptest.NewRequest("GET", "/api/v1/pdf/guide/pages/1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("Expected status code %d, got %d", http.StatusConflict, status)
	}
}

func TestPDFHandler_SavePosition(t *testing.T) {
	service := NewMockPDFService()
	handler := NewPDFHandler(service, NewMockHandlerLogger())
	router := pdfRouter(handler)

	if _, err := service.Open(context.Background(), "guide"); err != nil {
		t.Fatalf("Failed to open PDF: %v", err)
	}

	body := bytes.NewBufferString(`{"page":2}`)
	req := httptest.NewRequest("PUT", "/api/v1/pdf/guide/position", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if service.saved["guide"] != 2 {
		t.Errorf("Expected page 2 saved, got %d", service.saved["guide"])
	}
}
