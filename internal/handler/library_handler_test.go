package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ebook-reader/internal/domain"

	"github.com/gorilla/mux"
)

type MockLibraryService struct {
	books     map[string]*domain.Book
	importErr error
}

func NewMockLibraryService() *MockLibraryService {
	return &MockLibraryService{
		books: make(map[string]*domain.Book),
	}
}

func (m *MockLibraryService) Import(ctx context.Context, fileName string, r io.Reader) (*domain.Book, error) {
	if m.importErr != nil {
		return nil, m.importErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	book := &domain.Book{
		ID:        "alpha-bob",
		Title:     "Alpha",
		Author:    "Bob",
		Format:    domain.FormatEPUB,
		SizeBytes: int64(len(data)),
		AddedAt:   time.Now(),
	}
	m.books[book.ID] = book
	return book, nil
}

func (m *MockLibraryService) List() ([]*domain.Book, error) {
	var books []*domain.Book
	for _, book := range m.books {
		books = append(books, book)
	}
	return books, nil
}

func (m *MockLibraryService) Get(id string) (*domain.Book, error) {
	if book, ok := m.books[id]; ok {
		return book, nil
	}
	return nil, domain.ErrBookNotFound
}

func (m *MockLibraryService) Delete(id string) error {
	if _, ok := m.books[id]; !ok {
		return domain.ErrBookNotFound
	}
	delete(m.books, id)
	return nil
}

func libraryRouter(h *LibraryHandler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/library", h.List).Methods("GET")
	router.HandleFunc("/api/v1/library/import", h.Import).Methods("POST")
	router.HandleFunc("/api/v1/library/{id}", h.Get).Methods("GET")
	router.HandleFunc("/api/v1/library/{id}", h.Delete).Methods("DELETE")
	return router
}

// multipartUpload builds a multipart body with one file field.
func multipartUpload(t *testing.T, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestLibraryHandler_List(t *testing.T) {
	service := NewMockLibraryService()
	service.books["alpha-bob"] = &domain.Book{ID: "alpha-bob", Title: "Alpha", Format: domain.FormatEPUB}
	handler := NewLibraryHandler(service, NewMockHandlerLogger())
	router := libraryRouter(handler)

	req := httptest.NewRequest("GET", "/api/v1/library", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}

	var books []*domain.Book
	if err := json.Unmarshal(rr.Body.Bytes(), &books); err != nil {
		t.Errorf("Failed to unmarshal response: %v", err)
	}
	if len(books) != 1 {
		t.Errorf("Expected 1 book, got %d", len(books))
	}
	if books[0].ID != "alpha-bob" {
		t.Errorf("Expected book ID 'alpha-bob', got '%s'", books[0].ID)
	}
}

func TestLibraryHandler_ListEmptyIsArray(t *testing.T) {
	handler := NewLibraryHandler(NewMockLibraryService(), NewMockHandlerLogger())
	router := libraryRouter(handler)

	req := httptest.NewRequest("GET", "/api/v1/library", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", body)
	}
}

func TestLibraryHandler_Import(t *testing.T) {
	service := NewMockLibraryService()
	handler := NewLibraryHandler(service, NewMockHandlerLogger())
	router := libraryRouter(handler)

	body, contentType := multipartUpload(t, "alpha.epub", []byte("epub bytes"))
	req := httptest.NewRequest("POST", "/api/v1/library/import", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, status)
	}

	var book domain.Book
	if err := json.Unmarshal(rr.Body.Bytes(), &book); err != nil {
		t.Errorf("Failed to unmarshal response: %v", err)
	}
	if book.ID != "alpha-bob" {
		t.Errorf("Expected book ID 'alpha-bob', got '%s'", book.ID)
	}
}

func TestLibraryHandler_ImportRequiresFile(t *testing.T) {
	handler := NewLibraryHandler(NewMockLibraryService(), NewMockHandlerLogger())
	router := libraryRouter(handler)

	req := httptest.NewRequest("POST", "/api/v1/library/import", bytes.NewBufferString("not multipart"))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, status)
	}
}

func TestLibraryHandler_ImportUnsupportedFormat(t *testing.T) {
	service := NewMockLibraryService()
	service.importErr = domain.ErrUnsupportedFormat
	handler := NewLibraryHandler(service, NewMockHandlerLogger())
	router := libraryRouter(handler)

	body, contentType := multipartUpload(t, "notes.docx", []byte("doc bytes"))
	req := httptest.NewRequest("POST", "/api/v1/library/import", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnsupportedMediaType {
		t.Errorf("Expected status code %d, got %d", http.StatusUnsupportedMediaType, status)
	}
}

func TestLibraryHandler_GetNotFound(t *testing.T) {
	handler := NewLibraryHandler(NewMockLibraryService(), NewMockHandlerLogger())
	router := libraryRouter(handler)

	req := httptest.NewRequest("GET", "/api/v1/library/missing", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, status)
	}
}

func TestLibraryHandler_Delete(t *testing.T) {
	service := NewMockLibraryService()
	service.books["alpha-bob"] = &domain.Book{ID: "alpha-bob"}
	handler := NewLibraryHandler(service, NewMockHandlerLogger())
	router := libraryRouter(handler)

	req := httptest.NewRequest("DELETE", "/api/v1/library/alpha-bob", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, status)
	}
	if len(service.books) != 0 {
		t.Errorf("Expected book removed, got %d books", len(service.books))
	}
}
