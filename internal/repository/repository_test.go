package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ebook-reader/internal/domain"

	"cloud.google.com/go/vertexai/genai"
)

// MockLogger locks because the flush worker logs from its own goroutine.
type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.append("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.append("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.append("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.append("WARN: " + msg)
}

func (m *MockLogger) append(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *MockLogger) logged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), NewMockLogger())
	if err != nil {
		t.Fatalf("Expected no error creating store, got %v", err)
	}
	return store
}

func TestFileStore_PutAndGet(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("reader_data", []byte(`{"a":1}`)); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	data, err := store.Get("reader_data")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("Expected stored payload back, got %q", string(data))
	}
}

func TestFileStore_GetMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("nope")
	if !errors.Is(err, domain.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestFileStore_OverwriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, NewMockLogger())
	if err != nil {
		t.Fatalf("Expected no error creating store, got %v", err)
	}

	if err := store.Put("global_settings", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := store.Put("global_settings", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	data, err := store.Get("global_settings")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != `{"v":2}` {
		t.Errorf("Expected second write to win, got %q", string(data))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Expected no error listing dir, got %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Expected no temp file left behind, found %s", e.Name())
		}
	}
}

func TestUserDataRepository_GetReturnsEmptyBundle(t *testing.T) {
	repo := NewUserDataRepository(newTestStore(t), NewMockLogger())

	data := repo.Get("book1")
	if data == nil {
		t.Fatal("Expected a bundle, got nil")
	}
	if len(data.Annotations) != 0 || len(data.Bookmarks) != 0 {
		t.Errorf("Expected empty bundle, got %+v", data)
	}
}

func TestUserDataRepository_UpdatePersistsAcrossReload(t *testing.T) {
	store := newTestStore(t)
	repo := NewUserDataRepository(store, NewMockLogger())

	repo.Update("book1", func(d *domain.BookUserData) {
		d.Annotations = append(d.Annotations, domain.Annotation{
			Anchor: "u1.p2",
			Quote:  "some passage",
			Color:  domain.ColorYellow,
			Style:  domain.StyleHighlight,
		})
	})
	repo.Flush()

	reloaded := NewUserDataRepository(store, NewMockLogger())
	data := reloaded.Get("book1")
	if len(data.Annotations) != 1 {
		t.Fatalf("Expected 1 annotation after reload, got %d", len(data.Annotations))
	}
	if data.Annotations[0].Anchor != "u1.p2" {
		t.Errorf("Expected anchor 'u1.p2', got %q", data.Annotations[0].Anchor)
	}
}

func TestUserDataRepository_SavePositionLatestWins(t *testing.T) {
	store := newTestStore(t)
	repo := NewUserDataRepository(store, NewMockLogger())

	for i := 0; i < 50; i++ {
		repo.SavePosition("book1", "u0.p9", 0.1)
	}
	repo.SavePosition("book1", "u3.p7", 0.8)
	repo.Flush()

	reloaded := NewUserDataRepository(store, NewMockLogger())
	data := reloaded.Get("book1")
	if data.LastPosition != "u3.p7" {
		t.Errorf("Expected last position 'u3.p7', got %q", data.LastPosition)
	}
	if data.Progress != 0.8 {
		t.Errorf("Expected progress 0.8, got %v", data.Progress)
	}
}

func TestUserDataRepository_NegativeProgressKeepsPrevious(t *testing.T) {
	repo := NewUserDataRepository(newTestStore(t), NewMockLogger())

	repo.SavePosition("book1", "u1", 0.5)
	repo.SavePosition("book1", "u2", -1)
	repo.Flush()

	data := repo.Get("book1")
	if data.LastPosition != "u2" {
		t.Errorf("Expected position 'u2', got %q", data.LastPosition)
	}
	if data.Progress != 0.5 {
		t.Errorf("Expected progress to stay 0.5, got %v", data.Progress)
	}
}

func TestUserDataRepository_MutationStampsLastOpened(t *testing.T) {
	repo := NewUserDataRepository(newTestStore(t), NewMockLogger())

	before := time.Now()
	repo.SavePosition("book1", "u1", 0.2)

	data := repo.Get("book1")
	if data.LastOpenedAt.Before(before) {
		t.Errorf("Expected LastOpenedAt stamped on save, got %v", data.LastOpenedAt)
	}

	stamp := data.LastOpenedAt
	repo.Update("book1", func(d *domain.BookUserData) {
		d.Bookmarks = append(d.Bookmarks, domain.Bookmark{Anchor: "u2"})
	})
	if got := repo.Get("book1").LastOpenedAt; got.Before(stamp) {
		t.Errorf("Expected LastOpenedAt re-stamped on update, got %v", got)
	}
}

func TestUserDataRepository_GetReturnsCopy(t *testing.T) {
	repo := NewUserDataRepository(newTestStore(t), NewMockLogger())

	repo.Update("book1", func(d *domain.BookUserData) {
		d.Bookmarks = append(d.Bookmarks, domain.Bookmark{Anchor: "u1"})
	})

	data := repo.Get("book1")
	data.Bookmarks[0].Anchor = "mutated"
	data.Bookmarks = append(data.Bookmarks, domain.Bookmark{Anchor: "extra"})

	fresh := repo.Get("book1")
	if len(fresh.Bookmarks) != 1 {
		t.Fatalf("Expected 1 bookmark, got %d", len(fresh.Bookmarks))
	}
	if fresh.Bookmarks[0].Anchor != "u1" {
		t.Errorf("Expected stored bookmark untouched, got %q", fresh.Bookmarks[0].Anchor)
	}
}

func TestUserDataRepository_Delete(t *testing.T) {
	store := newTestStore(t)
	repo := NewUserDataRepository(store, NewMockLogger())

	repo.SavePosition("book1", "u1", 0.2)
	repo.Delete("book1")
	repo.Flush()

	reloaded := NewUserDataRepository(store, NewMockLogger())
	data := reloaded.Get("book1")
	if data.LastPosition != domain.NoPosition {
		t.Errorf("Expected empty bundle after delete, got position %q", data.LastPosition)
	}
}

func TestUserDataRepository_CorruptStoreStartsEmpty(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put(domain.KeyReaderData, []byte("not json")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	logger := NewMockLogger()
	repo := NewUserDataRepository(store, logger)
	data := repo.Get("book1")
	if data == nil || len(data.Annotations) != 0 {
		t.Errorf("Expected empty bundle from corrupt store, got %+v", data)
	}
	found := false
	for _, msg := range logger.logged() {
		if strings.HasPrefix(msg, "WARN:") {
			found = true
		}
	}
	if !found {
		t.Error("Expected a warning for the corrupt store")
	}
}

func TestSettingsRepository_DefaultsWhenMissing(t *testing.T) {
	repo := NewSettingsRepository(newTestStore(t), NewMockLogger())

	settings := repo.Load()
	if settings != domain.DefaultSettings() {
		t.Errorf("Expected defaults, got %+v", settings)
	}
}

func TestSettingsRepository_PartialDocumentMergesOverDefaults(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put(domain.KeySettings, []byte(`{"font_size":22,"theme":"dark"}`)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	repo := NewSettingsRepository(store, NewMockLogger())
	settings := repo.Load()
	if settings.FontSize != 22 {
		t.Errorf("Expected font size 22, got %d", settings.FontSize)
	}
	if settings.Theme != "dark" {
		t.Errorf("Expected theme 'dark', got %q", settings.Theme)
	}
	if settings.FontFamily != "serif" {
		t.Errorf("Expected default font family, got %q", settings.FontFamily)
	}
	if settings.AIModel != domain.DefaultSettings().AIModel {
		t.Errorf("Expected default AI model, got %q", settings.AIModel)
	}
}

func TestSettingsRepository_SaveLoadRoundTrip(t *testing.T) {
	repo := NewSettingsRepository(newTestStore(t), NewMockLogger())

	settings := domain.DefaultSettings()
	settings.FontSize = 24
	settings.AINoteMode = domain.NoteFloating
	if err := repo.Save(settings); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	loaded := repo.Load()
	if loaded.FontSize != 24 {
		t.Errorf("Expected font size 24, got %d", loaded.FontSize)
	}
	if loaded.AINoteMode != domain.NoteFloating {
		t.Errorf("Expected floating note mode, got %q", loaded.AINoteMode)
	}
}

func TestSettingsRepository_CorruptDocumentFallsBack(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put(domain.KeySettings, []byte("{broken")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	repo := NewSettingsRepository(store, NewMockLogger())
	if got := repo.Load(); got != domain.DefaultSettings() {
		t.Errorf("Expected defaults for corrupt document, got %+v", got)
	}
}

func TestLibraryRepository_UpsertAndGet(t *testing.T) {
	repo := NewLibraryRepository(newTestStore(t), NewMockLogger())

	book := &domain.Book{ID: "alpha-bob", Title: "Alpha", Author: "Bob", Format: domain.FormatEPUB}
	if err := repo.Upsert(book); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err := repo.GetByID("alpha-bob")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Title != "Alpha" {
		t.Errorf("Expected title 'Alpha', got %q", got.Title)
	}

	_, err = repo.GetByID("missing")
	if !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("Expected ErrBookNotFound, got %v", err)
	}
}

func TestLibraryRepository_ListOrdersByRecency(t *testing.T) {
	repo := NewLibraryRepository(newTestStore(t), NewMockLogger())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old := &domain.Book{ID: "old", Title: "Old", AddedAt: base}
	newer := &domain.Book{ID: "newer", Title: "Newer", AddedAt: base.Add(time.Hour)}
	opened := &domain.Book{ID: "opened", Title: "Opened", AddedAt: base.Add(-time.Hour)}
	for _, b := range []*domain.Book{old, newer, opened} {
		if err := repo.Upsert(b); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	if err := repo.TouchOpened("opened", base.Add(2*time.Hour)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	books, err := repo.List()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("Expected 3 books, got %d", len(books))
	}
	if books[0].ID != "opened" {
		t.Errorf("Expected most recently opened first, got %q", books[0].ID)
	}
	if books[1].ID != "newer" {
		t.Errorf("Expected most recently added second, got %q", books[1].ID)
	}
}

func TestLibraryRepository_DeleteIsIdempotent(t *testing.T) {
	repo := NewLibraryRepository(newTestStore(t), NewMockLogger())

	if err := repo.Upsert(&domain.Book{ID: "b1", Title: "B"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := repo.Delete("b1"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := repo.Delete("b1"); err != nil {
		t.Errorf("Expected second delete to be a no-op, got %v", err)
	}
}

func TestLibraryRepository_PersistsAcrossReload(t *testing.T) {
	store := newTestStore(t)
	repo := NewLibraryRepository(store, NewMockLogger())

	if err := repo.Upsert(&domain.Book{ID: "b1", Title: "Kept", Format: domain.FormatText}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	reloaded := NewLibraryRepository(store, NewMockLogger())
	got, err := reloaded.GetByID("b1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Title != "Kept" || got.Format != domain.FormatText {
		t.Errorf("Expected persisted book back, got %+v", got)
	}
}

func TestLibraryRepository_TouchOpenedUnknownBook(t *testing.T) {
	repo := NewLibraryRepository(newTestStore(t), NewMockLogger())

	err := repo.TouchOpened("ghost", time.Now())
	if !errors.Is(err, domain.ErrBookNotFound) {
		t.Errorf("Expected ErrBookNotFound, got %v", err)
	}
}

func TestDisabledChatClient(t *testing.T) {
	client := NewDisabledChatClient()

	err := client.StreamReply(context.Background(), domain.ChatPrompt{Prompt: "hi"}, nil)
	if !errors.Is(err, domain.ErrStreamFailure) {
		t.Errorf("Expected ErrStreamFailure, got %v", err)
	}
	if _, err := client.OneShot(context.Background(), domain.ChatPrompt{Prompt: "hi"}); !errors.Is(err, domain.ErrStreamFailure) {
		t.Errorf("Expected ErrStreamFailure, got %v", err)
	}
}

func TestComposePrompt(t *testing.T) {
	plain := composePrompt(domain.ChatPrompt{Prompt: "what happens next?"})
	if plain != "what happens next?" {
		t.Errorf("Expected bare prompt without context, got %q", plain)
	}

	withCtx := composePrompt(domain.ChatPrompt{
		Prompt:          "who is the narrator?",
		DocumentContext: "Call me Ishmael.",
	})
	if !strings.Contains(withCtx, "Call me Ishmael.") {
		t.Errorf("Expected document context in prompt, got %q", withCtx)
	}
	if !strings.Contains(withCtx, "Query: who is the narrator?") {
		t.Errorf("Expected query suffix, got %q", withCtx)
	}
}

func TestResponseText(t *testing.T) {
	if got := responseText(nil); got != "" {
		t.Errorf("Expected empty text for nil response, got %q", got)
	}

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("Hello, "), genai.Text("world.")},
				},
			},
		},
	}
	if got := responseText(resp); got != "Hello, world." {
		t.Errorf("Expected concatenated parts, got %q", got)
	}
}
