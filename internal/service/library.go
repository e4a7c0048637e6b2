package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"ebook-reader/internal/domain"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// importSettleDelay is how long a file dropped into the watched folder
// gets to finish writing before the import reads it.
const importSettleDelay = 500 * time.Millisecond

// LibraryManager implements domain.LibraryService: the import boundary
// plus listing and deletion. Imported files are copied under the data
// directory so the library never depends on the original path. It also
// runs the optional drop-folder watcher.
type LibraryManager struct {
	repo     domain.LibraryRepository
	userData domain.UserDataRepository
	probe    domain.FormatProbe
	cfg      domain.Config
	logger   domain.Logger
}

func NewLibraryManager(
	repo domain.LibraryRepository,
	userData domain.UserDataRepository,
	probe domain.FormatProbe,
	cfg domain.Config,
	logger domain.Logger,
) *LibraryManager {
	return &LibraryManager{
		repo:     repo,
		userData: userData,
		probe:    probe,
		cfg:      cfg,
		logger:   logger,
	}
}

// Import sniffs the format from the file extension, extracts metadata,
// derives the book's identity from it and stores a copy of the file.
// Re-importing the same book overwrites its entry instead of duplicating
// it.
func (s *LibraryManager) Import(ctx context.Context, fileName string, r io.Reader) (*domain.Book, error) {
	format, ok := sniffFormat(fileName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Ext(fileName))
	}

	maxSize := s.cfg.GetMaxFileSize()
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, &domain.ValidationError{Field: "file", Message: fmt.Sprintf("file exceeds the %d byte limit", maxSize)}
	}
	if len(data) == 0 {
		return nil, &domain.ValidationError{Field: "file", Message: "file is empty"}
	}

	src := domain.Source{Name: fileName, Format: format, Data: data}
	meta, err := s.probe.Describe(ctx, src)
	if err != nil {
		return nil, err
	}

	id := bookSlug(meta.Title, meta.Author)
	if id == "" {
		id = uuid.NewString()
	}

	dir := filepath.Join(s.cfg.GetDataPath(), "books")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create books dir: %v", domain.ErrStorageFailure, err)
	}
	path := filepath.Join(dir, id+"."+string(format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: store book file: %v", domain.ErrStorageFailure, err)
	}

	book := &domain.Book{
		ID:        id,
		Title:     meta.Title,
		Author:    meta.Author,
		Format:    format,
		Path:      path,
		SizeBytes: int64(len(data)),
		AddedAt:   time.Now(),
	}
	if existing, err := s.repo.GetByID(id); err == nil {
		book.AddedAt = existing.AddedAt
		book.LastOpenedAt = existing.LastOpenedAt
		s.logger.Info("re-importing existing book", "book", id)
	}
	if err := s.repo.Upsert(book); err != nil {
		return nil, err
	}

	s.logger.Info("book imported", "book", id, "title", book.Title, "format", format, "bytes", book.SizeBytes)
	return book, nil
}

func (s *LibraryManager) List() ([]*domain.Book, error) {
	return s.repo.List()
}

func (s *LibraryManager) Get(id string) (*domain.Book, error) {
	return s.repo.GetByID(id)
}

// Delete removes the library entry, the stored file and the book's user
// data bundle.
func (s *LibraryManager) Delete(id string) error {
	book, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := os.Remove(book.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove book file", "book", id, "path", book.Path, "error", err)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.userData.Delete(id)
	s.logger.Info("book deleted", "book", id)
	return nil
}

// Watch imports files dropped into the configured import folder until ctx
// is cancelled. With no folder configured it returns immediately.
func (s *LibraryManager) Watch(ctx context.Context) error {
	dir := s.cfg.GetImportPath()
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create import folder: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch import folder: %w", err)
	}

	s.logger.Info("watching import folder", "path", dir)
	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *LibraryManager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			if _, ok := sniffFormat(name); !ok {
				s.logger.Debug("ignoring dropped file", "name", name)
				continue
			}
			go s.importDropped(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("import watcher error", "error", err)
		}
	}
}

func (s *LibraryManager) importDropped(ctx context.Context, path string) {
	// Give the writer time to finish the file.
	select {
	case <-time.After(importSettleDelay):
	case <-ctx.Done():
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("failed to open dropped file", "path", path, "error", err)
		return
	}
	defer f.Close()

	book, err := s.Import(ctx, filepath.Base(path), f)
	if err != nil {
		s.logger.Error("failed to import dropped file", err, "path", path)
		return
	}
	s.logger.Info("imported dropped file", "path", path, "book", book.ID)
}

// sniffFormat maps a file extension to a supported format. Content is not
// inspected here; a lying extension surfaces later as a render failure.
func sniffFormat(fileName string) (domain.BookFormat, bool) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".epub":
		return domain.FormatEPUB, true
	case ".txt":
		return domain.FormatText, true
	case ".pdf":
		return domain.FormatPDF, true
	}
	return "", false
}

// bookSlug derives a stable id from normalized title and author, so the
// same book imported twice lands on the same entry.
func bookSlug(title, author string) string {
	parts := make([]string, 0, 2)
	if t := slugify(title); t != "" {
		parts = append(parts, t)
	}
	if a := slugify(author); a != "" {
		parts = append(parts, a)
	}
	return strings.Join(parts, "-")
}

func slugify(s string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
