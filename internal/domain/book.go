package domain

import (
	"context"
	"io"
	"time"
)

// BookFormat identifies a supported document format.
type BookFormat string

const (
	FormatEPUB BookFormat = "epub"
	FormatText BookFormat = "txt"
	FormatPDF  BookFormat = "pdf"
)

// BookMetadata holds what the format probe could read from the raw file.
type BookMetadata struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Language  string `json:"language,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

// Book is a library entry. ID is derived deterministically from normalized
// title+author at import so re-importing the same book overwrites its
// entry instead of duplicating it.
type Book struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	Format       BookFormat `json:"format"`
	Path         string     `json:"path"`
	SizeBytes    int64      `json:"size_bytes"`
	AddedAt      time.Time  `json:"added_at"`
	LastOpenedAt time.Time  `json:"last_opened_at,omitempty"`
}

// Source is raw document content handed to the reading surface or probe.
// Name carries the original file name for metadata fallbacks.
type Source struct {
	BookID string
	Name   string
	Format BookFormat
	Data   []byte
}

// LibraryRepository persists the library index.
type LibraryRepository interface {
	Upsert(book *Book) error
	GetByID(id string) (*Book, error)
	List() ([]*Book, error)
	Delete(id string) error
	TouchOpened(id string, at time.Time) error
}

// LibraryService defines the use-case operations for the library. Import
// sniffs the format from the file name, rejects unsupported extensions
// with ErrUnsupportedFormat, and never creates a duplicate entry for a
// book that is already present.
type LibraryService interface {
	Import(ctx context.Context, fileName string, r io.Reader) (*Book, error)
	List() ([]*Book, error)
	Get(id string) (*Book, error)
	Delete(id string) error
}

// FormatProbe extracts importable metadata and best-effort plain text from
// raw document bytes. PlainText is a bounded scan: at most maxUnits content
// units (spine items, pages) are read.
type FormatProbe interface {
	Describe(ctx context.Context, src Source) (*BookMetadata, error)
	PlainText(ctx context.Context, src Source, maxUnits int) (string, error)
}
