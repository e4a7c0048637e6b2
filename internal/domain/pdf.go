package domain

import "context"

// PDFDocument is an opened PDF: per-page text plus what the file reported
// about itself. PDFs take the independent simple path: positions are page
// numbers, there is no selection, annotation or search surface.
type PDFDocument struct {
	BookID    string       `json:"book_id"`
	Metadata  BookMetadata `json:"metadata"`
	PageCount int          `json:"page_count"`
}

// PDFPage is one page of extracted text.
type PDFPage struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// PDFService opens PDF books and serves page text. Reading position and
// progress go through the same per-book user data bundle as the reflowable
// formats, with progress = page/pageCount.
type PDFService interface {
	Open(ctx context.Context, bookID string) (*PDFDocument, error)
	Page(bookID string, number int) (*PDFPage, error)
	SavePage(bookID string, number int) error
	Close(bookID string)

	// Extract parses raw PDF bytes without touching the library. Used by
	// the import boundary for metadata and by the format probe.
	Extract(ctx context.Context, data []byte) (*BookMetadata, []PDFPage, error)
}
