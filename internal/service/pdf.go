package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"ebook-reader/internal/domain"

	"github.com/gen2brain/go-fitz"
)

// pdfPageTimeout bounds text extraction for one page. A pathological page
// yields an empty page instead of hanging the whole import.
const pdfPageTimeout = 90 * time.Second

// PDFManager implements domain.PDFService. PDFs take the simple path:
// pages are extracted up front and served from memory, positions are page
// numbers, and there is no selection or annotation surface. Reading
// position still flows into the same per-book user data bundle.
type PDFManager struct {
	library  domain.LibraryRepository
	userData domain.UserDataRepository
	logger   domain.Logger

	mu   sync.Mutex
	open map[string]*pdfBook
}

type pdfBook struct {
	meta  domain.BookMetadata
	pages []domain.PDFPage
}

func NewPDFManager(library domain.LibraryRepository, userData domain.UserDataRepository, logger domain.Logger) *PDFManager {
	return &PDFManager{
		library:  library,
		userData: userData,
		logger:   logger,
		open:     make(map[string]*pdfBook),
	}
}

func (m *PDFManager) Open(ctx context.Context, bookID string) (*domain.PDFDocument, error) {
	book, err := m.library.GetByID(bookID)
	if err != nil {
		return nil, err
	}
	if book.Format != domain.FormatPDF {
		return nil, fmt.Errorf("%w: %s is %s, not pdf", domain.ErrUnsupportedFormat, bookID, book.Format)
	}

	m.mu.Lock()
	if cached, ok := m.open[bookID]; ok {
		m.mu.Unlock()
		return m.document(bookID, cached), nil
	}
	m.mu.Unlock()

	data, err := os.ReadFile(book.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStorageFailure, book.Path, err)
	}
	meta, pages, err := m.Extract(ctx, data)
	if err != nil {
		return nil, err
	}

	opened := &pdfBook{meta: *meta, pages: pages}
	m.mu.Lock()
	m.open[bookID] = opened
	m.mu.Unlock()

	if err := m.library.TouchOpened(bookID, time.Now()); err != nil {
		m.logger.Warn("failed to record open time", "book", bookID, "error", err)
	}
	m.logger.Info("pdf opened", "book", bookID, "pages", len(pages))
	return m.document(bookID, opened), nil
}

func (m *PDFManager) Page(bookID string, number int) (*domain.PDFPage, error) {
	m.mu.Lock()
	book, ok := m.open[bookID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: pdf %s is not open", domain.ErrHandleClosed, bookID)
	}
	if number < 1 || number > len(book.pages) {
		return nil, &domain.ValidationError{Field: "page", Message: fmt.Sprintf("page %d out of range 1..%d", number, len(book.pages))}
	}
	page := book.pages[number-1]
	return &page, nil
}

// SavePage records the page as the book's reading position, with progress
// derived from the page count.
func (m *PDFManager) SavePage(bookID string, number int) error {
	m.mu.Lock()
	book, ok := m.open[bookID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: pdf %s is not open", domain.ErrHandleClosed, bookID)
	}
	if number < 1 || number > len(book.pages) {
		return &domain.ValidationError{Field: "page", Message: fmt.Sprintf("page %d out of range 1..%d", number, len(book.pages))}
	}
	progress := float64(number) / float64(len(book.pages))
	m.userData.SavePosition(bookID, domain.PositionRef(fmt.Sprintf("page%d", number)), progress)
	return nil
}

func (m *PDFManager) Close(bookID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.open, bookID)
}

// Extract parses raw PDF bytes into metadata and per-page text. Pages
// that fail or time out come back empty so page numbering stays aligned
// with the document.
func (m *PDFManager) Extract(ctx context.Context, data []byte) (*domain.BookMetadata, []domain.PDFPage, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to open pdf: %v", domain.ErrRenderFailure, err)
	}
	defer doc.Close()

	docMeta := doc.Metadata()
	meta := &domain.BookMetadata{
		PageCount: doc.NumPage(),
	}
	if title, ok := docMeta["title"]; ok && title != "" {
		meta.Title = title
	}
	if author, ok := docMeta["author"]; ok && author != "" {
		meta.Author = author
	}

	type pageResult struct {
		text string
		err  error
	}

	numPages := doc.NumPage()
	pages := make([]domain.PDFPage, 0, numPages)
	for pageNum := 0; pageNum < numPages; pageNum++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		resultCh := make(chan pageResult, 1)
		go func(idx int) {
			t, e := doc.Text(idx)
			resultCh <- pageResult{text: t, err: e}
		}(pageNum)

		var text string
		select {
		case res := <-resultCh:
			if res.err != nil {
				m.logger.Warn("failed to extract text from page", "page", pageNum+1, "total", numPages, "error", res.err)
			} else {
				text = res.text
			}
		case <-time.After(pdfPageTimeout):
			m.logger.Warn("pdf page extraction timeout, using empty page", "page", pageNum+1, "total", numPages)
			go func() { <-resultCh }() // drain so the goroutine can exit
		case <-ctx.Done():
			go func() { <-resultCh }()
			return nil, nil, ctx.Err()
		}

		pages = append(pages, domain.PDFPage{
			Number: pageNum + 1,
			Text:   normalizePDFText(text),
		})
	}

	return meta, pages, nil
}

func (m *PDFManager) document(bookID string, book *pdfBook) *domain.PDFDocument {
	return &domain.PDFDocument{
		BookID:    bookID,
		Metadata:  book.meta,
		PageCount: len(book.pages),
	}
}

// normalizePDFText flattens extractor line breaks into paragraphs and
// strips control characters that are not whitespace.
func normalizePDFText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var cleaned strings.Builder
	cleaned.Grow(len(text))
	for _, r := range text {
		if r == 0x00 {
			continue
		}
		if r < 0x20 && r != '\t' && r != '\n' {
			continue
		}
		cleaned.WriteRune(r)
	}

	var out []string
	for _, para := range strings.Split(cleaned.String(), "\n\n") {
		para = strings.TrimSpace(strings.ReplaceAll(para, "\n", " "))
		if para != "" {
			out = append(out, para)
		}
	}
	return strings.Join(out, "\n\n")
}
