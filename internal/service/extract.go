package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ebook-reader/internal/domain"
	"ebook-reader/internal/surface"
)

// documentProbe implements domain.FormatProbe. It reads just enough of a
// raw file to describe it at import time and to extract bounded plain
// text for chat context.
type documentProbe struct {
	pdf    domain.PDFService
	logger domain.Logger
}

func NewDocumentProbe(pdf domain.PDFService, logger domain.Logger) domain.FormatProbe {
	return &documentProbe{pdf: pdf, logger: logger}
}

func (p *documentProbe) Describe(ctx context.Context, src domain.Source) (*domain.BookMetadata, error) {
	var meta *domain.BookMetadata
	switch src.Format {
	case domain.FormatText:
		meta = &domain.BookMetadata{}
	case domain.FormatEPUB:
		info, err := surface.ProbeEPUB(src.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
		}
		meta = &domain.BookMetadata{
			Title:    info.Title,
			Author:   info.Author,
			Language: info.Language,
		}
	case domain.FormatPDF:
		extracted, _, err := p.pdf.Extract(ctx, src.Data)
		if err != nil {
			return nil, err
		}
		meta = extracted
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, src.Format)
	}

	if meta.Title == "" {
		meta.Title = fileStem(src.Name)
	}
	return meta, nil
}

func (p *documentProbe) PlainText(ctx context.Context, src domain.Source, maxUnits int) (string, error) {
	switch src.Format {
	case domain.FormatText:
		return strings.TrimSpace(string(bytes.ToValidUTF8(src.Data, nil))), nil
	case domain.FormatEPUB:
		text, err := surface.EPUBPlainText(src.Data, maxUnits)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrRenderFailure, err)
		}
		return text, nil
	case domain.FormatPDF:
		_, pages, err := p.pdf.Extract(ctx, src.Data)
		if err != nil {
			return "", err
		}
		if maxUnits > 0 && maxUnits < len(pages) {
			pages = pages[:maxUnits]
		}
		parts := make([]string, 0, len(pages))
		for _, page := range pages {
			if page.Text != "" {
				parts = append(parts, page.Text)
			}
		}
		return strings.Join(parts, "\n\n"), nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, src.Format)
	}
}

func fileStem(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
