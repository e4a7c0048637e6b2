package surface

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"ebook-reader/internal/domain"
)

// textEngine renders a plain-text document as a single content unit whose
// paragraphs are the blank-line separated blocks of the source.
type textEngine struct {
	unit domain.ContentUnit
}

func newTextEngine(data []byte) *textEngine {
	text := string(bytes.ToValidUTF8(data, []byte{}))
	return &textEngine{
		unit: domain.ContentUnit{
			Index:      0,
			Paragraphs: splitParagraphs(text),
		},
	}
}

func (e *textEngine) UnitCount() int { return 1 }

func (e *textEngine) Unit(ctx context.Context, index int) (*domain.ContentUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index != 0 {
		return nil, fmt.Errorf("unit %d out of range", index)
	}
	u := e.unit
	return &u, nil
}

// splitParagraphs breaks text into paragraphs on blank lines. Lines inside
// a paragraph are joined with single spaces; non-breaking spaces and
// Windows line endings are normalized away.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, " ", " ")

	var paras []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			paras = append(paras, strings.Join(cur, " "))
			cur = cur[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			flush()
			continue
		}
		cur = append(cur, t)
	}
	flush()
	return paras
}
