package surface

import "strings"

// EPUBInfo is the package metadata the import boundary reads before a
// book is ever rendered.
type EPUBInfo struct {
	Title      string
	Author     string
	Language   string
	SpineCount int
}

// ProbeEPUB parses just enough of an EPUB to describe it.
func ProbeEPUB(data []byte) (*EPUBInfo, error) {
	b, err := parseEPUB(data)
	if err != nil {
		return nil, err
	}
	return &EPUBInfo{
		Title:      b.title,
		Author:     b.author,
		Language:   b.language,
		SpineCount: len(b.spine),
	}, nil
}

// EPUBPlainText extracts the text of at most maxUnits spine items.
// Chapters that fail to read are skipped; the result is best effort.
func EPUBPlainText(data []byte, maxUnits int) (string, error) {
	b, err := parseEPUB(data)
	if err != nil {
		return "", err
	}
	n := len(b.spine)
	if maxUnits > 0 && maxUnits < n {
		n = maxUnits
	}
	var parts []string
	for i := 0; i < n; i++ {
		paras, err := b.chapterParagraphs(b.spine[i])
		if err != nil {
			continue
		}
		if len(paras) > 0 {
			parts = append(parts, strings.Join(paras, "\n\n"))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
