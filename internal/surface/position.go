package surface

import (
	"fmt"
	"strconv"
	"strings"

	"ebook-reader/internal/domain"
)

// Position refs minted by this package come in three shapes:
//
//	"p12"     paragraph 12 of a single-unit document
//	"u3"      start of spine unit 3 (unit-level, used by the batch scan)
//	"u3.p12"  paragraph 12 of spine unit 3
//
// The core treats refs as opaque; only this package parses them.
type ref struct {
	unit int
	para int // -1 for unit-level refs
}

func parseRef(p domain.PositionRef) (ref, bool) {
	s := string(p)
	if s == "" {
		return ref{}, false
	}
	switch {
	case strings.HasPrefix(s, "p"):
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 {
			return ref{}, false
		}
		return ref{unit: 0, para: n}, true
	case strings.HasPrefix(s, "u"):
		rest := s[1:]
		if i := strings.Index(rest, ".p"); i >= 0 {
			u, err := strconv.Atoi(rest[:i])
			if err != nil || u < 0 {
				return ref{}, false
			}
			n, err := strconv.Atoi(rest[i+2:])
			if err != nil || n < 0 {
				return ref{}, false
			}
			return ref{unit: u, para: n}, true
		}
		u, err := strconv.Atoi(rest)
		if err != nil || u < 0 {
			return ref{}, false
		}
		return ref{unit: u, para: -1}, true
	}
	return ref{}, false
}

func unitRef(unit int) domain.PositionRef {
	return domain.PositionRef("u" + strconv.Itoa(unit))
}

func paraRef(unit, para int, singleUnit bool) domain.PositionRef {
	if singleUnit {
		return domain.PositionRef("p" + strconv.Itoa(para))
	}
	return domain.PositionRef(fmt.Sprintf("u%d.p%d", unit, para))
}
