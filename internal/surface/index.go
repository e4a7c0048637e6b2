package surface

import (
	"context"
	"unicode/utf8"

	"ebook-reader/internal/domain"
)

// corpusIndex maps refs to read fractions. It holds the cumulative rune
// offset of every unit start and of every paragraph start within its unit,
// so a resolvable ref converts to a fraction in O(1).
type corpusIndex struct {
	unitStart []int
	paraStart [][]int
	total     int
}

// buildIndex walks every unit of the engine. It is the slow corpus-wide
// pass the percentage feature waits on; callers run it off the open path.
func buildIndex(ctx context.Context, eng domain.RenderEngine) (*corpusIndex, error) {
	count := eng.UnitCount()
	ix := &corpusIndex{
		unitStart: make([]int, count),
		paraStart: make([][]int, count),
	}

	offset := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := eng.Unit(ctx, i)
		if err != nil {
			return nil, err
		}
		ix.unitStart[i] = offset
		starts := make([]int, len(u.Paragraphs))
		local := 0
		for p, para := range u.Paragraphs {
			starts[p] = local
			local += utf8.RuneCountInString(para) + 1
		}
		ix.paraStart[i] = starts
		offset += local
	}
	ix.total = offset
	return ix, nil
}

// fractionAt maps a parsed ref to [0,1]. Unit-level refs map to the unit
// start; paragraph refs past the end of their unit clamp to the unit end.
func (ix *corpusIndex) fractionAt(r ref) (float64, bool) {
	if r.unit < 0 || r.unit >= len(ix.unitStart) {
		return 0, false
	}
	if ix.total == 0 {
		return 0, true
	}
	pos := ix.unitStart[r.unit]
	if r.para >= 0 {
		starts := ix.paraStart[r.unit]
		switch {
		case r.para < len(starts):
			pos += starts[r.para]
		case r.unit+1 < len(ix.unitStart):
			pos = ix.unitStart[r.unit+1]
		default:
			pos = ix.total
		}
	}
	return float64(pos) / float64(ix.total), true
}

// paraCount reports how many paragraphs unit holds, once indexed.
func (ix *corpusIndex) paraCount(unit int) (int, bool) {
	if unit < 0 || unit >= len(ix.paraStart) {
		return 0, false
	}
	return len(ix.paraStart[unit]), true
}
