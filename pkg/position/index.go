package position

import (
	"sort"
	"unicode/utf8"
)

// utf16SurrogateMin is the first rune that needs a surrogate pair in UTF-16.
const utf16SurrogateMin = 0x10000

// Index maps byte offsets of a UTF-8 source to Pos values and back.
// It is immutable after construction and safe for concurrent reads.
type Index struct {
	src        []byte
	lineStarts []int // byte offset of each line start
	lineUnits  []int // UTF-16 offset of each line start
	ascii      bool
}

// NewIndex scans src once and records line starts.
func NewIndex(src []byte) *Index {
	idx := &Index{
		src:        src,
		lineStarts: []int{0},
		lineUnits:  []int{0},
		ascii:      true,
	}

	units := 0

	for i := 0; i < len(src); {
		b := src[i]
		if b < utf8.RuneSelf {
			i++
			units++

			if b == '\n' {
				idx.lineStarts = append(idx.lineStarts, i)
				idx.lineUnits = append(idx.lineUnits, units)
			}

			continue
		}

		idx.ascii = false

		r, size := utf8.DecodeRune(src[i:])
		i += size
		units += RuneUnits(r)
	}

	return idx
}

// RuneUnits returns the number of UTF-16 code units needed for r.
func RuneUnits(r rune) int {
	if r >= utf16SurrogateMin {
		return 2 //nolint:mnd // surrogate pair
	}

	return 1
}

// Lines returns the number of lines in the source.
func (idx *Index) Lines() int {
	return len(idx.lineStarts)
}

// Pos converts a byte offset to a position. Offsets outside the source are
// clamped to its bounds.
func (idx *Index) Pos(byteOffset int) Pos {
	byteOffset = min(max(byteOffset, 0), len(idx.src))

	line := sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > byteOffset
	}) - 1

	lineStart := idx.lineStarts[line]

	column := byteOffset - lineStart
	if !idx.ascii {
		column = unitsIn(idx.src[lineStart:byteOffset])
	}

	return Pos{
		Line:   line + 1,
		Column: column,
		Offset: idx.lineUnits[line] + column,
	}
}

// Span converts a byte range to a span.
func (idx *Index) Span(startByte, endByte int) Span {
	return Span{Start: idx.Pos(startByte), End: idx.Pos(endByte)}
}

// ByteOffset converts a 1-based line and a UTF-16 column to a byte offset.
// It reports false when the line does not exist or the column runs past the
// end of the line.
func (idx *Index) ByteOffset(line, column int) (int, bool) {
	if line < 1 || line > len(idx.lineStarts) || column < 0 {
		return 0, false
	}

	start := idx.lineStarts[line-1]

	end := len(idx.src)
	if line < len(idx.lineStarts) {
		end = idx.lineStarts[line]
	}

	if idx.ascii {
		if start+column > end {
			return 0, false
		}

		return start + column, true
	}

	units := 0

	for i := start; i < end; {
		if units == column {
			return i, true
		}

		r, size := utf8.DecodeRune(idx.src[i:])
		units += RuneUnits(r)
		i += size
	}

	if units == column {
		return end, true
	}

	return 0, false
}

func unitsIn(b []byte) int {
	units := 0

	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		units += RuneUnits(r)
		b = b[size:]
	}

	return units
}
