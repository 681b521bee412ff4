// Package rewrite applies offset-anchored text insertions to a source and
// produces the rewritten text together with a high-resolution source map.
package rewrite

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/twhy/react-component-tagger/pkg/position"
	"github.com/twhy/react-component-tagger/pkg/sourcemap"
)

// ErrOffsetOutOfRange is returned when an insertion anchor lies outside the source.
var ErrOffsetOutOfRange = errors.New("insertion offset out of range")

// MapOptions controls the emitted source map.
type MapOptions struct {
	File           string
	Source         string
	IncludeContent bool
}

// Output is the committed text and its source map.
type Output struct {
	Code string
	Map  *sourcemap.Map
}

type insertion struct {
	offset int
	text   string
}

// Buffer collects insertions against an immutable original. Offsets always
// refer to the original bytes, so earlier insertions never shift later ones.
type Buffer struct {
	src     []byte
	inserts []insertion
	size    int
}

// New returns a buffer over src. src is not copied and must not be modified.
func New(src []byte) *Buffer {
	return &Buffer{src: src}
}

// AppendLeft inserts text immediately before the original byte at offset.
// Text inserted at the same offset appears in call order.
func (b *Buffer) AppendLeft(offset int, text string) error {
	if offset < 0 || offset > len(b.src) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOffsetOutOfRange, offset, len(b.src))
	}

	if text == "" {
		return nil
	}

	b.inserts = append(b.inserts, insertion{offset: offset, text: text})
	b.size += len(text)

	return nil
}

// Changed reports whether any insertion has been recorded.
func (b *Buffer) Changed() bool {
	return len(b.inserts) > 0
}

// Len returns the byte length of the rewritten text.
func (b *Buffer) Len() int {
	return len(b.src) + b.size
}

// String returns the rewritten text without building a map.
func (b *Buffer) String() string {
	inserts := b.sorted()

	var sb strings.Builder

	sb.Grow(b.Len())

	last := 0
	for _, ins := range inserts {
		sb.Write(b.src[last:ins.offset])
		sb.WriteString(ins.text)
		last = ins.offset
	}

	sb.Write(b.src[last:])

	return sb.String()
}

// Commit applies every insertion in a single pass over the original.
func (b *Buffer) Commit(opts MapOptions) Output {
	inserts := b.sorted()

	var (
		sb   strings.Builder
		gen  = sourcemap.NewGenerator()
		out  cursor
		orig cursor
		next int
	)

	sb.Grow(b.Len())

	flush := func(at int) {
		for next < len(inserts) && inserts[next].offset <= at {
			text := inserts[next].text
			next++

			gen.Add(segment(out, orig))
			sb.WriteString(text)
			out.advanceString(text)
		}
	}

	for i := 0; i < len(b.src); {
		flush(i)

		r, size := utf8.DecodeRune(b.src[i:])
		if r != '\n' {
			gen.Add(segment(out, orig))
		}

		sb.Write(b.src[i : i+size])
		out.advance(r)
		orig.advance(r)

		i += size
	}

	flush(len(b.src))

	return Output{
		Code: sb.String(),
		Map:  gen.Map(opts.File, opts.Source, string(b.src), opts.IncludeContent),
	}
}

func (b *Buffer) sorted() []insertion {
	inserts := make([]insertion, len(b.inserts))
	copy(inserts, b.inserts)

	sort.SliceStable(inserts, func(i, j int) bool {
		return inserts[i].offset < inserts[j].offset
	})

	return inserts
}

// cursor tracks a 0-based line and UTF-16 column.
type cursor struct {
	line   int
	column int
}

func (c *cursor) advance(r rune) {
	if r == '\n' {
		c.line++
		c.column = 0

		return
	}

	c.column += position.RuneUnits(r)
}

func (c *cursor) advanceString(s string) {
	for _, r := range s {
		c.advance(r)
	}
}

func segment(out, orig cursor) sourcemap.Segment {
	return sourcemap.Segment{
		GenLine:    out.line,
		GenColumn:  out.column,
		OrigLine:   orig.line,
		OrigColumn: orig.column,
	}
}
