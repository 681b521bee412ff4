// Package position defines source locations as line, column and offset
// triples and converts parser byte offsets into them.
//
// Lines are 1-based. Columns and offsets are 0-based and counted in UTF-16
// code units, which is how browsers and JavaScript tooling index text.
package position

import (
	"strconv"
	"strings"
)

// Pos is a single location in a source document.
type Pos struct {
	Line   int `json:"line"   yaml:"line"`
	Column int `json:"column" yaml:"column"`
	Offset int `json:"offset" yaml:"offset"`
}

// String serializes the position as "<line>:<column>:<offset>".
func (p Pos) String() string {
	var sb strings.Builder

	sb.Grow(16) //nolint:mnd // three short integers and two separators

	sb.WriteString(strconv.Itoa(p.Line))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(p.Column))
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(p.Offset))

	return sb.String()
}

// IsZero reports whether the position is unknown.
func (p Pos) IsZero() bool {
	return p == Pos{}
}

// Span is a half-open range between two positions.
type Span struct {
	Start Pos `json:"start" yaml:"start"`
	End   Pos `json:"end"   yaml:"end"`
}

// IndexToken returns the "<start>:<end>" offset pair.
func (s Span) IndexToken() string {
	return strconv.Itoa(s.Start.Offset) + ":" + strconv.Itoa(s.End.Offset)
}

// Len returns the span length in UTF-16 code units.
func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

// Contains reports whether other lies within s.
func (s Span) Contains(other Span) bool {
	return s.Start.Offset <= other.Start.Offset && other.End.Offset <= s.End.Offset
}
