// Package sourcemap builds and reads Source Map v3 documents.
//
// Generated and original lines are 0-based inside this package's Segment
// type, matching the wire format. The Consumer API takes 1-based lines, the
// convention used by browsers and JavaScript parsers.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Version is the only source map version this package emits and accepts.
const Version = 3

// ErrUnsupportedVersion is returned by Parse for maps other than version 3.
var ErrUnsupportedVersion = errors.New("unsupported source map version")

// Map is a Source Map v3 document.
type Map struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	SourceRoot     string   `json:"sourceRoot,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Segment is one decoded mapping. Lines are 0-based.
type Segment struct {
	GenLine    int
	GenColumn  int
	Source     int
	OrigLine   int
	OrigColumn int
}

// Parse decodes a JSON source map.
func Parse(data []byte) (*Map, error) {
	var m Map

	err := json.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("decode source map: %w", err)
	}

	if m.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}

	return &m, nil
}

// JSON encodes the map.
func (m *Map) JSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode source map: %w", err)
	}

	return data, nil
}

// String returns the JSON encoding, or an empty string when encoding fails.
func (m *Map) String() string {
	data, err := m.JSON()
	if err != nil {
		return ""
	}

	return string(data)
}

// ToURL returns the map as a base64 data URL suitable for an inline
// sourceMappingURL comment.
func (m *Map) ToURL() string {
	return "data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(m.String()))
}

// Comment returns the trailing sourceMappingURL comment for JavaScript output.
func (m *Map) Comment() string {
	return "//# sourceMappingURL=" + m.ToURL()
}

// Decode expands the mappings string into segments grouped by generated line.
func (m *Map) Decode() ([][]Segment, error) {
	lines := [][]Segment{nil}

	var source, origLine, origColumn, genColumn int

	for pos := 0; pos < len(m.Mappings); {
		switch m.Mappings[pos] {
		case ';':
			lines = append(lines, nil)
			genColumn = 0
			pos++

			continue
		case ',':
			pos++

			continue
		}

		fields := make([]int, 0, 5) //nolint:mnd // a segment has at most five fields

		for pos < len(m.Mappings) && m.Mappings[pos] != ',' && m.Mappings[pos] != ';' {
			value, next, err := readVLQ(m.Mappings, pos)
			if err != nil {
				return nil, err
			}

			fields = append(fields, value)
			pos = next
		}

		genColumn += fields[0]

		if len(fields) < 4 { //nolint:mnd // segments without a source position
			continue
		}

		source += fields[1]
		origLine += fields[2]
		origColumn += fields[3]

		line := len(lines) - 1
		lines[line] = append(lines[line], Segment{
			GenLine:    line,
			GenColumn:  genColumn,
			Source:     source,
			OrigLine:   origLine,
			OrigColumn: origColumn,
		})
	}

	return lines, nil
}

// Generator accumulates segments in generated order and encodes them.
type Generator struct {
	lines [][]Segment
}

// NewGenerator returns an empty generator.
func NewGenerator() *Generator {
	return &Generator{lines: [][]Segment{nil}}
}

// Add records a mapping. Segments must be added in increasing generated
// position; lines are 0-based.
func (g *Generator) Add(seg Segment) {
	for len(g.lines) <= seg.GenLine {
		g.lines = append(g.lines, nil)
	}

	g.lines[seg.GenLine] = append(g.lines[seg.GenLine], seg)
}

// Len returns the number of recorded segments.
func (g *Generator) Len() int {
	total := 0
	for _, line := range g.lines {
		total += len(line)
	}

	return total
}

// Map encodes the recorded segments. content is embedded as sourcesContent
// when includeContent is set.
func (g *Generator) Map(file, source, content string, includeContent bool) *Map {
	m := &Map{
		Version:  Version,
		File:     file,
		Sources:  []string{source},
		Names:    []string{},
		Mappings: g.encode(),
	}

	if includeContent {
		m.SourcesContent = []string{content}
	}

	return m
}

func (g *Generator) encode() string {
	var sb strings.Builder

	var prevSource, prevOrigLine, prevOrigColumn int

	for lineIdx, line := range g.lines {
		if lineIdx > 0 {
			sb.WriteByte(';')
		}

		prevGenColumn := 0

		for segIdx, seg := range line {
			if segIdx > 0 {
				sb.WriteByte(',')
			}

			writeVLQ(&sb, seg.GenColumn-prevGenColumn)
			writeVLQ(&sb, seg.Source-prevSource)
			writeVLQ(&sb, seg.OrigLine-prevOrigLine)
			writeVLQ(&sb, seg.OrigColumn-prevOrigColumn)

			prevGenColumn = seg.GenColumn
			prevSource = seg.Source
			prevOrigLine = seg.OrigLine
			prevOrigColumn = seg.OrigColumn
		}
	}

	return sb.String()
}
