package sourcemap

import "sort"

// Mapping is the original location of a generated position. Line is
// 1-based and Column is 0-based.
type Mapping struct {
	Source string
	Line   int
	Column int
}

// Consumer answers generated-to-original lookups for a decoded map.
type Consumer struct {
	sources []string
	lines   [][]Segment
}

// NewConsumer decodes m for lookups.
func NewConsumer(m *Map) (*Consumer, error) {
	lines, err := m.Decode()
	if err != nil {
		return nil, err
	}

	return &Consumer{sources: m.Sources, lines: lines}, nil
}

// Lookup returns the original position of the generated position at line
// (1-based) and column (0-based). A column between two segments resolves to
// the closest segment on its left.
func (c *Consumer) Lookup(line, column int) (Mapping, bool) {
	if line < 1 || line > len(c.lines) {
		return Mapping{}, false
	}

	segs := c.lines[line-1]

	i := sort.Search(len(segs), func(i int) bool {
		return segs[i].GenColumn > column
	}) - 1
	if i < 0 {
		return Mapping{}, false
	}

	seg := segs[i]

	source := ""
	if seg.Source >= 0 && seg.Source < len(c.sources) {
		source = c.sources[seg.Source]
	}

	return Mapping{
		Source: source,
		Line:   seg.OrigLine + 1,
		Column: seg.OrigColumn,
	}, true
}

// Segments returns the decoded segments of a 1-based generated line.
func (c *Consumer) Segments(line int) []Segment {
	if line < 1 || line > len(c.lines) {
		return nil
	}

	return c.lines[line-1]
}
