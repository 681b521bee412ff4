package tagger

import (
	"html"
	"strconv"
	"strings"

	"github.com/twhy/react-component-tagger/pkg/position"
)

// MarkerPrefix starts every injected attribute name.
const MarkerPrefix = "data-component-"

// Marker keys, without MarkerPrefix.
const (
	KeyKey          = "key"
	KeySrc          = "src"
	KeyClass        = "class"
	KeyIndex        = "index"
	KeyStart        = "start"
	KeyEnd          = "end"
	KeyOpeningStart = "opening-start"
	KeyOpeningEnd   = "opening-end"
	KeyMapStart     = "map-start"
	KeyMapEnd       = "map-end"
	KeyPath         = "path"
	KeyFile         = "file"
	KeyName         = "name"
	KeyLine         = "line"
	KeyColumn       = "column"
)

// Marker is one injected attribute.
type Marker struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Attribute renders the marker as ` data-component-<key>="<value>"`.
func (m Marker) Attribute() string {
	return " " + MarkerPrefix + m.Key + `="` + html.EscapeString(m.Value) + `"`
}

// Record is the annotation computed for one opening tag.
type Record struct {
	Name     string         `json:"name"               yaml:"name"`
	Element  position.Span  `json:"element"            yaml:"element"`
	Opening  position.Span  `json:"opening"            yaml:"opening"`
	MapCall  *position.Span `json:"map_call,omitempty" yaml:"map_call,omitempty"`
	HasKey   bool           `json:"has_key"            yaml:"has_key"`
	Src      *string        `json:"src,omitempty"      yaml:"src,omitempty"`
	Class    *string        `json:"class,omitempty"    yaml:"class,omitempty"`
	RelPath  string         `json:"path"               yaml:"path"`
	Filename string         `json:"file"               yaml:"file"`

	// Insert is where the markers go in the original source.
	Insert position.Pos `json:"insert" yaml:"insert"`
	// InsertByte is Insert as a byte offset.
	InsertByte int `json:"-" yaml:"-"`
	// Legacy adds the index, line and column markers.
	Legacy bool `json:"-" yaml:"-"`
}

// Markers returns the markers in emission order: extracted attributes,
// then positions, then identity.
func (r Record) Markers() []Marker {
	markers := make([]Marker, 0, 16) //nolint:mnd // every key at once

	if r.HasKey {
		markers = append(markers, Marker{KeyKey, "true"})
	}

	if r.Src != nil {
		markers = append(markers, Marker{KeySrc, *r.Src})
	}

	if r.Class != nil {
		markers = append(markers, Marker{KeyClass, *r.Class})
	}

	if r.Legacy {
		markers = append(markers, Marker{KeyIndex, r.Element.IndexToken()})
	}

	markers = append(markers,
		Marker{KeyStart, r.Element.Start.String()},
		Marker{KeyEnd, r.Element.End.String()},
		Marker{KeyOpeningStart, r.Opening.Start.String()},
		Marker{KeyOpeningEnd, r.Opening.End.String()},
	)

	if r.MapCall != nil {
		markers = append(markers,
			Marker{KeyMapStart, r.MapCall.Start.String()},
			Marker{KeyMapEnd, r.MapCall.End.String()},
		)
	}

	markers = append(markers,
		Marker{KeyPath, r.RelPath},
		Marker{KeyFile, r.Filename},
		Marker{KeyName, r.Name},
	)

	if r.Legacy {
		markers = append(markers,
			Marker{KeyLine, strconv.Itoa(r.Opening.Start.Line)},
			Marker{KeyColumn, strconv.Itoa(r.Opening.Start.Column)},
		)
	}

	return markers
}

// Text is the single insertion for this record.
func (r Record) Text() string {
	var sb strings.Builder

	for _, m := range r.Markers() {
		sb.WriteString(m.Attribute())
	}

	return sb.String()
}
