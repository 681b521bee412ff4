package sourcemap_test

import (
	"encoding/base64"
	"strings"
	"testing"

	gosourcemap "github.com/go-sourcemap/sourcemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twhy/react-component-tagger/pkg/sourcemap"
)

func TestGenerator_EncodesKnownMappings(t *testing.T) {
	t.Parallel()

	gen := sourcemap.NewGenerator()
	gen.Add(sourcemap.Segment{GenLine: 0, GenColumn: 0, OrigLine: 0, OrigColumn: 0})
	gen.Add(sourcemap.Segment{GenLine: 0, GenColumn: 1, OrigLine: 0, OrigColumn: 1})
	gen.Add(sourcemap.Segment{GenLine: 1, GenColumn: 0, OrigLine: 1, OrigColumn: 0})

	m := gen.Map("out.jsx", "src/App.jsx", "a\nb", true)

	assert.Equal(t, "AAAA,CAAC;AACD", m.Mappings)
	assert.Equal(t, sourcemap.Version, m.Version)
	assert.Equal(t, []string{"src/App.jsx"}, m.Sources)
	assert.Equal(t, []string{"a\nb"}, m.SourcesContent)
	assert.Equal(t, 3, gen.Len())
}

func TestGenerator_WithoutContent(t *testing.T) {
	t.Parallel()

	m := sourcemap.NewGenerator().Map("", "x.tsx", "ignored", false)

	assert.Nil(t, m.SourcesContent)
	assert.Empty(t, m.Mappings)
	assert.NotContains(t, m.String(), "sourcesContent")
}

func TestMap_DecodeRoundTrip(t *testing.T) {
	t.Parallel()

	want := []sourcemap.Segment{
		{GenLine: 0, GenColumn: 0, OrigLine: 0, OrigColumn: 0},
		{GenLine: 0, GenColumn: 17, OrigLine: 0, OrigColumn: 3},
		{GenLine: 0, GenColumn: 400, OrigLine: 0, OrigColumn: 4},
		{GenLine: 2, GenColumn: 5, OrigLine: 7, OrigColumn: 1},
		{GenLine: 3, GenColumn: 0, OrigLine: 2, OrigColumn: 90},
	}

	gen := sourcemap.NewGenerator()
	for _, seg := range want {
		gen.Add(seg)
	}

	lines, err := gen.Map("", "a.jsx", "", false).Decode()
	require.NoError(t, err)
	require.Len(t, lines, 4)

	var got []sourcemap.Segment
	for _, line := range lines {
		got = append(got, line...)
	}

	assert.Equal(t, want, got)
	assert.Empty(t, lines[1])
}

func TestMap_DecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := (&sourcemap.Map{Version: 3, Mappings: "A!AA"}).Decode()
	require.ErrorIs(t, err, sourcemap.ErrInvalidBase64)

	_, err = (&sourcemap.Map{Version: 3, Mappings: "g"}).Decode()
	require.ErrorIs(t, err, sourcemap.ErrTruncatedVLQ)
}

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := sourcemap.Parse([]byte(`{"version":3,"sources":["a.jsx"],"names":[],"mappings":"AAAA"}`))
	require.NoError(t, err)
	assert.Equal(t, "AAAA", m.Mappings)

	_, err = sourcemap.Parse([]byte(`{"version":2,"sources":[],"names":[],"mappings":""}`))
	require.ErrorIs(t, err, sourcemap.ErrUnsupportedVersion)

	_, err = sourcemap.Parse([]byte(`{`))
	require.Error(t, err)
}

func TestMap_ToURL(t *testing.T) {
	t.Parallel()

	m := sourcemap.NewGenerator().Map("f.js", "f.jsx", "", false)

	url := m.ToURL()
	require.True(t, strings.HasPrefix(url, "data:application/json;charset=utf-8;base64,"))

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:application/json;charset=utf-8;base64,"))
	require.NoError(t, err)
	assert.JSONEq(t, m.String(), string(payload))
	assert.True(t, strings.HasPrefix(m.Comment(), "//# sourceMappingURL=data:"))
}

func TestConsumer_Lookup(t *testing.T) {
	t.Parallel()

	gen := sourcemap.NewGenerator()
	gen.Add(sourcemap.Segment{GenLine: 0, GenColumn: 0, OrigLine: 0, OrigColumn: 0})
	gen.Add(sourcemap.Segment{GenLine: 0, GenColumn: 10, OrigLine: 0, OrigColumn: 4})
	gen.Add(sourcemap.Segment{GenLine: 1, GenColumn: 2, OrigLine: 1, OrigColumn: 2})

	consumer, err := sourcemap.NewConsumer(gen.Map("", "App.tsx", "", false))
	require.NoError(t, err)

	got, ok := consumer.Lookup(1, 10)
	require.True(t, ok)
	assert.Equal(t, sourcemap.Mapping{Source: "App.tsx", Line: 1, Column: 4}, got)

	got, ok = consumer.Lookup(1, 7)
	require.True(t, ok)
	assert.Equal(t, 0, got.Column)

	_, ok = consumer.Lookup(2, 1)
	assert.False(t, ok)

	_, ok = consumer.Lookup(9, 0)
	assert.False(t, ok)

	assert.Len(t, consumer.Segments(2), 1)
	assert.Nil(t, consumer.Segments(0))
}

func TestMap_ReadableByThirdPartyConsumer(t *testing.T) {
	t.Parallel()

	gen := sourcemap.NewGenerator()
	gen.Add(sourcemap.Segment{GenLine: 0, GenColumn: 0, OrigLine: 0, OrigColumn: 0})
	gen.Add(sourcemap.Segment{GenLine: 0, GenColumn: 12, OrigLine: 0, OrigColumn: 3})
	gen.Add(sourcemap.Segment{GenLine: 1, GenColumn: 4, OrigLine: 1, OrigColumn: 4})

	data, err := gen.Map("App.js", "App.jsx", "", false).JSON()
	require.NoError(t, err)

	smap, err := gosourcemap.Parse("", data)
	require.NoError(t, err)

	source, _, line, column, ok := smap.Source(1, 12)
	require.True(t, ok)
	assert.Equal(t, "App.jsx", source)
	assert.Equal(t, 1, line)
	assert.Equal(t, 3, column)

	_, _, line, column, ok = smap.Source(2, 4)
	require.True(t, ok)
	assert.Equal(t, 2, line)
	assert.Equal(t, 4, column)
}
