package tagger_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twhy/react-component-tagger/pkg/jsx"
	"github.com/twhy/react-component-tagger/pkg/position"
	"github.com/twhy/react-component-tagger/pkg/sourcemap"
	"github.com/twhy/react-component-tagger/pkg/tagger"
)

func doc(src string) tagger.Document {
	return tagger.NewDocument("/project/src/A.jsx", "/project", []byte(src))
}

func transform(t *testing.T, engine *tagger.Engine, src string) *tagger.Result {
	t.Helper()

	res, err := engine.Transform(context.Background(), doc(src))
	require.NoError(t, err)

	return res
}

func TestNewDocument(t *testing.T) {
	t.Parallel()

	d := tagger.NewDocument("/project/src/ui/Button.tsx", "/project", nil)
	assert.Equal(t, "src/ui/Button.tsx", d.RelPath)
	assert.Equal(t, "Button.tsx", d.Filename)

	d = tagger.NewDocument("/elsewhere/X.jsx", "/project", nil)
	assert.Equal(t, "../elsewhere/X.jsx", d.RelPath)

	d = tagger.NewDocument("X.jsx", "", nil)
	assert.Equal(t, "X.jsx", d.RelPath)
}

func TestTransform_Golden(t *testing.T) {
	t.Parallel()

	res := transform(t, tagger.New(), "const a = <div />;\n")

	want := `const a = <div` +
		` data-component-start="1:10:10"` +
		` data-component-end="1:17:17"` +
		` data-component-opening-start="1:10:10"` +
		` data-component-opening-end="1:17:17"` +
		` data-component-path="src/A.jsx"` +
		` data-component-file="A.jsx"` +
		` data-component-name="div"` +
		" />;\n"

	assert.Equal(t, want, res.Code)
	assert.True(t, res.Changed())
	require.Len(t, res.Records, 1)
	assert.Equal(t, position.Pos{Line: 1, Column: 14, Offset: 14}, res.Records[0].Insert)
}

func TestTransform_LegacyMarkers(t *testing.T) {
	t.Parallel()

	res := transform(t, tagger.New(tagger.WithLegacyMarkers(true)), "const a = <div />;\n")

	want := `const a = <div` +
		` data-component-index="10:17"` +
		` data-component-start="1:10:10"` +
		` data-component-end="1:17:17"` +
		` data-component-opening-start="1:10:10"` +
		` data-component-opening-end="1:17:17"` +
		` data-component-path="src/A.jsx"` +
		` data-component-file="A.jsx"` +
		` data-component-name="div"` +
		` data-component-line="1"` +
		` data-component-column="10"` +
		" />;\n"

	assert.Equal(t, want, res.Code)
}

func TestTransform_IdentityWithoutTags(t *testing.T) {
	t.Parallel()

	src := "export const add = (a, b) => a + b;\n// <NotJSX />\nconst s = \"<div>\";\n"
	res := transform(t, tagger.New(), src)

	assert.Equal(t, src, res.Code)
	assert.False(t, res.Changed())

	consumer, err := sourcemap.NewConsumer(res.Map)
	require.NoError(t, err)

	idx := position.NewIndex([]byte(src))
	for offset, r := range src {
		if r == '\n' {
			continue
		}

		pos := idx.Pos(offset)

		got, ok := consumer.Lookup(pos.Line, pos.Column)
		require.True(t, ok)
		assert.Equal(t, pos.Line, got.Line)
		assert.Equal(t, pos.Column, got.Column)
	}
}

func TestTransform_Exclusion(t *testing.T) {
	t.Parallel()

	src := "const a = <List><Row /><Foo.Bar /></List>;\n"
	engine := tagger.New(tagger.WithExclude("Row", "Foo.Bar"))

	res := transform(t, engine, src)

	require.Len(t, res.Records, 1)
	assert.Equal(t, "List", res.Records[0].Name)
	assert.Contains(t, res.Code, "<Row /><Foo.Bar /></List>;")
	assert.Equal(t, 1, strings.Count(res.Code, `data-component-name=`))

	plain := transform(t, tagger.New(), src)
	assert.Equal(t, plain.Records[0].Text(), res.Records[0].Text())
}

func TestTransform_ExcludeEmptyName(t *testing.T) {
	t.Parallel()

	res := transform(t, tagger.New(tagger.WithExclude("")), "const a = <svg:rect x=\"1\" />;\n")

	assert.Empty(t, res.Records)
	assert.Equal(t, "const a = <svg:rect x=\"1\" />;\n", res.Code)
}

func TestTransform_Names(t *testing.T) {
	t.Parallel()

	res := transform(t, tagger.New(), "const a = <><Foo.Bar.Baz /><Foo /><svg:rect /></>;\n")

	var names []string
	for _, rec := range res.Records {
		names = append(names, rec.Name)
	}

	assert.Equal(t, []string{"Foo.Bar.Baz", "Foo", ""}, names)
	assert.Contains(t, res.Code, `<Foo.Bar.Baz data-component-start=`)
	assert.Contains(t, res.Code, `data-component-name="" />`)
}

func TestTransform_InsertionPrecedesOriginalAttributes(t *testing.T) {
	t.Parallel()

	src := `const a = <Card title="x" {...rest} onClick={() => go(1)} disabled>body</Card>;` + "\n"
	res := transform(t, tagger.New(), src)

	tree, err := jsx.NewParser().Parse(context.Background(), jsx.GrammarTSX, []byte(res.Code))
	require.NoError(t, err)
	defer tree.Close()

	var names []string

	jsx.Walk(tree, func(tag jsx.Tag) {
		for _, attr := range tag.Attributes() {
			text := tree.Text(attr)
			if name, _, found := strings.Cut(text, "="); found {
				text = name
			}

			names = append(names, text)
		}
	})

	want := []string{
		"data-component-start", "data-component-end",
		"data-component-opening-start", "data-component-opening-end",
		"data-component-path", "data-component-file", "data-component-name",
		"title", "onClick", "disabled",
	}
	assert.Equal(t, want, names)
	assert.Contains(t, res.Code, `title="x" {...rest} onClick={() => go(1)} disabled>body</Card>`)
}

func TestTransform_AttributeShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		want    string
		without string
	}{
		{name: "string", src: `<img src="a.png" />`, want: `data-component-src="a.png"`},
		{name: "container", src: `<img src={"a.png"} />`, want: `data-component-src="a.png"`},
		{name: "dynamic", src: `<img src={dynamicVar} />`, without: `data-component-src`},
		{name: "class", src: `<p className="lead text" />`, want: `data-component-class="lead text"`},
		{name: "escaped class", src: `<p className={"say \"hi\" & <go>"} />`, want: `data-component-class="say &#34;hi&#34; &amp; &lt;go&gt;"`},
		{name: "key", src: `<li key="a" />`, want: `data-component-key="true"`},
		{name: "no key", src: `<li id="a" />`, without: `data-component-key`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := transform(t, tagger.New(), "const a = "+tt.src+";\n")
			if tt.want != "" {
				assert.Contains(t, res.Code, tt.want)
			}

			if tt.without != "" {
				assert.NotContains(t, res.Code, tt.without)
			}
		})
	}
}

func TestTransform_MarkerOrder(t *testing.T) {
	t.Parallel()

	src := `const a = xs.map(x => <img className="c" src="s.png" key={x} />);` + "\n"
	res := transform(t, tagger.New(), src)

	require.Len(t, res.Records, 1)

	var keys []string
	for _, m := range res.Records[0].Markers() {
		keys = append(keys, m.Key)
	}

	assert.Equal(t, []string{
		"key", "src", "class",
		"start", "end", "opening-start", "opening-end", "map-start", "map-end",
		"path", "file", "name",
	}, keys)
}

func TestTransform_ListDetection(t *testing.T) {
	t.Parallel()

	src := "const rows = items.map(item => <Row key={item.id} />);\n"
	callStart := strings.Index(src, "items.map")
	callEnd := strings.LastIndex(src, ")") + 1

	res := transform(t, tagger.New(), src)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	require.NotNil(t, rec.MapCall)
	assert.Equal(t, callStart, rec.MapCall.Start.Offset)
	assert.Equal(t, callEnd, rec.MapCall.End.Offset)
	assert.Contains(t, res.Code, `data-component-map-start="1:13:13"`)
	assert.Contains(t, res.Code, `data-component-map-end="1:53:53"`)

	withoutKey := transform(t, tagger.New(), "const rows = items.map(item => <Row id={item.id} />);\n")
	require.Len(t, withoutKey.Records, 1)
	assert.Nil(t, withoutKey.Records[0].MapCall)
	assert.NotContains(t, withoutKey.Code, "data-component-map-")
}

func TestTransform_ParseFailure(t *testing.T) {
	t.Parallel()

	src := "const a = (<div>;\n"

	res, err := tagger.New().Transform(context.Background(), doc(src))
	require.Error(t, err)
	assert.Nil(t, res)
	require.ErrorIs(t, err, tagger.ErrSyntax)

	var parseErr *tagger.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "src/A.jsx", parseErr.Path)
	assert.GreaterOrEqual(t, parseErr.Pos.Line, 1)
	assert.Contains(t, err.Error(), "src/A.jsx")
}

func TestTransform_MapFidelity(t *testing.T) {
	t.Parallel()

	src := "import x from './x';\n\nexport function App({ items }) {\n" +
		"  const title = \"héllo 😀\";\n" +
		"  return (\n    <main className=\"app\">\n" +
		"      {items.map(i => <Item key={i.id} {...i} />)}\n" +
		"      <img src={'logo.svg'} alt={title} />\n    </main>\n  );\n}\n"

	res := transform(t, tagger.New(), src)
	require.Len(t, res.Records, 3)

	consumer, err := sourcemap.NewConsumer(res.Map)
	require.NoError(t, err)

	origIdx := position.NewIndex([]byte(src))
	genIdx := position.NewIndex([]byte(res.Code))

	for offset, r := range src {
		if r == '\n' {
			continue
		}

		shift := 0
		for _, rec := range res.Records {
			if rec.InsertByte <= offset {
				shift += len(rec.Text())
			}
		}

		gen := genIdx.Pos(offset + shift)
		require.Equal(t, string(r), string([]rune(res.Code[offset+shift:])[0]))

		got, ok := consumer.Lookup(gen.Line, gen.Column)
		require.True(t, ok)

		want := origIdx.Pos(offset)
		assert.Equal(t, want.Line, got.Line, "offset %d", offset)
		assert.Equal(t, want.Column, got.Column, "offset %d", offset)
	}
}

func TestTransform_InsertedTextMapsToAnchor(t *testing.T) {
	t.Parallel()

	res := transform(t, tagger.New(), "const a = <div />;\n")

	consumer, err := sourcemap.NewConsumer(res.Map)
	require.NoError(t, err)

	for column := 14; column < 14+len(res.Records[0].Text()); column++ {
		got, ok := consumer.Lookup(1, column)
		require.True(t, ok)
		assert.Equal(t, 14, got.Column)
	}
}

func TestTransform_DeterministicNotIdempotent(t *testing.T) {
	t.Parallel()

	engine := tagger.New()
	src := "const a = <section><h1 className=\"t\">Hi</h1></section>;\n"

	first := transform(t, engine, src)
	second := transform(t, engine, src)

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Map.Mappings, second.Map.Mappings)

	again := transform(t, engine, first.Code)
	assert.NotEqual(t, first.Code, again.Code)
	assert.Equal(t, 2*strings.Count(first.Code, "data-component-name="), strings.Count(again.Code, "data-component-name="))
}

func TestTransform_UTF16Positions(t *testing.T) {
	t.Parallel()

	src := "const s = \"😀\"; const a = <b />;\n"
	res := transform(t, tagger.New(), src)

	require.Len(t, res.Records, 1)

	// The emoji counts as two units, the quotes around it as one each.
	start := strings.Index(src, "<b") - len("😀") + 2
	assert.Equal(t, start, res.Records[0].Element.Start.Column)
	assert.Equal(t, start, res.Records[0].Element.Start.Offset)
}

func TestTransform_SourcesContent(t *testing.T) {
	t.Parallel()

	src := "const a = <i />;\n"

	res := transform(t, tagger.New(), src)
	assert.Equal(t, []string{src}, res.Map.SourcesContent)
	assert.Equal(t, []string{"src/A.jsx"}, res.Map.Sources)
	assert.Equal(t, "A.jsx", res.Map.File)

	res = transform(t, tagger.New(tagger.WithSourcesContent(false)), src)
	assert.Nil(t, res.Map.SourcesContent)
}

func TestTransform_TypeScriptGenerics(t *testing.T) {
	t.Parallel()

	engine := tagger.New(tagger.WithGrammar(jsx.GrammarTSX))

	res, err := engine.Transform(context.Background(), tagger.NewDocument("/p/T.tsx", "/p",
		[]byte("const f = (x: number): JSX.Element => <Box size={x as number} />;\n")))
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, "Box", res.Records[0].Name)
	assert.True(t, bytes.Contains([]byte(res.Code), []byte(`<Box data-component-start=`)))
}

func TestMarker_Attribute(t *testing.T) {
	t.Parallel()

	m := tagger.Marker{Key: "name", Value: `a"b'c<d>&`}
	assert.Equal(t, ` data-component-name="a&#34;b&#39;c&lt;d&gt;&amp;"`, m.Attribute())
}
