// Package tagger annotates JSX opening tags with data-component-* attributes
// that point back to the source location that rendered them.
package tagger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/twhy/react-component-tagger/pkg/jsx"
	"github.com/twhy/react-component-tagger/pkg/position"
	"github.com/twhy/react-component-tagger/pkg/rewrite"
	"github.com/twhy/react-component-tagger/pkg/sourcemap"
)

// ErrSyntax is wrapped by every ParseError.
var ErrSyntax = jsx.ErrSyntax

// ParseError reports a document that could not be parsed.
type ParseError struct {
	Path string
	Pos  position.Pos
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s at %d:%d: %v", e.Path, e.Pos.Line, e.Pos.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Document is one source file offered for annotation.
type Document struct {
	// Path is the document id, usually absolute.
	Path string
	// RelPath is Path relative to the project root, slash separated.
	RelPath string
	// Filename is the base name of Path.
	Filename string
	Source   []byte
}

// NewDocument fills RelPath and Filename from path and root.
func NewDocument(path, root string, src []byte) Document {
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil {
			rel = r
		}
	}

	return Document{
		Path:     path,
		RelPath:  filepath.ToSlash(rel),
		Filename: filepath.Base(path),
		Source:   src,
	}
}

// Result is the outcome of a successful transform.
type Result struct {
	Code    string
	Map     *sourcemap.Map
	Records []Record
}

// Changed reports whether any tag was annotated.
func (r *Result) Changed() bool {
	return len(r.Records) > 0
}

// Engine annotates documents. It is safe for concurrent use.
type Engine struct {
	parser         *jsx.Parser
	exclude        map[string]struct{}
	legacy         bool
	grammar        jsx.Grammar
	sourcesContent bool
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithExclude skips tags whose resolved name is in names.
func WithExclude(names ...string) Option {
	return func(e *Engine) {
		for _, n := range names {
			e.exclude[n] = struct{}{}
		}
	}
}

// WithLegacyMarkers also emits the index, line and column markers.
func WithLegacyMarkers(enabled bool) Option {
	return func(e *Engine) {
		e.legacy = enabled
	}
}

// WithGrammar forces a grammar instead of choosing by extension.
func WithGrammar(g jsx.Grammar) Option {
	return func(e *Engine) {
		e.grammar = g
	}
}

// WithSourcesContent controls whether maps embed the original text.
func WithSourcesContent(enabled bool) Option {
	return func(e *Engine) {
		e.sourcesContent = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParser shares a parser between engines.
func WithParser(p *jsx.Parser) Option {
	return func(e *Engine) {
		if p != nil {
			e.parser = p
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		parser:         jsx.NewParser(),
		exclude:        make(map[string]struct{}),
		sourcesContent: true,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Excluded reports whether a resolved name is skipped.
func (e *Engine) Excluded(name string) bool {
	_, ok := e.exclude[name]

	return ok
}

// Annotate computes one record per non-excluded opening tag, in document order.
func (e *Engine) Annotate(tree *jsx.Tree, doc Document) []Record {
	src := tree.Source()
	idx := position.NewIndex(src)

	var records []Record

	jsx.Walk(tree, func(tag jsx.Tag) {
		name := jsx.ResolveName(tree, tag)
		if e.Excluded(name) {
			return
		}

		attrs := jsx.ExtractAttributes(tree, tag)

		element := tag.ElementRange()
		opening := tag.OpeningRange()
		insert := tag.InsertOffset()

		rec := Record{
			Name:       name,
			Element:    idx.Span(element.Start, element.End),
			Opening:    idx.Span(opening.Start, opening.End),
			HasKey:     attrs.HasKey,
			Src:        attrs.Src,
			Class:      attrs.Class,
			RelPath:    doc.RelPath,
			Filename:   doc.Filename,
			Insert:     idx.Pos(insert),
			InsertByte: insert,
			Legacy:     e.legacy,
		}

		if attrs.HasKey {
			if call, ok := jsx.FindEnclosingMapCall(src, tag.Ancestors); ok {
				span := idx.Span(call.Start, call.End)
				rec.MapCall = &span
			}
		}

		records = append(records, rec)
	})

	return records
}

// Parse parses a document with the engine's grammar selection. A syntax
// error is returned as a *ParseError.
func (e *Engine) Parse(ctx context.Context, doc Document) (*jsx.Tree, error) {
	grammar := e.grammar
	if grammar == "" {
		grammar = jsx.GrammarForPath(doc.Path)
	}

	tree, err := e.parser.Parse(ctx, grammar, doc.Source)
	if err == nil {
		return tree, nil
	}

	var syntaxErr *jsx.SyntaxError
	if errors.As(err, &syntaxErr) {
		return nil, &ParseError{
			Path: doc.RelPath,
			Pos:  position.NewIndex(doc.Source).Pos(syntaxErr.Offset),
			Err:  err,
		}
	}

	return nil, fmt.Errorf("parse %s: %w", doc.RelPath, err)
}

// Transform parses, annotates and rewrites a document.
func (e *Engine) Transform(ctx context.Context, doc Document) (*Result, error) {
	tree, err := e.Parse(ctx, doc)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	records := e.Annotate(tree, doc)

	buf := rewrite.New(doc.Source)
	for _, rec := range records {
		err = buf.AppendLeft(rec.InsertByte, rec.Text())
		if err != nil {
			return nil, fmt.Errorf("annotate %s: %w", doc.RelPath, err)
		}
	}

	source := doc.RelPath
	if source == "" {
		source = doc.Path
	}

	out := buf.Commit(rewrite.MapOptions{
		File:           doc.Filename,
		Source:         source,
		IncludeContent: e.sourcesContent,
	})

	e.logger.DebugContext(ctx, "annotated document",
		"path", doc.RelPath, "tags", len(records), "bytes", buf.Len())

	return &Result{Code: out.Code, Map: out.Map, Records: records}, nil
}
