// Package plugin adapts the tagger engine to a build-tool host: it decides
// which documents are eligible, derives their identity, caches results and
// turns parse failures into diagnostics.
package plugin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/twhy/react-component-tagger/pkg/cache"
	"github.com/twhy/react-component-tagger/pkg/config"
	"github.com/twhy/react-component-tagger/pkg/jsx"
	"github.com/twhy/react-component-tagger/pkg/observability"
	"github.com/twhy/react-component-tagger/pkg/sourcemap"
	"github.com/twhy/react-component-tagger/pkg/tagger"
)

const (
	// Name identifies the plugin to the host.
	Name = "react-component-tagger"
	// EnforcePre asks the host to run the plugin before its own transforms.
	EnforcePre = "pre"

	dependencyDir = "node_modules"
	tracerName    = "component-tagger/plugin"
)

// Output is what the host receives for a transformed document.
type Output struct {
	Code string         `json:"code"`
	Map  *sourcemap.Map `json:"map"`
}

// Options configures a Plugin.
type Options struct {
	// Root is the directory relative paths are computed from. Empty means the
	// process working directory.
	Root       string
	Exclude    []string
	Extensions []string
	// SkipVendored also skips paths enry classifies as vendored.
	SkipVendored   bool
	LegacyMarkers  bool
	Grammar        jsx.Grammar
	SourcesContent bool

	// CacheEntries and CacheBytes bound the result cache. Both zero disables it.
	CacheEntries int
	CacheBytes   int64

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.TaggerMetrics
}

// DefaultOptions annotates .jsx and .tsx files and embeds sources in maps.
func DefaultOptions() Options {
	return Options{
		Extensions:     slices.Clone(config.DefaultExtensions),
		SourcesContent: true,
	}
}

// OptionsFromConfig maps loaded configuration onto plugin options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	grammar, err := jsx.ParseGrammar(cfg.Grammar)
	if err != nil {
		return Options{}, fmt.Errorf("plugin options: %w", err)
	}

	opts := Options{
		Root:           cfg.Root,
		Exclude:        slices.Clone(cfg.Exclude),
		Extensions:     slices.Clone(cfg.Extensions),
		SkipVendored:   cfg.SkipVendored,
		LegacyMarkers:  cfg.LegacyMarkers,
		Grammar:        grammar,
		SourcesContent: cfg.SourcesContent,
	}

	if cfg.Cache.Enabled {
		maxBytes, sizeErr := cfg.Cache.MaxBytes()
		if sizeErr != nil {
			return Options{}, fmt.Errorf("plugin options: %w", sizeErr)
		}

		opts.CacheEntries = cfg.Cache.MaxEntries
		opts.CacheBytes = maxBytes
	}

	return opts, nil
}

// Plugin is the host adapter. It is safe for concurrent use.
type Plugin struct {
	root       string
	extensions []string
	vendored   bool
	optionsKey string

	engine  *tagger.Engine
	cache   *cache.LRU[string, []byte]
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.TaggerMetrics
}

// New creates a Plugin. The root is resolved once, here.
func New(opts Options) (*Plugin, error) {
	root, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = config.DefaultExtensions
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}

	engineOpts := []tagger.Option{
		tagger.WithExclude(opts.Exclude...),
		tagger.WithLegacyMarkers(opts.LegacyMarkers),
		tagger.WithSourcesContent(opts.SourcesContent),
		tagger.WithLogger(logger),
	}

	if opts.Grammar != "" {
		engineOpts = append(engineOpts, tagger.WithGrammar(opts.Grammar))
	}

	p := &Plugin{
		root:       root,
		extensions: slices.Clone(extensions),
		vendored:   opts.SkipVendored,
		optionsKey: optionsKey(opts),
		engine:     tagger.New(engineOpts...),
		cache:      newResultCache(opts.CacheEntries, opts.CacheBytes),
		logger:     logger,
		tracer:     tracer,
		metrics:    opts.Metrics,
	}

	return p, nil
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}

		return wd, nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}

	return abs, nil
}

func newResultCache(entries int, maxBytes int64) *cache.LRU[string, []byte] {
	var opts []cache.Option[string, []byte]

	if entries > 0 {
		opts = append(opts, cache.WithMaxEntries[string, []byte](entries))
	}

	if maxBytes > 0 {
		opts = append(opts, cache.WithMaxBytes[string](maxBytes, func(v []byte) int64 { return int64(len(v)) }))
	}

	if len(opts) == 0 {
		return nil
	}

	return cache.NewLRU(opts...)
}

// optionsKey folds every option that changes output into the cache key.
func optionsKey(opts Options) string {
	exclude := slices.Clone(opts.Exclude)
	slices.Sort(exclude)

	return strings.Join([]string{
		strings.Join(exclude, "\x00"),
		strconv.FormatBool(opts.LegacyMarkers),
		strconv.FormatBool(opts.SourcesContent),
		string(opts.Grammar),
	}, "\x01")
}

// Name returns the plugin name.
func (p *Plugin) Name() string { return Name }

// Enforce returns the ordering hint for the host.
func (p *Plugin) Enforce() string { return EnforcePre }

// Root returns the absolute root used for relative paths.
func (p *Plugin) Root() string { return p.root }

// Engine exposes the underlying engine.
func (p *Plugin) Engine() *tagger.Engine { return p.engine }

// Eligible reports whether a document id should be offered to the engine.
func (p *Plugin) Eligible(id string) bool {
	if strings.Contains(id, dependencyDir) {
		return false
	}

	if !slices.Contains(p.extensions, filepath.Ext(id)) {
		return false
	}

	if p.vendored && enry.IsVendor(p.relative(id)) {
		return false
	}

	return true
}

func (p *Plugin) relative(id string) string {
	rel, err := filepath.Rel(p.root, id)
	if err != nil {
		return filepath.ToSlash(id)
	}

	return filepath.ToSlash(rel)
}

// Document builds the identity for id. Relative ids are taken against the root.
func (p *Plugin) Document(id string, code []byte) tagger.Document {
	if !filepath.IsAbs(id) {
		id = filepath.Join(p.root, id)
	}

	return tagger.NewDocument(id, p.root, code)
}

// Annotate runs the engine regardless of eligibility and returns failures
// instead of logging them. Callers that want host semantics use Transform.
func (p *Plugin) Annotate(ctx context.Context, code []byte, id string) (*tagger.Result, error) {
	doc := p.Document(id, code)

	ctx, span := p.tracer.Start(ctx, "plugin.annotate",
		trace.WithAttributes(attribute.String("document.path", doc.RelPath)))
	defer span.End()

	res, err := p.engine.Transform(ctx, doc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "annotate failed")

		return nil, fmt.Errorf("annotate: %w", err)
	}

	span.SetAttributes(attribute.Int("tags", len(res.Records)))

	return res, nil
}

// Transform is the host entry point. It returns nil when the document is not
// eligible or fails to parse; the failure is logged with the document path.
func (p *Plugin) Transform(ctx context.Context, code, id string) *Output {
	start := time.Now()

	if !p.Eligible(id) {
		p.metrics.RecordDocument(ctx, observability.OutcomeSkipped, 0, 0)

		return nil
	}

	key := p.cacheKey(id, code)
	if out, ok := p.lookup(key); ok {
		p.metrics.RecordDocument(ctx, observability.OutcomeCached, 0, time.Since(start))

		return out
	}

	res, err := p.Annotate(ctx, []byte(code), id)
	if err != nil {
		p.logger.ErrorContext(ctx, "error processing file",
			"path", p.Document(id, nil).RelPath, "error", err)
		p.metrics.RecordDocument(ctx, observability.OutcomeFailed, 0, time.Since(start))

		return nil
	}

	outcome := observability.OutcomeUnchanged
	if res.Changed() {
		outcome = observability.OutcomeAnnotated
	}

	p.metrics.RecordDocument(ctx, outcome, len(res.Records), time.Since(start))

	out := &Output{Code: res.Code, Map: res.Map}
	p.store(key, out)

	return out
}

func (p *Plugin) cacheKey(id, code string) string {
	if p.cache == nil {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(id))
	h.Write([]byte{0})
	h.Write([]byte(code))
	h.Write([]byte{0})
	h.Write([]byte(p.optionsKey))

	return hex.EncodeToString(h.Sum(nil))
}

func (p *Plugin) lookup(key string) (*Output, bool) {
	if p.cache == nil {
		return nil, false
	}

	payload, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}

	raw, err := cache.Decompress(payload)
	if err != nil {
		p.cache.Remove(key)

		return nil, false
	}

	var out Output

	err = json.Unmarshal(raw, &out)
	if err != nil {
		p.cache.Remove(key)

		return nil, false
	}

	return &out, true
}

func (p *Plugin) store(key string, out *Output) {
	if p.cache == nil {
		return
	}

	raw, err := json.Marshal(out)
	if err != nil {
		p.logger.Warn("cache encode failed", "error", err)

		return
	}

	p.cache.Put(key, cache.Compress(raw))
}

// CacheStats reports result cache statistics. ok is false when caching is off.
func (p *Plugin) CacheStats() (cache.Stats, bool) {
	if p.cache == nil {
		return cache.Stats{}, false
	}

	return p.cache.Stats(), true
}

// IsParseFailure reports whether err came from malformed source.
func IsParseFailure(err error) bool {
	return errors.Is(err, tagger.ErrSyntax)
}
