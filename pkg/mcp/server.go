// Package mcp implements a Model Context Protocol server exposing JSX
// annotation as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/twhy/react-component-tagger/pkg/jsx"
	"github.com/twhy/react-component-tagger/pkg/observability"
	"github.com/twhy/react-component-tagger/pkg/plugin"
	"github.com/twhy/react-component-tagger/pkg/version"
)

const (
	serverName = "component-tagger"

	toolCount = 2
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Plugin supplies document identity and the configured engine. Nil uses
	// plugin defaults rooted at the working directory.
	Plugin *plugin.Plugin

	Logger *slog.Logger

	// Metrics records per-tool RED metrics. Nil disables them.
	Metrics *observability.REDMetrics

	// Tracer opens a span per tool call. Nil disables tracing.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the annotation tools registered.
type Server struct {
	inner   *mcpsdk.Server
	plugin  *plugin.Plugin
	parser  *jsx.Parser
	logger  *slog.Logger
	mu      sync.RWMutex
	tools   []string
	metrics *observability.REDMetrics
	tracer  trace.Tracer
}

// NewServer creates an MCP server with all tools registered.
func NewServer(deps ServerDeps) (*Server, error) {
	p := deps.Plugin
	if p == nil {
		var err error

		p, err = plugin.New(plugin.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("mcp server: %w", err)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		&mcpsdk.ServerOptions{Logger: logger},
	)

	srv := &Server{
		inner:   inner,
		plugin:  p,
		parser:  jsx.NewParser(),
		logger:  logger,
		tools:   make([]string, 0, toolCount),
		metrics: deps.Metrics,
		tracer:  deps.Tracer,
	}

	srv.registerTools()

	return srv, nil
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until the context is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on the given transport until the context is
// canceled or the connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameAnnotate,
		Description: annotateToolDescription,
	}, withMetrics(s.metrics, ToolNameAnnotate, withTracing(s.tracer, ToolNameAnnotate, s.handleAnnotate)))

	s.trackTool(ToolNameAnnotate)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameInspect,
		Description: inspectToolDescription,
	}, withMetrics(s.metrics, ToolNameInspect, withTracing(s.tracer, ToolNameInspect, s.handleInspect)))

	s.trackTool(ToolNameInspect)
}

const (
	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// withTracing opens a span per invocation and appends the trace id to the
// response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			result.Content = append(result.Content,
				&mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())})
		}

		return result, output, err
	}
}

// withMetrics records RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error),
) func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()
		op := mcpSpanPrefix + toolName

		done := metrics.TrackInflight(ctx, op)
		defer done()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	annotateToolDescription = "Annotate JSX opening tags with data-component-* attributes " +
		"(source span, opening-tag span, enclosing .map call, path, file, name). " +
		"Returns the rewritten code and a source map."

	inspectToolDescription = "List the annotation records computed for each JSX opening tag " +
		"without rewriting the code."
)
