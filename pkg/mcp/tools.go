package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/twhy/react-component-tagger/pkg/sourcemap"
	"github.com/twhy/react-component-tagger/pkg/tagger"
)

// Tool name constants.
const (
	ToolNameAnnotate = "annotate_jsx"
	ToolNameInspect  = "inspect_jsx"
)

// MaxCodeInputBytes is the maximum allowed size for inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

const defaultPath = "Component.tsx"

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode    = errors.New("code parameter is required and must not be empty")
	ErrCodeTooLarge = errors.New("code input exceeds maximum size")
)

// AnnotateInput is the input schema for the annotate_jsx tool.
type AnnotateInput struct {
	Code          string   `json:"code"                     jsonschema:"JSX or TSX source to annotate"`
	Path          string   `json:"path,omitempty"           jsonschema:"document path; picks the grammar and the path marker (default Component.tsx)"`
	Exclude       []string `json:"exclude,omitempty"        jsonschema:"component names to leave untouched"`
	LegacyMarkers bool     `json:"legacy_markers,omitempty" jsonschema:"also emit the index, line and column markers"`
}

// InspectInput is the input schema for the inspect_jsx tool.
type InspectInput struct {
	Code    string   `json:"code"              jsonschema:"JSX or TSX source to inspect"`
	Path    string   `json:"path,omitempty"    jsonschema:"document path (default Component.tsx)"`
	Exclude []string `json:"exclude,omitempty" jsonschema:"component names to leave out"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// AnnotateResult is the data returned by annotate_jsx.
type AnnotateResult struct {
	Changed bool           `json:"changed"`
	Tags    int            `json:"tags"`
	Code    string         `json:"code"`
	Map     *sourcemap.Map `json:"map"`
}

// InspectResult is the data returned by inspect_jsx.
type InspectResult struct {
	Path    string          `json:"path"`
	Records []tagger.Record `json:"records"`
}

func (s *Server) handleAnnotate(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input AnnotateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	res, err := s.annotate(ctx, input.Code, input.Path, input.Exclude, input.LegacyMarkers)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(AnnotateResult{
		Changed: res.Changed(),
		Tags:    len(res.Records),
		Code:    res.Code,
		Map:     res.Map,
	})
}

func (s *Server) handleInspect(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input InspectInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateCodeInput(input.Code)
	if err != nil {
		return errorResult(err)
	}

	res, err := s.annotate(ctx, input.Code, input.Path, input.Exclude, false)
	if err != nil {
		return errorResult(err)
	}

	records := res.Records
	if records == nil {
		records = []tagger.Record{}
	}

	return jsonResult(InspectResult{
		Path:    s.plugin.Document(documentPath(input.Path), nil).RelPath,
		Records: records,
	})
}

// annotate uses the plugin engine unless the call overrides its options.
func (s *Server) annotate(
	ctx context.Context, code, path string, exclude []string, legacy bool,
) (*tagger.Result, error) {
	path = documentPath(path)

	if len(exclude) == 0 && !legacy {
		return s.plugin.Annotate(ctx, []byte(code), path) //nolint:wrapcheck // already wrapped by the plugin
	}

	engine := tagger.New(
		tagger.WithParser(s.parser),
		tagger.WithExclude(exclude...),
		tagger.WithLegacyMarkers(legacy),
		tagger.WithLogger(s.logger),
	)

	res, err := engine.Transform(ctx, s.plugin.Document(path, []byte(code)))
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	return res, nil
}

func documentPath(path string) string {
	if path == "" {
		return defaultPath
	}

	return path
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

func validateCodeInput(code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	if len(code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(code), MaxCodeInputBytes)
	}

	return nil
}
