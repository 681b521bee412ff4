package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

// TracingHandler decorates an [slog.Handler] with the ids of the span in the
// record's context. Enabled is inherited from the wrapped handler.
type TracingHandler struct {
	slog.Handler
}

// NewTracingHandler wraps inner and pins service, mode and (when set) env
// ahead of any group.
func NewTracingHandler(inner slog.Handler, service, env string, mode AppMode) *TracingHandler {
	pinned := make([]slog.Attr, 0, 3) //nolint:mnd // service, mode, env
	pinned = append(pinned, slog.String(attrService, service), slog.String(attrMode, string(mode)))

	if env != "" {
		pinned = append(pinned, slog.String(attrEnv, env))
	}

	return &TracingHandler{Handler: inner.WithAttrs(pinned)}
}

// Handle implements [slog.Handler].
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.Handler.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("write log record: %w", err)
	}

	return nil
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{Handler: th.Handler.WithAttrs(attrs)}
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{Handler: th.Handler.WithGroup(name)}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
