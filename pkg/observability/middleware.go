package observability

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const httpStatusServerError = 500

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}

	n, err := sw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware returns middleware that opens a server span per request and
// records it in red when red is non-nil. Span names are "METHOD /path".
func HTTPMiddleware(tracer trace.Tracer, red *REDMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
			start := time.Now()
			op := hr.Method + " " + hr.URL.Path

			parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

			ctx, span := tracer.Start(parentCtx, op,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(hr.Method),
					attribute.String("http.target", hr.URL.Path),
				),
			)
			defer span.End()

			done := red.TrackInflight(ctx, op)
			defer done()

			sw := &statusWriter{ResponseWriter: rw, statusCode: http.StatusOK}
			next.ServeHTTP(sw, hr.WithContext(ctx))

			span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))

			status := StatusOK
			if sw.statusCode >= httpStatusServerError {
				status = StatusError

				span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
			}

			red.RecordRequest(ctx, op, status, time.Since(start))
		})
	}
}
