package observability_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/twhy/react-component-tagger/pkg/observability"
)

func newTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	return exporter, tp.Tracer("test")
}

func TestHTTPMiddleware_CreatesSpan(t *testing.T) {
	t.Parallel()

	exporter, tracer := newTestTracer(t)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	mw := observability.HTTPMiddleware(tracer, nil)(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/transform", http.NoBody)
	rec := httptest.NewRecorder()

	mw.ServeHTTP(rec, req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /api/transform", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
}

func TestHTTPMiddleware_PropagatesContext(t *testing.T) {
	t.Parallel()

	_, tracer := newTestTracer(t)

	var valid bool

	handler := http.HandlerFunc(func(_ http.ResponseWriter, hr *http.Request) {
		valid = trace.SpanContextFromContext(hr.Context()).IsValid()
	})

	mw := observability.HTTPMiddleware(tracer, nil)(handler)
	mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.True(t, valid)
}

func TestHTTPMiddleware_SetsStatusOnError(t *testing.T) {
	t.Parallel()

	exporter, tracer := newTestTracer(t)
	red, reader := setupTestMeter(t)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	})

	mw := observability.HTTPMiddleware(tracer, red)(handler)
	mw.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/transform", http.NoBody))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "component_tagger.errors.total")))
	assert.Equal(t, int64(0), sumValue(t, findMetric(rm, "component_tagger.inflight.requests")))
}

func TestHTTPMiddleware_ImplicitOK(t *testing.T) {
	t.Parallel()

	exporter, tracer := newTestTracer(t)
	red, reader := setupTestMeter(t)

	handler := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, err := rw.Write([]byte("ok"))
		assert.NoError(t, err)
	})

	rec := httptest.NewRecorder()
	observability.HTTPMiddleware(tracer, red)(handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status.Code)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "component_tagger.requests.total")))
}
