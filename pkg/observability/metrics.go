package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "component_tagger.requests.total"
	metricRequestDuration  = "component_tagger.request.duration.seconds"
	metricErrorsTotal      = "component_tagger.errors.total"
	metricInflightRequests = "component_tagger.inflight.requests"

	attrOp     = "op"
	attrStatus = "status"

	// StatusOK and StatusError are the request outcomes recorded by REDMetrics.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries spans 1ms to 10s.
var durationBucketBoundaries = []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// instruments creates metric instruments and collects creation errors, so
// constructors can build every field before checking once.
type instruments struct {
	mt  metric.Meter
	err error
}

func (in *instruments) fail(name string, err error) {
	if err != nil {
		in.err = errors.Join(in.err, fmt.Errorf("create %s: %w", name, err))
	}
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.mt.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.fail(name, err)

	return c
}

func (in *instruments) gauge(name, desc, unit string) metric.Int64UpDownCounter {
	g, err := in.mt.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.fail(name, err)

	return g
}

func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.mt.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	in.fail(name, err)

	return h
}

// REDMetrics counts requests served by the HTTP and MCP front ends: rate,
// errors and duration, plus an in-flight gauge.
type REDMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	inflight metric.Int64UpDownCounter
}

// NewREDMetrics creates RED instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	in := &instruments{mt: mt}

	rm := &REDMetrics{
		requests: in.counter(metricRequestsTotal, "Requests handled", "{request}"),
		duration: in.seconds(metricRequestDuration, "Request duration in seconds"),
		errors:   in.counter(metricErrorsTotal, "Requests that failed", "{error}"),
		inflight: in.gauge(metricInflightRequests, "Requests in progress", "{request}"),
	}

	if in.err != nil {
		return nil, in.err
	}

	return rm, nil
}

// RecordRequest records a completed request. Safe on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	opAttr := attribute.String(attrOp, op)
	attrs := metric.WithAttributes(opAttr, attribute.String(attrStatus, status))

	rm.requests.Add(ctx, 1, attrs)
	rm.duration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errors.Add(ctx, 1, metric.WithAttributes(opAttr))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflight.Add(ctx, 1, attrs)

	return func() { rm.inflight.Add(ctx, -1, attrs) }
}
