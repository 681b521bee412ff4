package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricDocumentsTotal    = "component_tagger.documents.total"
	metricTagsTotal         = "component_tagger.tags.total"
	metricTransformDuration = "component_tagger.transform.duration.seconds"

	attrOutcome = "outcome"
)

// Document outcomes.
const (
	OutcomeAnnotated = "annotated"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeCached    = "cached"
)

// TaggerMetrics holds instruments for document annotation.
type TaggerMetrics struct {
	documents metric.Int64Counter
	tags      metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewTaggerMetrics creates annotation instruments from the given meter.
func NewTaggerMetrics(mt metric.Meter) (*TaggerMetrics, error) {
	in := &instruments{mt: mt}

	tm := &TaggerMetrics{
		documents: in.counter(metricDocumentsTotal, "Documents offered for annotation, by outcome", "{document}"),
		tags:      in.counter(metricTagsTotal, "JSX opening tags annotated", "{tag}"),
		duration:  in.seconds(metricTransformDuration, "Per-document transform duration in seconds"),
	}

	if in.err != nil {
		return nil, in.err
	}

	return tm, nil
}

// RecordDocument records one document. Safe on a nil receiver.
// Skipped documents never reach the engine and get no duration sample.
func (tm *TaggerMetrics) RecordDocument(ctx context.Context, outcome string, tags int, elapsed time.Duration) {
	if tm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))

	tm.documents.Add(ctx, 1, attrs)

	if tags > 0 {
		tm.tags.Add(ctx, int64(tags))
	}

	if outcome != OutcomeSkipped {
		tm.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
