package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// TracingPublisher wraps a domain.EventPublisher with OpenTelemetry tracing
// and counts every applied transition it sees.
type TracingPublisher struct {
	next        domain.EventPublisher
	tracer      trace.Tracer
	transitions metric.Int64Counter
}

// Compile-time check: TracingPublisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EventPublisher) (*TracingPublisher, error) {
	counter, err := otel.Meter(tracerName).Int64Counter(TransitionsMetric,
		metric.WithDescription("Applied listing status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &TracingPublisher{
		next:        next,
		tracer:      otel.Tracer(tracerName),
		transitions: counter,
	}, nil
}

func (p *TracingPublisher) Publish(ctx context.Context, rec domain.StatusHistoryRecord) error {
	attrs := []attribute.KeyValue{
		attribute.String("listing.status.from", string(rec.FromStatus)),
		attribute.String("listing.status.to", string(rec.ToStatus)),
		attribute.String("actor.role", string(rec.ChangedByRole)),
	}
	p.transitions.Add(ctx, 1, metric.WithAttributes(attrs...))

	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish",
		trace.WithAttributes(append(attrs,
			attribute.String("listing.id", rec.ListingID),
			attribute.String("audit.record_id", rec.ID),
		)...),
	)
	defer span.End()

	err := p.next.Publish(ctx, rec)
	if err != nil {
		recordError(span, err)
	}
	return err
}
