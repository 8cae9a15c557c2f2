package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// TracingAuditTrail wraps a domain.AuditTrail with OpenTelemetry tracing.
type TracingAuditTrail struct {
	next   domain.AuditTrail
	tracer trace.Tracer
}

// Compile-time check: TracingAuditTrail implements domain.AuditTrail.
var _ domain.AuditTrail = (*TracingAuditTrail)(nil)

// NewTracingAuditTrail creates a tracing decorator around the given audit trail.
func NewTracingAuditTrail(next domain.AuditTrail) *TracingAuditTrail {
	return &TracingAuditTrail{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (a *TracingAuditTrail) Append(ctx context.Context, rec domain.StatusHistoryRecord) error {
	ctx, span := a.tracer.Start(ctx, "AuditTrail.Append",
		trace.WithAttributes(
			attribute.String("listing.id", rec.ListingID),
			attribute.String("audit.record_id", rec.ID),
			attribute.String("listing.status.from", string(rec.FromStatus)),
			attribute.String("listing.status.to", string(rec.ToStatus)),
		),
	)
	defer span.End()

	err := a.next.Append(ctx, rec)
	if err != nil {
		recordError(span, err)
	}
	return err
}

func (a *TracingAuditTrail) History(ctx context.Context, listingID string) ([]domain.StatusHistoryRecord, error) {
	ctx, span := a.tracer.Start(ctx, "AuditTrail.History",
		trace.WithAttributes(attribute.String("listing.id", listingID)),
	)
	defer span.End()

	records, err := a.next.History(ctx, listingID)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(records)))
	}
	return records, err
}
