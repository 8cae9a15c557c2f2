package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// TracingUnitOfWork wraps a domain.UnitOfWorkFactory with OpenTelemetry
// tracing. Each unit gets one span from Begin until Commit or Rollback.
type TracingUnitOfWork struct {
	next   domain.UnitOfWorkFactory
	tracer trace.Tracer
}

// Compile-time check: TracingUnitOfWork implements domain.UnitOfWorkFactory.
var _ domain.UnitOfWorkFactory = (*TracingUnitOfWork)(nil)

// NewTracingUnitOfWork creates a tracing decorator around the given factory.
func NewTracingUnitOfWork(next domain.UnitOfWorkFactory) *TracingUnitOfWork {
	return &TracingUnitOfWork{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (u *TracingUnitOfWork) Begin(ctx context.Context) (domain.StatusUnit, error) {
	_, span := u.tracer.Start(ctx, "StatusUnit")

	unit, err := u.next.Begin(ctx)
	if err != nil {
		recordError(span, err)
		span.End()
		return nil, err
	}
	return &tracingUnit{next: unit, span: span}, nil
}

type tracingUnit struct {
	next  domain.StatusUnit
	span  trace.Span
	ended bool
}

func (t *tracingUnit) CompareAndSetStatus(ctx context.Context, id string, expected, to domain.Status) error {
	t.span.SetAttributes(
		attribute.String("listing.id", id),
		attribute.String("listing.status.expected", string(expected)),
		attribute.String("listing.status.to", string(to)),
	)
	err := t.next.CompareAndSetStatus(ctx, id, expected, to)
	if err != nil {
		recordError(t.span, err)
	}
	return err
}

func (t *tracingUnit) Append(ctx context.Context, rec domain.StatusHistoryRecord) error {
	t.span.SetAttributes(attribute.String("audit.record_id", rec.ID))
	err := t.next.Append(ctx, rec)
	if err != nil {
		recordError(t.span, err)
	}
	return err
}

func (t *tracingUnit) Commit() error {
	err := t.next.Commit()
	if err != nil {
		recordError(t.span, err)
	}
	t.end("commit")
	return err
}

func (t *tracingUnit) Rollback() error {
	err := t.next.Rollback()
	t.end("rollback")
	return err
}

func (t *tracingUnit) end(outcome string) {
	if t.ended {
		return
	}
	t.ended = true
	t.span.SetAttributes(attribute.String("unit.outcome", outcome))
	t.span.End()
}
