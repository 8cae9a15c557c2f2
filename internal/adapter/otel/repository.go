package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/listingiq/internal/domain"
)

const tracerName = "github.com/neomorfeo/listingiq/internal/adapter/otel"

// TracingListingStore wraps a domain.ListingStore with OpenTelemetry tracing.
// Each method creates a span with listing attributes and records errors.
type TracingListingStore struct {
	next   domain.ListingStore
	tracer trace.Tracer
}

// Compile-time check: TracingListingStore implements domain.ListingStore.
var _ domain.ListingStore = (*TracingListingStore)(nil)

// NewTracingListingStore creates a tracing decorator around the given store.
func NewTracingListingStore(next domain.ListingStore) *TracingListingStore {
	return &TracingListingStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingListingStore) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	ctx, span := s.tracer.Start(ctx, "ListingStore.GetByID",
		trace.WithAttributes(attribute.String("listing.id", id)),
	)
	defer span.End()

	listing, err := s.next.GetByID(ctx, id)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.String("listing.status", string(listing.Status)))
	}
	return listing, err
}

func (s *TracingListingStore) CompareAndSetStatus(ctx context.Context, id string, expected, to domain.Status) error {
	ctx, span := s.tracer.Start(ctx, "ListingStore.CompareAndSetStatus",
		trace.WithAttributes(
			attribute.String("listing.id", id),
			attribute.String("listing.status.expected", string(expected)),
			attribute.String("listing.status.to", string(to)),
		),
	)
	defer span.End()

	err := s.next.CompareAndSetStatus(ctx, id, expected, to)
	if err != nil {
		recordError(span, err)
	}
	return err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.kind", string(domain.KindOf(err))))
}
