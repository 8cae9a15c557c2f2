package otel_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/neomorfeo/listingiq/internal/adapter/otel"
	"github.com/neomorfeo/listingiq/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock store ---

type mockStore struct {
	listings map[string]domain.Listing
}

func newMockStore(listings ...domain.Listing) *mockStore {
	m := &mockStore{listings: make(map[string]domain.Listing)}
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return m
}

func (m *mockStore) GetByID(_ context.Context, id string) (domain.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (m *mockStore) CompareAndSetStatus(_ context.Context, id string, expected, to domain.Status) error {
	l, ok := m.listings[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	if l.Status != expected {
		return domain.ErrStatusConflict
	}
	l.Status = to
	m.listings[id] = l
	return nil
}

// --- Tests ---

func TestTracingListingStore_GetByID_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	store := adapter.NewTracingListingStore(newMockStore(domain.Listing{ID: "l-1", OwnerID: "u-1", Status: domain.StatusActive}))

	got, err := store.GetByID(context.Background(), "l-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OwnerID != "u-1" {
		t.Errorf("OwnerID = %q, want %q", got.OwnerID, "u-1")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "ListingStore.GetByID" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "ListingStore.GetByID")
	}

	assertAttribute(t, spans[0], "listing.id", "l-1")
	assertAttribute(t, spans[0], "listing.status", "ACTIVE")
}

func TestTracingListingStore_GetByID_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	store := adapter.NewTracingListingStore(newMockStore())

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrListingNotFound) {
		t.Fatalf("expected ErrListingNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
	assertAttribute(t, spans[0], "error.kind", "not_found")
}

func TestTracingListingStore_CompareAndSetStatus_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockStore(domain.Listing{ID: "l-1", OwnerID: "u-1", Status: domain.StatusActive})
	store := adapter.NewTracingListingStore(inner)

	if err := store.CompareAndSetStatus(context.Background(), "l-1", domain.StatusActive, domain.StatusHidden); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.listings["l-1"].Status != domain.StatusHidden {
		t.Errorf("status = %q, want HIDDEN", inner.listings["l-1"].Status)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "ListingStore.CompareAndSetStatus" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "ListingStore.CompareAndSetStatus")
	}
	assertAttribute(t, spans[0], "listing.status.expected", "ACTIVE")
	assertAttribute(t, spans[0], "listing.status.to", "HIDDEN")
}

func TestTracingListingStore_CompareAndSetStatus_Conflict(t *testing.T) {
	exporter := setupTestTracer(t)
	store := adapter.NewTracingListingStore(newMockStore(domain.Listing{ID: "l-1", Status: domain.StatusSold}))

	err := store.CompareAndSetStatus(context.Background(), "l-1", domain.StatusActive, domain.StatusHidden)
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "error.kind", "conflict")
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
