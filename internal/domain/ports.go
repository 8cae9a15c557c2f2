package domain

import "context"

// ListingStore is the external listing persistence, reduced to what the
// status engine needs.
type ListingStore interface {
	GetByID(ctx context.Context, id string) (Listing, error)
	// CompareAndSetStatus moves the listing to `to` only if its stored status
	// is still `expected`. It returns ErrStatusConflict when the stored status
	// differs and ErrListingNotFound when the listing does not exist.
	CompareAndSetStatus(ctx context.Context, id string, expected, to Status) error
}

// AuditTrail is the append-only status history.
type AuditTrail interface {
	Append(ctx context.Context, record StatusHistoryRecord) error
	// History returns the records of a listing ordered by CreatedAt ascending.
	History(ctx context.Context, listingID string) ([]StatusHistoryRecord, error)
}

// EventPublisher defines the contract for announcing applied transitions.
type EventPublisher interface {
	Publish(ctx context.Context, record StatusHistoryRecord) error
}

// TransitionValidator checks a requested edge against the lifecycle graph.
// It returns a *TransitionError of KindIllegalTransition for illegal edges.
type TransitionValidator interface {
	Validate(ctx context.Context, from, to Status) error
}

// StatusUnit is one open transaction over the listing store and the audit
// trail. The status write and its record become visible together on Commit,
// or not at all. Rollback after Commit is a no-op.
type StatusUnit interface {
	CompareAndSetStatus(ctx context.Context, id string, expected, to Status) error
	Append(ctx context.Context, record StatusHistoryRecord) error
	Commit() error
	Rollback() error
}

// UnitOfWorkFactory starts StatusUnits.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (StatusUnit, error)
}
