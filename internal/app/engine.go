package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// StatusEngine applies single-listing transitions. It is the only writer of
// Listing.Status.
type StatusEngine struct {
	store     domain.ListingStore
	units     domain.UnitOfWorkFactory
	publisher domain.EventPublisher
	resolver  *PermissionResolver
	now       func() time.Time
}

// NewStatusEngine creates an engine with the given adapters. Status writes
// and audit appends go through units; store is only read.
func NewStatusEngine(store domain.ListingStore, units domain.UnitOfWorkFactory, publisher domain.EventPublisher, resolver *PermissionResolver) *StatusEngine {
	return &StatusEngine{
		store:     store,
		units:     units,
		publisher: publisher,
		resolver:  resolver,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for CreatedAt.
func (e *StatusEngine) WithClock(now func() time.Time) *StatusEngine {
	e.now = now
	return e
}

// Transition moves one listing from req.From to req.To.
//
// The stored status is written with a compare-and-set on req.From, so of two
// calls racing from the same observed status at most one succeeds; the other
// gets KindConflict. The write and its audit record are committed in one
// unit: either both happen or neither does. A failed append is reported as
// KindAuditWriteFailed, a context that ends before the commit as KindCanceled.
func (e *StatusEngine) Transition(ctx context.Context, req domain.TransitionRequest) (domain.StatusHistoryRecord, error) {
	listing, err := e.store.GetByID(ctx, req.ListingID)
	if err != nil {
		return domain.StatusHistoryRecord{}, e.storeError(req, err)
	}

	if listing.Status != req.From {
		return domain.StatusHistoryRecord{}, e.deny(ctx, req, &domain.TransitionError{
			Kind:      domain.KindConflict,
			ListingID: req.ListingID,
			From:      req.From,
			To:        req.To,
		})
	}

	if err := e.resolver.Decide(ctx, req.Actor, listing, req.From, req.To); err != nil {
		return domain.StatusHistoryRecord{}, e.deny(ctx, req, err)
	}

	record, err := e.apply(ctx, req)
	if err != nil {
		return domain.StatusHistoryRecord{}, err
	}

	slog.InfoContext(ctx, "listing status changed",
		"listing_id", req.ListingID,
		"from", req.From,
		"to", req.To,
		"actor_id", req.Actor.ID,
		"actor_role", req.Actor.Role,
		"record_id", record.ID,
	)

	// The change is committed; announce it even if the caller has gone away.
	if err := e.publisher.Publish(context.WithoutCancel(ctx), record); err != nil {
		slog.WarnContext(ctx, "publishing status change failed",
			"listing_id", req.ListingID,
			"record_id", record.ID,
			"error", err,
		)
	}

	return record, nil
}

// apply runs the compare-and-set and the audit append in one unit.
func (e *StatusEngine) apply(ctx context.Context, req domain.TransitionRequest) (domain.StatusHistoryRecord, error) {
	unit, err := e.units.Begin(ctx)
	if err != nil {
		return domain.StatusHistoryRecord{}, e.storeError(req, err)
	}
	defer func() { _ = unit.Rollback() }()

	if err := unit.CompareAndSetStatus(ctx, req.ListingID, req.From, req.To); err != nil {
		if errors.Is(err, domain.ErrStatusConflict) {
			return domain.StatusHistoryRecord{}, e.deny(ctx, req, &domain.TransitionError{
				Kind:      domain.KindConflict,
				ListingID: req.ListingID,
				From:      req.From,
				To:        req.To,
				Err:       err,
			})
		}
		return domain.StatusHistoryRecord{}, e.storeError(req, err)
	}

	record := domain.StatusHistoryRecord{
		ID:            newRecordID(),
		ListingID:     req.ListingID,
		FromStatus:    req.From,
		ToStatus:      req.To,
		ChangedByID:   req.Actor.ID,
		ChangedByRole: req.Actor.Role,
		Reason:        req.Reason,
		CreatedAt:     e.now(),
	}

	if err := unit.Append(ctx, record); err != nil {
		if ctx.Err() != nil {
			return domain.StatusHistoryRecord{}, e.storeError(req, errors.Join(ctx.Err(), err))
		}
		slog.ErrorContext(ctx, "audit record not written, status change rolled back",
			"listing_id", req.ListingID,
			"from", req.From,
			"to", req.To,
			"actor_id", req.Actor.ID,
			"actor_role", req.Actor.Role,
			"record_id", record.ID,
			"error", err,
		)
		return domain.StatusHistoryRecord{}, &domain.TransitionError{
			Kind:      domain.KindAuditWriteFailed,
			ListingID: req.ListingID,
			From:      req.From,
			To:        req.To,
			Err:       err,
		}
	}

	if err := unit.Commit(); err != nil {
		if ctx.Err() != nil {
			err = errors.Join(ctx.Err(), err)
		}
		return domain.StatusHistoryRecord{}, e.storeError(req, err)
	}

	return record, nil
}

func (e *StatusEngine) deny(ctx context.Context, req domain.TransitionRequest, err error) error {
	slog.WarnContext(ctx, "listing status change rejected",
		"listing_id", req.ListingID,
		"from", req.From,
		"to", req.To,
		"actor_id", req.Actor.ID,
		"actor_role", req.Actor.Role,
		"kind", domain.KindOf(err),
	)
	return err
}

func (e *StatusEngine) storeError(req domain.TransitionRequest, err error) error {
	kind := domain.KindOf(err)
	if kind != domain.KindNotFound && kind != domain.KindCanceled {
		kind = domain.KindInternal
	}
	return &domain.TransitionError{
		Kind:      kind,
		ListingID: req.ListingID,
		From:      req.From,
		To:        req.To,
		Err:       err,
	}
}
