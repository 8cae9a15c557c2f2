package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// ListingService exposes the status lifecycle operations to the API layer.
// The caller identity is always an explicit argument.
type ListingService struct {
	store    domain.ListingStore
	audit    domain.AuditTrail
	resolver *PermissionResolver
	engine   *StatusEngine
	bulk     *BulkCoordinator
}

// NewListingService wires the engine, coordinator and resolver over the given
// adapters. units must write to the same database audit reads from.
func NewListingService(store domain.ListingStore, audit domain.AuditTrail, units domain.UnitOfWorkFactory, publisher domain.EventPublisher, validator domain.TransitionValidator, bulkConcurrency int) *ListingService {
	resolver := NewPermissionResolver(validator)
	engine := NewStatusEngine(store, units, publisher, resolver)
	return &ListingService{
		store:    store,
		audit:    audit,
		resolver: resolver,
		engine:   engine,
		bulk:     NewBulkCoordinator(engine, store, bulkConcurrency),
	}
}

// Engine returns the single-listing engine, e.g. to swap its clock.
func (s *ListingService) Engine() *StatusEngine {
	return s.engine
}

// TransitionOptions lists what the actor may do with a listing right now.
type TransitionOptions struct {
	CurrentStatus domain.Status
	IsOwner       bool
	Role          domain.Role
	Transitions   []domain.AvailableTransition
}

// ChangeStatus moves a listing to `to`. When expected is non-nil it is used as
// the observed status, so a caller working from a stale read gets KindConflict.
// Otherwise the current status is read fresh.
func (s *ListingService) ChangeStatus(ctx context.Context, actor domain.Actor, id string, to domain.Status, reason string, expected *domain.Status) (domain.StatusHistoryRecord, error) {
	var from domain.Status
	if expected != nil {
		from = *expected
	} else {
		listing, err := s.store.GetByID(ctx, id)
		if err != nil {
			return domain.StatusHistoryRecord{}, s.engine.storeError(domain.TransitionRequest{ListingID: id, To: to}, err)
		}
		from = listing.Status
	}

	return s.engine.Transition(ctx, domain.TransitionRequest{
		ListingID: id,
		From:      from,
		To:        to,
		Actor:     actor,
		Reason:    reason,
	})
}

// MarkAsSold moves a listing to SOLD. Sale details are stored verbatim as
// JSON text in the audit reason; a free-text note, if any, is kept alongside.
func (s *ListingService) MarkAsSold(ctx context.Context, actor domain.Actor, id string, details domain.SaleDetails, note string) (domain.StatusHistoryRecord, error) {
	reason, err := encodeSaleReason(details, note)
	if err != nil {
		return domain.StatusHistoryRecord{}, err
	}
	return s.ChangeStatus(ctx, actor, id, domain.StatusSold, reason, nil)
}

// History returns the audit trail of a listing to its owner or an admin.
func (s *ListingService) History(ctx context.Context, actor domain.Actor, id string) ([]domain.StatusHistoryRecord, error) {
	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.engine.storeError(domain.TransitionRequest{ListingID: id}, err)
	}
	if !s.resolver.CanViewHistory(actor, listing) {
		return nil, &domain.TransitionError{Kind: domain.KindForbidden, ListingID: id}
	}

	records, err := s.audit.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading status history: %w", err)
	}
	return records, nil
}

// AvailableTransitions previews the statuses actor could move a listing to.
func (s *ListingService) AvailableTransitions(ctx context.Context, actor domain.Actor, id string) (TransitionOptions, error) {
	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return TransitionOptions{}, s.engine.storeError(domain.TransitionRequest{ListingID: id}, err)
	}

	isOwner := s.resolver.IsOwner(actor, listing)
	return TransitionOptions{
		CurrentStatus: listing.Status,
		IsOwner:       isOwner,
		Role:          actor.Role,
		Transitions:   s.resolver.Available(ctx, listing.Status, actor, isOwner),
	}, nil
}

// BulkChangeStatus applies `to` to every listing for an admin caller.
// Per-listing permission checks still run inside the engine.
func (s *ListingService) BulkChangeStatus(ctx context.Context, actor domain.Actor, ids []string, to domain.Status, reason string) (domain.BulkOperationResult, error) {
	if !s.resolver.CanBulkChange(actor) {
		return domain.BulkOperationResult{}, domain.ErrBulkNotPermitted
	}
	return s.bulk.ApplyMany(ctx, ids, to, actor, reason)
}

// saleReason is the audit reason written by MarkAsSold.
type saleReason struct {
	domain.SaleDetails
	Note string `json:"note,omitempty"`
}

func encodeSaleReason(details domain.SaleDetails, note string) (string, error) {
	if details.IsZero() {
		return note, nil
	}
	b, err := json.Marshal(saleReason{SaleDetails: details, Note: note})
	if err != nil {
		return "", fmt.Errorf("encoding sale details: %w", err)
	}
	return string(b), nil
}
