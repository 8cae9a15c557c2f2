package app

import (
	"context"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// PermissionResolver is the only place that interprets roles. It has no side
// effects, so it is safe to call for previews.
type PermissionResolver struct {
	validator domain.TransitionValidator
}

// NewPermissionResolver creates a resolver backed by the given state graph.
func NewPermissionResolver(validator domain.TransitionValidator) *PermissionResolver {
	return &PermissionResolver{validator: validator}
}

// Decide returns nil when actor may move listing from `from` to `to`, and a
// *domain.TransitionError of KindIllegalTransition or KindForbidden otherwise.
func (r *PermissionResolver) Decide(ctx context.Context, actor domain.Actor, listing domain.Listing, from, to domain.Status) error {
	if err := r.validator.Validate(ctx, from, to); err != nil {
		if domain.KindOf(err) == domain.KindIllegalTransition {
			return &domain.TransitionError{
				Kind:      domain.KindIllegalTransition,
				ListingID: listing.ID,
				From:      from,
				To:        to,
			}
		}
		return err
	}

	if r.mayChange(actor, r.IsOwner(actor, listing)) {
		return nil
	}
	return &domain.TransitionError{
		Kind:      domain.KindForbidden,
		ListingID: listing.ID,
		From:      from,
		To:        to,
	}
}

// CanViewHistory reports whether actor may read a listing's audit trail.
func (r *PermissionResolver) CanViewHistory(actor domain.Actor, listing domain.Listing) bool {
	return isAdmin(actor.Role) || r.IsOwner(actor, listing)
}

// IsOwner reports whether actor owns listing. An anonymous actor owns nothing.
func (r *PermissionResolver) IsOwner(actor domain.Actor, listing domain.Listing) bool {
	return actor.ID != "" && actor.ID == listing.OwnerID
}

// CanBulkChange reports whether actor may start a bulk status change.
func (r *PermissionResolver) CanBulkChange(actor domain.Actor) bool {
	return isAdmin(actor.Role)
}

// Available previews every status, the current one included, annotated with
// whether actor could move the listing there right now.
func (r *PermissionResolver) Available(ctx context.Context, current domain.Status, actor domain.Actor, isOwner bool) []domain.AvailableTransition {
	out := make([]domain.AvailableTransition, 0, len(domain.Statuses))
	for _, to := range domain.Statuses {
		allowed := r.validator.Validate(ctx, current, to) == nil && r.mayChange(actor, isOwner)
		out = append(out, domain.AvailableTransition{
			To:          to,
			Allowed:     allowed,
			Description: domain.Describe(current, to),
		})
	}
	return out
}

// mayChange applies the role rules to a legal edge.
func (r *PermissionResolver) mayChange(actor domain.Actor, isOwner bool) bool {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleManagerAdmin, domain.RoleOwnerAdmin:
		return true
	case domain.RoleSeller:
		return isOwner
	case domain.RoleUser:
		return false
	}
	return false
}

func isAdmin(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleManagerAdmin, domain.RoleOwnerAdmin:
		return true
	case domain.RoleUser, domain.RoleSeller:
		return false
	}
	return false
}
