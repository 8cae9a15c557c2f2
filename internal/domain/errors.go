package domain

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrStatusConflict   = errors.New("listing status changed concurrently")
	ErrInvalidStatus    = errors.New("invalid listing status")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUnauthenticated  = errors.New("caller is not authenticated")
	ErrBulkNotPermitted = errors.New("bulk status changes require an admin role")
)

// ErrorKind classifies why a transition failed.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindIllegalTransition ErrorKind = "illegal_transition"
	KindForbidden         ErrorKind = "forbidden"
	KindConflict          ErrorKind = "conflict"
	KindAuditWriteFailed  ErrorKind = "audit_write_failed"
	KindCanceled          ErrorKind = "canceled"
	KindInternal          ErrorKind = "internal"
)

// TransitionError is returned when a status transition was not applied.
type TransitionError struct {
	Kind      ErrorKind
	ListingID string
	From      Status
	To        Status
	Err       error
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("listing %q not found", e.ListingID)
	case KindIllegalTransition:
		return fmt.Sprintf("transition %q -> %q is not allowed", e.From, e.To)
	case KindForbidden:
		return fmt.Sprintf("not permitted to move listing %q to %q", e.ListingID, e.To)
	case KindConflict:
		return fmt.Sprintf("listing %q is no longer %q", e.ListingID, e.From)
	case KindAuditWriteFailed:
		return fmt.Sprintf("audit record for listing %q %q -> %q could not be written, change not applied: %v", e.ListingID, e.From, e.To, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("transition of listing %q failed: %v", e.ListingID, e.Err)
	}
	return fmt.Sprintf("transition of listing %q failed (%s)", e.ListingID, e.Kind)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// KindOf classifies err. Errors that are not transition errors are mapped
// through the sentinel they wrap, falling back to KindInternal.
func KindOf(err error) ErrorKind {
	var trErr *TransitionError
	if errors.As(err, &trErr) {
		return trErr.Kind
	}
	switch {
	case errors.Is(err, ErrListingNotFound):
		return KindNotFound
	case errors.Is(err, ErrStatusConflict):
		return KindConflict
	case errors.Is(err, ErrBulkNotPermitted):
		return KindForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindInternal
}
