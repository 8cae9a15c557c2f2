package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/listingiq/internal/app"
	"github.com/neomorfeo/listingiq/internal/domain"
)

// StatusRecordResponse is the API representation of a status history record.
type StatusRecordResponse struct {
	ID            string `json:"id" doc:"Record identifier"`
	ListingID     string `json:"listing_id" doc:"Listing the change applies to"`
	FromStatus    string `json:"from_status" doc:"Status before the change"`
	ToStatus      string `json:"to_status" doc:"Status after the change"`
	ChangedByID   string `json:"changed_by_id" doc:"Actor who made the change"`
	ChangedByRole string `json:"changed_by_role" doc:"Role of the actor at the time of the change"`
	Reason        string `json:"reason,omitempty" doc:"Free-text reason, or sale details for SOLD"`
	CreatedAt     string `json:"created_at" doc:"Change timestamp (RFC 3339)"`
}

func toStatusRecordResponse(r domain.StatusHistoryRecord) StatusRecordResponse {
	return StatusRecordResponse{
		ID:            r.ID,
		ListingID:     r.ListingID,
		FromStatus:    string(r.FromStatus),
		ToStatus:      string(r.ToStatus),
		ChangedByID:   r.ChangedByID,
		ChangedByRole: string(r.ChangedByRole),
		Reason:        r.Reason,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// --- Change Status ---

type ChangeStatusInput struct {
	ID   string `path:"id" doc:"Listing ID"`
	Body struct {
		Status         string `json:"status" enum:"ACTIVE,HIDDEN,SOLD" doc:"Target status"`
		Reason         string `json:"reason,omitempty" maxLength:"1000" doc:"Why the status is changing"`
		ExpectedStatus string `json:"expected_status,omitempty" enum:"ACTIVE,HIDDEN,SOLD" doc:"Status the caller last saw; a mismatch is a conflict"`
	}
}

type StatusRecordOutput struct {
	Body StatusRecordResponse
}

// --- Mark As Sold ---

type MarkAsSoldInput struct {
	ID   string `path:"id" doc:"Listing ID"`
	Body struct {
		SoldPrice string `json:"sold_price,omitempty" maxLength:"100" doc:"Sale price, stored verbatim"`
		SoldDate  string `json:"sold_date,omitempty" maxLength:"100" doc:"Sale date, stored verbatim"`
		BuyerInfo string `json:"buyer_info,omitempty" maxLength:"1000" doc:"Buyer details, stored verbatim"`
		Reason    string `json:"reason,omitempty" maxLength:"1000" doc:"Free-text note"`
	}
}

// --- History ---

type ListingPathInput struct {
	ID string `path:"id" doc:"Listing ID"`
}

type HistoryOutput struct {
	Body []StatusRecordResponse
}

// --- Available Transitions ---

type AvailableTransitionResponse struct {
	To          string `json:"to" doc:"Candidate status"`
	Allowed     bool   `json:"allowed" doc:"Whether the caller may move the listing there now"`
	Description string `json:"description" doc:"Human-readable label"`
}

type TransitionsOutput struct {
	Body struct {
		CurrentStatus string                        `json:"current_status"`
		IsOwner       bool                          `json:"is_owner"`
		Role          string                        `json:"role"`
		Transitions   []AvailableTransitionResponse `json:"transitions"`
	}
}

// --- Bulk ---

type BulkChangeInput struct {
	Body struct {
		ListingIDs []string `json:"listing_ids" maxItems:"500" doc:"Listings to change; an empty list changes nothing"`
		Status     string   `json:"status" enum:"ACTIVE,HIDDEN,SOLD" doc:"Target status"`
		Reason     string   `json:"reason,omitempty" maxLength:"1000" doc:"Reason recorded for every listing"`
	}
}

type BulkItemErrorResponse struct {
	ListingID string `json:"listing_id"`
	Kind      string `json:"kind" doc:"not_found, illegal_transition, forbidden, conflict, audit_write_failed, canceled or internal"`
	Message   string `json:"message"`
}

type BulkChangeOutput struct {
	Body struct {
		Successful int                     `json:"successful"`
		Failed     int                     `json:"failed"`
		Errors     []BulkItemErrorResponse `json:"errors"`
	}
}

// HandlerConfig tunes the HTTP operations.
type HandlerConfig struct {
	// BulkTimeout bounds a whole bulk request. Zero means no extra bound.
	BulkTimeout time.Duration
}

// Register adds all listing status routes to the Huma API.
func Register(api huma.API, svc *app.ListingService, cfg HandlerConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "change-listing-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings/{id}/status",
		Summary:     "Change the status of a listing",
		Tags:        []string{"Listing status"},
	}, func(ctx context.Context, input *ChangeStatusInput) (*StatusRecordOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		var expected *domain.Status
		if input.Body.ExpectedStatus != "" {
			s := domain.Status(input.Body.ExpectedStatus)
			expected = &s
		}

		rec, err := svc.ChangeStatus(ctx, actor, input.ID, domain.Status(input.Body.Status), input.Body.Reason, expected)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StatusRecordOutput{Body: toStatusRecordResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mark-listing-sold",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings/{id}/sold",
		Summary:     "Mark a listing as sold",
		Tags:        []string{"Listing status"},
	}, func(ctx context.Context, input *MarkAsSoldInput) (*StatusRecordOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		details := domain.SaleDetails{
			SoldPrice: input.Body.SoldPrice,
			SoldDate:  input.Body.SoldDate,
			BuyerInfo: input.Body.BuyerInfo,
		}
		rec, err := svc.MarkAsSold(ctx, actor, input.ID, details, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StatusRecordOutput{Body: toStatusRecordResponse(rec)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-listing-status-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/listings/{id}/status/history",
		Summary:     "List the status changes of a listing, oldest first",
		Tags:        []string{"Listing status"},
	}, func(ctx context.Context, input *ListingPathInput) (*HistoryOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		records, err := svc.History(ctx, actor, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]StatusRecordResponse, len(records))
		for i, r := range records {
			resp[i] = toStatusRecordResponse(r)
		}
		return &HistoryOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-listing-status-transitions",
		Method:      http.MethodGet,
		Path:        "/api/v1/listings/{id}/status/transitions",
		Summary:     "Preview the statuses the caller could move a listing to",
		Tags:        []string{"Listing status"},
	}, func(ctx context.Context, input *ListingPathInput) (*TransitionsOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		opts, err := svc.AvailableTransitions(ctx, actor, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &TransitionsOutput{}
		out.Body.CurrentStatus = string(opts.CurrentStatus)
		out.Body.IsOwner = opts.IsOwner
		out.Body.Role = string(opts.Role)
		out.Body.Transitions = make([]AvailableTransitionResponse, len(opts.Transitions))
		for i, tr := range opts.Transitions {
			out.Body.Transitions[i] = AvailableTransitionResponse{
				To:          string(tr.To),
				Allowed:     tr.Allowed,
				Description: tr.Description,
			}
		}
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bulk-change-listing-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings/status/bulk",
		Summary:     "Change the status of many listings",
		Description: "Every listing is attempted independently. Per-listing failures are reported in the result, never as a request error.",
		Tags:        []string{"Listing status"},
	}, func(ctx context.Context, input *BulkChangeInput) (*BulkChangeOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}

		if cfg.BulkTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.BulkTimeout)
			defer cancel()
		}

		result, err := svc.BulkChangeStatus(ctx, actor, input.Body.ListingIDs, domain.Status(input.Body.Status), input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}

		out := &BulkChangeOutput{}
		out.Body.Successful = result.Successful
		out.Body.Failed = result.Failed
		out.Body.Errors = make([]BulkItemErrorResponse, len(result.Errors))
		for i, e := range result.Errors {
			out.Body.Errors[i] = BulkItemErrorResponse{
				ListingID: e.ListingID,
				Kind:      string(e.Kind),
				Message:   e.Message,
			}
		}
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrUnauthenticated) {
		return huma.Error401Unauthorized("valid bearer token required")
	}
	if errors.Is(err, domain.ErrInvalidStatus) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return huma.Error404NotFound("listing not found")
	case domain.KindIllegalTransition:
		return huma.Error422UnprocessableEntity(err.Error())
	case domain.KindForbidden:
		return huma.Error403Forbidden(err.Error())
	case domain.KindConflict:
		return huma.Error409Conflict(err.Error())
	case domain.KindCanceled:
		return huma.Error503ServiceUnavailable("request canceled before completion")
	case domain.KindAuditWriteFailed:
		return huma.Error500InternalServerError("status changed but the audit record was not written")
	}

	return huma.Error500InternalServerError("internal server error")
}
