package domain

import (
	"fmt"
	"time"
)

// Status represents the visibility/sale state of a listing.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusHidden Status = "HIDDEN"
	StatusSold   Status = "SOLD"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusActive, StatusHidden, StatusSold}

// ParseStatus converts a raw string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusActive, StatusHidden, StatusSold:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Role is the platform role of an authenticated caller.
type Role string

const (
	RoleUser         Role = "USER"
	RoleSeller       Role = "SELLER"
	RoleAdmin        Role = "ADMIN"
	RoleManagerAdmin Role = "MANAGER_ADMIN"
	RoleOwnerAdmin   Role = "OWNER_ADMIN"
)

// ParseRole converts a raw string to a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	switch r {
	case RoleUser, RoleSeller, RoleAdmin, RoleManagerAdmin, RoleOwnerAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Event names the action that moves a listing into a status.
type Event string

const (
	EventActivate Event = "activate"
	EventHide     Event = "hide"
	EventSell     Event = "sell"
)

// Transition defines a legal status change: an event moves a listing from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines every legal edge of the listing lifecycle, including the
// self-loops that make repeated requests idempotent. SOLD is terminal: its only
// entry is the self-loop.
var Transitions = []Transition{
	{Event: EventActivate, Src: StatusHidden, Dst: StatusActive},
	{Event: EventActivate, Src: StatusActive, Dst: StatusActive},
	{Event: EventHide, Src: StatusActive, Dst: StatusHidden},
	{Event: EventHide, Src: StatusHidden, Dst: StatusHidden},
	{Event: EventSell, Src: StatusActive, Dst: StatusSold},
	{Event: EventSell, Src: StatusHidden, Dst: StatusSold},
	{Event: EventSell, Src: StatusSold, Dst: StatusSold},
}

// EventFor returns the event that leads into the given status.
func EventFor(to Status) Event {
	switch to {
	case StatusActive:
		return EventActivate
	case StatusHidden:
		return EventHide
	case StatusSold:
		return EventSell
	}
	return Event("")
}

// IsLegalTransition reports whether from -> to is an edge of the lifecycle graph.
func IsLegalTransition(from, to Status) bool {
	for _, t := range Transitions {
		if t.Src == from && t.Dst == to {
			return true
		}
	}
	return false
}

// Describe returns a short human description of moving into to from from.
func Describe(from, to Status) string {
	if from == to {
		return fmt.Sprintf("Keep listing %s", describeStatus(to))
	}
	switch to {
	case StatusActive:
		return "Publish listing so buyers can see it"
	case StatusHidden:
		return "Hide listing from search and browsing"
	case StatusSold:
		return "Mark listing as sold (final)"
	}
	return ""
}

func describeStatus(s Status) string {
	switch s {
	case StatusActive:
		return "active"
	case StatusHidden:
		return "hidden"
	case StatusSold:
		return "sold"
	}
	return string(s)
}

// Listing is the slice of a property listing this engine manages.
// The listing store owns everything else about it.
type Listing struct {
	ID      string
	OwnerID string
	Status  Status
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// TransitionRequest asks to move a listing from From to To.
// From is the status the caller observed; it is compared to the stored one.
type TransitionRequest struct {
	ListingID string
	From      Status
	To        Status
	Actor     Actor
	Reason    string
}

// StatusHistoryRecord is one immutable entry of a listing's audit trail.
// An empty Reason is stored as NULL.
type StatusHistoryRecord struct {
	ID            string
	ListingID     string
	FromStatus    Status
	ToStatus      Status
	ChangedByID   string
	ChangedByRole Role
	Reason        string
	CreatedAt     time.Time
}

// AvailableTransition is a preview of one target status for a listing.
type AvailableTransition struct {
	To          Status
	Allowed     bool
	Description string
}

// BulkItemError records why one listing of a bulk operation failed.
type BulkItemError struct {
	ListingID string
	Kind      ErrorKind
	Message   string
}

// BulkOperationResult summarizes a bulk status change.
type BulkOperationResult struct {
	Successful int
	Failed     int
	Errors     []BulkItemError
}

// SaleDetails is optional sale metadata supplied when marking a listing sold.
// The values are opaque and only ever stored and returned verbatim.
type SaleDetails struct {
	SoldPrice string `json:"sold_price,omitempty"`
	SoldDate  string `json:"sold_date,omitempty"`
	BuyerInfo string `json:"buyer_info,omitempty"`
}

// IsZero reports whether no sale metadata was supplied.
func (d SaleDetails) IsZero() bool {
	return d.SoldPrice == "" && d.SoldDate == "" && d.BuyerInfo == ""
}
