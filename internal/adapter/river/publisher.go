package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// StatusChangedJobArgs carries an applied transition to asynchronous consumers.
// River serializes it as JSON into its job table; it is a snapshot of the
// audit record, so the worker never queries the listing store.
type StatusChangedJobArgs struct {
	RecordID      string    `json:"record_id"`
	ListingID     string    `json:"listing_id"`
	FromStatus    string    `json:"from_status"`
	ToStatus      string    `json:"to_status"`
	ChangedByID   string    `json:"changed_by_id"`
	ChangedByRole string    `json:"changed_by_role"`
	Reason        string    `json:"reason,omitempty"`
	ChangedAt     time.Time `json:"changed_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (StatusChangedJobArgs) Kind() string { return "listing.status_changed" }

// InsertOpts routes status change jobs to their own queue.
func (StatusChangedJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueStatusChanges, MaxAttempts: 5}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues an applied transition as an async job in River.
func (p *Publisher) Publish(ctx context.Context, rec domain.StatusHistoryRecord) error {
	_, err := p.client.Insert(ctx, StatusChangedJobArgs{
		RecordID:      rec.ID,
		ListingID:     rec.ListingID,
		FromStatus:    string(rec.FromStatus),
		ToStatus:      string(rec.ToStatus),
		ChangedByID:   rec.ChangedByID,
		ChangedByRole: string(rec.ChangedByRole),
		Reason:        rec.Reason,
		ChangedAt:     rec.CreatedAt,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing status change job: %w", err)
	}
	return nil
}
