package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// StatusChangedWorker consumes status change jobs. It logs the change;
// search re-indexing and saved-search notifications hang off this queue.
type StatusChangedWorker struct {
	river.WorkerDefaults[StatusChangedJobArgs]
}

// Work processes a single status change job.
func (w *StatusChangedWorker) Work(ctx context.Context, job *river.Job[StatusChangedJobArgs]) error {
	slog.InfoContext(ctx, "processing listing status change",
		"listing_id", job.Args.ListingID,
		"from", job.Args.FromStatus,
		"to", job.Args.ToStatus,
		"record_id", job.Args.RecordID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
