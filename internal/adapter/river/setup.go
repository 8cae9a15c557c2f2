package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// QueueStatusChanges is the queue status change jobs are routed to.
const QueueStatusChanges = "listing_status"

// Setup runs River's migrations and returns a client with the status change
// worker registered on QueueStatusChanges. The caller must call Start to
// begin processing jobs and Stop for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, maxWorkers int) (*Client, error) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	driver := riversqlite.New(db)

	// River's tables (river_job, river_leader, ...) are versioned separately
	// from the goose migrations of the listing store.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &StatusChangedWorker{})

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueStatusChanges: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
