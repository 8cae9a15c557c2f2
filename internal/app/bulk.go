package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// DefaultBulkConcurrency is the number of listings a bulk call works on at once.
const DefaultBulkConcurrency = 4

// BulkCoordinator applies one target status to many listings, each as an
// independent unit of work.
type BulkCoordinator struct {
	engine      *StatusEngine
	store       domain.ListingStore
	concurrency int
}

// NewBulkCoordinator creates a coordinator. A concurrency below 1 means
// sequential processing.
func NewBulkCoordinator(engine *StatusEngine, store domain.ListingStore, concurrency int) *BulkCoordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BulkCoordinator{
		engine:      engine,
		store:       store,
		concurrency: concurrency,
	}
}

// itemOutcome is the result of one attempted listing.
type itemOutcome struct {
	listingID string
	err       error
}

// ApplyMany attempts every id exactly once and always waits for all of them.
// Only an invalid target status fails the whole call. Repeated ids are run one
// after another in input order, each re-reading the status the previous one
// left. Outcomes are collected by input position, so the result does not
// depend on scheduling. Items reached after ctx is done count as canceled.
func (c *BulkCoordinator) ApplyMany(ctx context.Context, listingIDs []string, to domain.Status, actor domain.Actor, reason string) (domain.BulkOperationResult, error) {
	if _, err := domain.ParseStatus(string(to)); err != nil {
		return domain.BulkOperationResult{}, fmt.Errorf("bulk status change: %w", err)
	}

	outcomes := make([]itemOutcome, len(listingIDs))

	positions := make(map[string][]int, len(listingIDs))
	order := make([]string, 0, len(listingIDs))
	for i, id := range listingIDs {
		if _, seen := positions[id]; !seen {
			order = append(order, id)
		}
		positions[id] = append(positions[id], i)
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for _, id := range order {
		idxs := positions[id]
		g.Go(func() error {
			for _, i := range idxs {
				outcomes[i] = itemOutcome{listingID: id, err: c.applyOne(ctx, id, to, actor, reason)}
			}
			return nil
		})
	}
	_ = g.Wait()

	result := domain.BulkOperationResult{Errors: []domain.BulkItemError{}}
	for _, o := range outcomes {
		if o.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, domain.BulkItemError{
			ListingID: o.listingID,
			Kind:      domain.KindOf(o.err),
			Message:   o.err.Error(),
		})
	}

	slog.InfoContext(ctx, "bulk status change finished",
		"to", to,
		"actor_id", actor.ID,
		"actor_role", actor.Role,
		"requested", len(listingIDs),
		"successful", result.Successful,
		"failed", result.Failed,
	)

	return result, nil
}

func (c *BulkCoordinator) applyOne(ctx context.Context, id string, to domain.Status, actor domain.Actor, reason string) error {
	if err := ctx.Err(); err != nil {
		return &domain.TransitionError{Kind: domain.KindCanceled, ListingID: id, To: to, Err: err}
	}

	listing, err := c.store.GetByID(ctx, id)
	if err != nil {
		return c.engine.storeError(domain.TransitionRequest{ListingID: id, To: to}, err)
	}

	_, err = c.engine.Transition(ctx, domain.TransitionRequest{
		ListingID: id,
		From:      listing.Status,
		To:        to,
		Actor:     actor,
		Reason:    reason,
	})
	return err
}
