package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neomorfeo/listingiq/internal/adapter/fsm"
	"github.com/neomorfeo/listingiq/internal/app"
	"github.com/neomorfeo/listingiq/internal/domain"
)

func newEngine(store *mockStore, audit *mockAudit, pub *mockPublisher) *app.StatusEngine {
	return app.NewStatusEngine(store, &mockUnits{store: store, audit: audit}, pub, app.NewPermissionResolver(fsm.New()))
}

func request(id string, from, to domain.Status, actor domain.Actor) domain.TransitionRequest {
	return domain.TransitionRequest{ListingID: id, From: from, To: to, Actor: actor}
}

func TestTransition_SellerHidesOwnListing(t *testing.T) {
	store := newMockStore(listing("L1", domain.StatusActive))
	audit := &mockAudit{}
	pub := &mockPublisher{}
	engine := newEngine(store, audit, pub)

	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
	engine.WithClock(func() time.Time { return now })

	rec, err := engine.Transition(context.Background(), request("L1", domain.StatusActive, domain.StatusHidden, seller1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID == "" {
		t.Error("record ID should not be empty")
	}
	if rec.FromStatus != domain.StatusActive || rec.ToStatus != domain.StatusHidden {
		t.Errorf("edge = %q -> %q, want ACTIVE -> HIDDEN", rec.FromStatus, rec.ToStatus)
	}
	if rec.ChangedByID != seller1.ID || rec.ChangedByRole != domain.RoleSeller {
		t.Errorf("changed by = %s/%s, want %s/SELLER", rec.ChangedByID, rec.ChangedByRole, seller1.ID)
	}
	if !rec.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, now)
	}
	if store.status("L1") != domain.StatusHidden {
		t.Errorf("stored status = %q, want HIDDEN", store.status("L1"))
	}
	if store.writeCount() != 1 || audit.count() != 1 {
		t.Errorf("writes = %d, audit records = %d, want 1 and 1", store.writeCount(), audit.count())
	}
	if len(pub.records) != 1 || pub.records[0].ID != rec.ID {
		t.Errorf("published %d records, want the applied one", len(pub.records))
	}
}

func TestTransition_SoldIsTerminalEvenForAdmin(t *testing.T) {
	store := newMockStore(listing("L2", domain.StatusSold))
	audit := &mockAudit{}
	engine := newEngine(store, audit, &mockPublisher{})

	_, err := engine.Transition(context.Background(), request("L2", domain.StatusSold, domain.StatusActive, admin))
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if trErr.Kind != domain.KindIllegalTransition {
		t.Errorf("kind = %q, want %q", trErr.Kind, domain.KindIllegalTransition)
	}
	if audit.count() != 0 || store.writeCount() != 0 {
		t.Errorf("writes = %d, audit records = %d, want none", store.writeCount(), audit.count())
	}
}

func TestTransition_NonOwnerSellerForbidden(t *testing.T) {
	store := newMockStore(listing("L3", domain.StatusActive))
	audit := &mockAudit{}
	engine := newEngine(store, audit, &mockPublisher{})

	_, err := engine.Transition(context.Background(), request("L3", domain.StatusActive, domain.StatusHidden, seller2))
	if domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("kind = %q, want forbidden (err %v)", domain.KindOf(err), err)
	}
	if store.status("L3") != domain.StatusActive {
		t.Errorf("status = %q, want unchanged ACTIVE", store.status("L3"))
	}
	if audit.count() != 0 {
		t.Errorf("audit records = %d, want 0", audit.count())
	}
}

func TestTransition_NotFound(t *testing.T) {
	engine := newEngine(newMockStore(), &mockAudit{}, &mockPublisher{})

	_, err := engine.Transition(context.Background(), request("nope", domain.StatusActive, domain.StatusHidden, admin))
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("kind = %q, want not_found", domain.KindOf(err))
	}
}

func TestTransition_StaleFromIsConflict(t *testing.T) {
	store := newMockStore(listing("L1", domain.StatusHidden))
	audit := &mockAudit{}
	engine := newEngine(store, audit, &mockPublisher{})

	_, err := engine.Transition(context.Background(), request("L1", domain.StatusActive, domain.StatusSold, admin))
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("kind = %q, want conflict", domain.KindOf(err))
	}
	if store.writeCount() != 0 || audit.count() != 0 {
		t.Errorf("writes = %d, audit records = %d, want none", store.writeCount(), audit.count())
	}
}

func TestTransition_SelfTransitionIsAudited(t *testing.T) {
	for _, s := range domain.Statuses {
		store := newMockStore(listing("L1", s))
		audit := &mockAudit{}
		engine := newEngine(store, audit, &mockPublisher{})

		rec, err := engine.Transition(context.Background(), request("L1", s, s, seller1))
		if err != nil {
			t.Fatalf("self-transition %q failed: %v", s, err)
		}
		if rec.FromStatus != s || rec.ToStatus != s {
			t.Errorf("record edge = %q -> %q, want %q -> %q", rec.FromStatus, rec.ToStatus, s, s)
		}
		if audit.count() != 1 {
			t.Errorf("%q: audit records = %d, want 1", s, audit.count())
		}
	}
}

func TestTransition_ConcurrentStaleRequests(t *testing.T) {
	store := newMockStore(listing("L5", domain.StatusActive))
	audit := &mockAudit{}
	engine := newEngine(store, audit, &mockPublisher{})

	// Hold both calls at the compare-and-set until both have read ACTIVE.
	var arrived sync.WaitGroup
	arrived.Add(2)
	store.beforeSet = func() {
		arrived.Done()
		arrived.Wait()
	}

	targets := []domain.Status{domain.StatusHidden, domain.StatusSold}
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, to := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.Transition(context.Background(), request("L5", domain.StatusActive, to, admin))
		}()
	}
	wg.Wait()

	winners := 0
	var winner domain.Status
	for i, err := range errs {
		switch {
		case err == nil:
			winners++
			winner = targets[i]
		case domain.KindOf(err) != domain.KindConflict:
			t.Errorf("loser kind = %q, want conflict", domain.KindOf(err))
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
	if store.status("L5") != winner {
		t.Errorf("final status = %q, want %q", store.status("L5"), winner)
	}
	if audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", audit.count())
	}
}

func TestTransition_AuditFailureRollsBackStatus(t *testing.T) {
	store := newMockStore(listing("L1", domain.StatusActive))
	cause := errors.New("audit table locked")
	audit := &mockAudit{err: cause}
	pub := &mockPublisher{}
	engine := newEngine(store, audit, pub)

	rec, err := engine.Transition(context.Background(), request("L1", domain.StatusActive, domain.StatusHidden, seller1))
	if domain.KindOf(err) != domain.KindAuditWriteFailed {
		t.Fatalf("kind = %q, want audit_write_failed", domain.KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Errorf("error should wrap the audit failure, got %v", err)
	}
	if rec.ID != "" {
		t.Errorf("returned record %q for a change that was not applied", rec.ID)
	}
	if store.status("L1") != domain.StatusActive {
		t.Errorf("status = %q, want ACTIVE after rollback", store.status("L1"))
	}
	if store.writeCount() != 0 {
		t.Errorf("committed writes = %d, want 0", store.writeCount())
	}
	if len(pub.records) != 0 {
		t.Errorf("published %d records, want 0", len(pub.records))
	}
}

func TestTransition_PublishesAfterCallerCancels(t *testing.T) {
	store := newMockStore(listing("L1", domain.StatusActive))
	audit := &mockAudit{}
	pub := &ctxPublisher{}
	engine := app.NewStatusEngine(store, &cancelingUnits{next: &mockUnits{store: store, audit: audit}}, pub, app.NewPermissionResolver(fsm.New()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, cancelKey{}, cancel)

	if _, err := engine.Transition(ctx, request("L1", domain.StatusActive, domain.StatusHidden, seller1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", audit.count())
	}
	if pub.ctxErr != nil {
		t.Errorf("publish saw a done context: %v", pub.ctxErr)
	}
}

type cancelKey struct{}

// cancelingUnits cancels the caller's context right after a successful commit.
type cancelingUnits struct {
	next domain.UnitOfWorkFactory
}

func (c *cancelingUnits) Begin(ctx context.Context) (domain.StatusUnit, error) {
	unit, err := c.next.Begin(ctx)
	if err != nil {
		return nil, err
	}
	cancel, _ := ctx.Value(cancelKey{}).(context.CancelFunc)
	return &cancelingUnit{StatusUnit: unit, cancel: cancel}, nil
}

type cancelingUnit struct {
	domain.StatusUnit
	cancel context.CancelFunc
}

func (u *cancelingUnit) Commit() error {
	err := u.StatusUnit.Commit()
	if u.cancel != nil {
		u.cancel()
	}
	return err
}

type ctxPublisher struct {
	ctxErr error
}

func (p *ctxPublisher) Publish(ctx context.Context, _ domain.StatusHistoryRecord) error {
	p.ctxErr = ctx.Err()
	return nil
}

func TestTransition_PublishFailureDoesNotFail(t *testing.T) {
	store := newMockStore(listing("L1", domain.StatusActive))
	audit := &mockAudit{}
	engine := newEngine(store, audit, &mockPublisher{err: errors.New("queue down")})

	if _, err := engine.Transition(context.Background(), request("L1", domain.StatusActive, domain.StatusSold, admin)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audit.count() != 1 {
		t.Errorf("audit records = %d, want 1", audit.count())
	}
}
