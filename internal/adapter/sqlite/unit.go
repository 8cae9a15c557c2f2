package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// Compile-time check: UnitOfWork implements domain.UnitOfWorkFactory.
var _ domain.UnitOfWorkFactory = (*UnitOfWork)(nil)

// UnitOfWork starts transactions spanning the listings and
// listing_status_history tables of one database.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork shares the migrated database of a ListingRepository.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Begin opens a transaction bound to ctx. If ctx ends before Commit the
// transaction is rolled back by database/sql.
func (u *UnitOfWork) Begin(ctx context.Context) (domain.StatusUnit, error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning status transaction: %w", err)
	}
	return &statusUnit{tx: tx}, nil
}

type statusUnit struct {
	tx *sql.Tx
}

func (s *statusUnit) CompareAndSetStatus(ctx context.Context, id string, expected, to domain.Status) error {
	return compareAndSetStatus(ctx, s.tx, id, expected, to)
}

func (s *statusUnit) Append(ctx context.Context, rec domain.StatusHistoryRecord) error {
	return appendRecord(ctx, s.tx, rec)
}

func (s *statusUnit) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("committing status transaction: %w", err)
	}
	return nil
}

func (s *statusUnit) Rollback() error {
	err := s.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
