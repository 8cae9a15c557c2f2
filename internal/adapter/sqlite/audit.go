package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/neomorfeo/listingiq/internal/domain"
)

// Compile-time check: AuditRepository implements domain.AuditTrail.
var _ domain.AuditTrail = (*AuditRepository)(nil)

// AuditRepository implements domain.AuditTrail on the listing_status_history
// table. The table rejects UPDATE and DELETE through triggers.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository shares the migrated database of a ListingRepository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, rec domain.StatusHistoryRecord) error {
	return appendRecord(ctx, r.db, rec)
}

func appendRecord(ctx context.Context, db execer, rec domain.StatusHistoryRecord) error {
	var reason sql.NullString
	if rec.Reason != "" {
		reason = sql.NullString{String: rec.Reason, Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO listing_status_history
		   (id, listing_id, from_status, to_status, changed_by_id, changed_by_role, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ListingID, string(rec.FromStatus), string(rec.ToStatus),
		rec.ChangedByID, string(rec.ChangedByRole), reason,
		rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting status history record: %w", err)
	}
	return nil
}

func (r *AuditRepository) History(ctx context.Context, listingID string) ([]domain.StatusHistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, listing_id, from_status, to_status, changed_by_id, changed_by_role, reason, created_at
		 FROM listing_status_history
		 WHERE listing_id = ?
		 ORDER BY created_at ASC, seq ASC`, listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	records := []domain.StatusHistoryRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func scanRecord(rows *sql.Rows) (domain.StatusHistoryRecord, error) {
	var rec domain.StatusHistoryRecord
	var from, to, role, createdAt string
	var reason sql.NullString

	err := rows.Scan(&rec.ID, &rec.ListingID, &from, &to, &rec.ChangedByID, &role, &reason, &createdAt)
	if err != nil {
		return domain.StatusHistoryRecord{}, fmt.Errorf("scanning status history row: %w", err)
	}

	rec.FromStatus = domain.Status(from)
	rec.ToStatus = domain.Status(to)
	rec.ChangedByRole = domain.Role(role)
	rec.Reason = reason.String
	rec.CreatedAt, err = time.Parse(timeFormat, createdAt)
	if err != nil {
		return domain.StatusHistoryRecord{}, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}

	return rec, nil
}
