package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/listingiq/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: ListingRepository implements domain.ListingStore.
var _ domain.ListingStore = (*ListingRepository)(nil)

// ErrDuplicateListing is returned when a listing id is already taken.
var ErrDuplicateListing = errors.New("listing already exists")

// ListingRepository implements domain.ListingStore using SQLite.
type ListingRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*ListingRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: ":memory:" databases are per connection, and the
	// compare-and-set updates serialize on it anyway.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*ListingRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &ListingRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *ListingRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *ListingRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// Create registers a listing. Listing content is managed elsewhere; only the
// fields the status engine needs are stored here.
func (r *ListingRepository) Create(ctx context.Context, l domain.Listing) error {
	if _, err := domain.ParseStatus(string(l.Status)); err != nil {
		return err
	}

	now := time.Now().UTC().Format(timeFormat)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO listings (id, owner_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, string(l.Status), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateListing, l.ID)
		}
		return fmt.Errorf("inserting listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	var l domain.Listing
	var status string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, status FROM listings WHERE id = ?`, id,
	).Scan(&l.ID, &l.OwnerID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, domain.ErrListingNotFound
		}
		return domain.Listing{}, fmt.Errorf("scanning listing: %w", err)
	}

	l.Status, err = domain.ParseStatus(status)
	if err != nil {
		return domain.Listing{}, fmt.Errorf("listing %q: %w", id, err)
	}
	return l, nil
}

// CompareAndSetStatus updates the status in a single conditional statement,
// so the compare and the write cannot interleave with another writer.
func (r *ListingRepository) CompareAndSetStatus(ctx context.Context, id string, expected, to domain.Status) error {
	return compareAndSetStatus(ctx, r.db, id, expected, to)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func compareAndSetStatus(ctx context.Context, db execer, id string, expected, to domain.Status) error {
	result, err := db.ExecContext(ctx,
		`UPDATE listings SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC().Format(timeFormat), id, string(expected),
	)
	if err != nil {
		return fmt.Errorf("updating listing status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrListingNotFound
	}
	if err != nil {
		return fmt.Errorf("checking listing existence: %w", err)
	}
	return domain.ErrStatusConflict
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
