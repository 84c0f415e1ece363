package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rental-watch/models"
	"rental-watch/utils"
)

const uniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL. Each statement autocommits,
// so a nil error means the row is durable.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string, retry *utils.RetryConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1}
	}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			addr          TEXT        PRIMARY KEY,
			refs          TEXT[]      NOT NULL DEFAULT '{}',
			price         BIGINT,
			beds          REAL        NOT NULL DEFAULT 0,
			baths         REAL        NOT NULL DEFAULT 0,
			date          TEXT        NOT NULL DEFAULT '',
			notes         TEXT        NOT NULL DEFAULT '',
			favorite      BOOLEAN     NOT NULL DEFAULT FALSE,
			dismissed     BOOLEAN     NOT NULL DEFAULT FALSE,
			first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
	`)
	return err
}

const selectColumns = `addr, refs, price, beds, baths, date, notes, favorite, dismissed, first_seen_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (models.KnownListing, error) {
	var (
		l     models.KnownListing
		refs  pq.StringArray
		price sql.NullInt64
	)
	if err := row.Scan(&l.Address, &refs, &price, &l.Beds, &l.Baths, &l.ListedDate,
		&l.Notes, &l.Favorite, &l.Dismissed, &l.FirstSeenAt); err != nil {
		return models.KnownListing{}, err
	}
	l.Refs = []string(refs)
	l.Price = models.PriceUnknown
	if price.Valid {
		l.Price = price.Int64
	}
	return l, nil
}

func (ps *PostgresStore) Get(ctx context.Context, address string) (models.KnownListing, bool, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM listings WHERE addr = $1`, address)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.KnownListing{}, false, nil
	}
	if err != nil {
		return models.KnownListing{}, false, fmt.Errorf("postgres: get %q: %w", address, err)
	}
	return l, true, nil
}

func (ps *PostgresStore) Insert(ctx context.Context, l models.KnownListing) error {
	var price sql.NullInt64
	if l.Price != models.PriceUnknown {
		price = sql.NullInt64{Int64: l.Price, Valid: true}
	}
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO listings (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, l.Address, pq.Array(l.Refs), price, l.Beds, l.Baths, l.ListedDate,
		l.Notes, l.Favorite, l.Dismissed, l.FirstSeenAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("postgres: insert %q: %w", l.Address, err)
	}
	return nil
}

// AppendRef appends in SQL so refs added by another writer since Load survive.
func (ps *PostgresStore) AppendRef(ctx context.Context, address, ref string) error {
	res, err := ps.db.ExecContext(ctx, `
		UPDATE listings SET refs = array_append(refs, $2::text)
		WHERE addr = $1 AND NOT ($2::text = ANY(refs))
	`, address, ref)
	if err != nil {
		return fmt.Errorf("postgres: append ref %q: %w", address, err)
	}
	if err := requireOneRow(res, address); !errors.Is(err, ErrNotFound) {
		return err
	}

	// No row changed: either the ref is already there or the address is unknown.
	var exists bool
	if err := ps.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE addr = $1)`, address).Scan(&exists); err != nil {
		return fmt.Errorf("postgres: append ref %q: %w", address, err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (ps *PostgresStore) UpdateCuration(ctx context.Context, address string, c models.Curation) (models.KnownListing, error) {
	row := ps.db.QueryRowContext(ctx, `
		UPDATE listings SET
			notes     = COALESCE($2, notes),
			favorite  = COALESCE($3, favorite),
			dismissed = COALESCE($4, dismissed)
		WHERE addr = $1
		RETURNING `+selectColumns,
		address, nullString(c.Notes), nullBool(c.Favorite), nullBool(c.Dismissed))
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.KnownListing{}, ErrNotFound
	}
	if err != nil {
		return models.KnownListing{}, fmt.Errorf("postgres: update curation %q: %w", address, err)
	}
	return l, nil
}

// ListAll retrieves all stored listings in first-seen order.
func (ps *PostgresStore) ListAll(ctx context.Context) ([]models.KnownListing, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM listings ORDER BY first_seen_at, addr`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all: %w", err)
	}
	defer rows.Close()

	var listings []models.KnownListing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func requireOneRow(res sql.Result, address string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: rows affected %q: %w", address, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
