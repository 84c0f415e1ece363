package storage

import (
	"context"
	"errors"

	"rental-watch/models"
)

var (
	// ErrNotFound is returned when no listing exists for an address.
	ErrNotFound = errors.New("listing not found")
	// ErrExists is returned by Insert when the address is already stored.
	ErrExists = errors.New("listing already exists")
)

// Repository is the durable known-listings store. A nil error from Insert or
// AppendRef means the write is durable.
type Repository interface {
	Get(ctx context.Context, address string) (models.KnownListing, bool, error)
	Insert(ctx context.Context, listing models.KnownListing) error
	// AppendRef adds ref to the end of the stored refs unless already present.
	// Refs written by other writers are never dropped.
	AppendRef(ctx context.Context, address, ref string) error
	ListAll(ctx context.Context) ([]models.KnownListing, error)
	Close() error
}

// CurationStore updates the user-owned fields. Ingestion never uses it.
type CurationStore interface {
	UpdateCuration(ctx context.Context, address string, c models.Curation) (models.KnownListing, error)
}

// Store is a Repository that also accepts curation updates.
type Store interface {
	Repository
	CurationStore
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []models.RawListing) error
	Close() error
}
