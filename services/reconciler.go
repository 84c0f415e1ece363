package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rental-watch/models"
	"rental-watch/storage"
	"rental-watch/utils"
)

// Reconciler merges normalised records into the known-listings index.
//
// Writes go through to the repository before the in-memory index changes, so
// a failed write leaves both sides as they were. A single lock serialises
// Reconcile calls; that is enough for the expected index size and keeps ref
// order equal to sighting order.
type Reconciler struct {
	mu     sync.Mutex
	repo   storage.Repository
	logger *utils.Logger
	index  map[string]models.KnownListing
	runAt  time.Time
	now    func() time.Time
}

func NewReconciler(repo storage.Repository, logger *utils.Logger) *Reconciler {
	return &Reconciler{
		repo:   repo,
		logger: logger,
		index:  make(map[string]models.KnownListing),
		now:    time.Now,
	}
}

// Load replaces the in-memory index with the repository's full contents.
func (r *Reconciler) Load(ctx context.Context) error {
	all, err := r.repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: load index: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = make(map[string]models.KnownListing, len(all))
	for _, l := range all {
		r.index[l.Address] = l
	}
	r.logger.Info("[reconcile] Loaded %d known listings", len(all))
	return nil
}

// BeginRun fixes the timestamp given to listings first seen in this run.
func (r *Reconciler) BeginRun(at time.Time) {
	r.mu.Lock()
	r.runAt = at
	r.mu.Unlock()
}

// Size returns the number of indexed addresses.
func (r *Reconciler) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}

// Lookup returns a copy of the indexed entry for address.
func (r *Reconciler) Lookup(address string) (models.KnownListing, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.index[address]
	return l.Clone(), ok
}

// Reconcile classifies rec as new or repeat and records it durably.
// Storage failures are returned as *models.PersistenceError.
func (r *Reconciler) Reconcile(ctx context.Context, rec models.ListingRecord) (models.Classification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.index[rec.Address]
	if !ok {
		seenAt := r.runAt
		if seenAt.IsZero() {
			seenAt = r.now()
		}
		listing := models.NewKnownListing(rec, seenAt)

		err := r.repo.Insert(ctx, listing)
		if err == nil {
			r.index[rec.Address] = listing
			r.logger.Debug("[reconcile] New listing %q (%s)", rec.Address, rec.SourceRef)
			return models.NewListing, nil
		}
		if !errors.Is(err, storage.ErrExists) {
			return 0, &models.PersistenceError{Op: "insert", Address: rec.Address, Err: err}
		}

		// Stored by someone else since Load; adopt the stored entry.
		stored, found, gerr := r.repo.Get(ctx, rec.Address)
		if gerr != nil || !found {
			if gerr == nil {
				gerr = err
			}
			return 0, &models.PersistenceError{Op: "insert", Address: rec.Address, Err: gerr}
		}
		r.logger.Warn("[reconcile] %q was already stored, treating as repeat", rec.Address)
		existing = stored
	}

	if existing.HasRef(rec.SourceRef) {
		r.index[rec.Address] = existing
		return models.RepeatSighting, nil
	}

	updated := existing.WithRef(rec.SourceRef)
	if err := r.repo.AppendRef(ctx, rec.Address, rec.SourceRef); err != nil {
		return 0, &models.PersistenceError{Op: "append ref", Address: rec.Address, Err: err}
	}
	r.index[rec.Address] = updated
	r.logger.Debug("[reconcile] %q gained ref %s (%d refs)", rec.Address, rec.SourceRef, len(updated.Refs))
	return models.RepeatSighting, nil
}
