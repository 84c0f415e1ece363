package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"

	"rental-watch/models"
)

const listingKeyPrefix = "listing/"

// PebbleStore implements Store on an embedded Pebble database.
// Every write is synced before returning.
type PebbleStore struct {
	mu sync.Mutex
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble: open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func listingKey(address string) []byte { return []byte(listingKeyPrefix + address) }

func encodeListing(l models.KnownListing) ([]byte, error) { return json.Marshal(l) }
func decodeListing(val []byte) (models.KnownListing, error) {
	var l models.KnownListing
	if err := json.Unmarshal(val, &l); err != nil {
		return models.KnownListing{}, err
	}
	return l, nil
}

func (p *PebbleStore) get(address string) (models.KnownListing, bool, error) {
	v, closer, err := p.db.Get(listingKey(address))
	if errors.Is(err, pebble.ErrNotFound) {
		return models.KnownListing{}, false, nil
	}
	if err != nil {
		return models.KnownListing{}, false, fmt.Errorf("pebble: get %q: %w", address, err)
	}
	defer closer.Close()
	l, err := decodeListing(v)
	if err != nil {
		return models.KnownListing{}, false, fmt.Errorf("pebble: decode %q: %w", address, err)
	}
	return l, true, nil
}

func (p *PebbleStore) put(l models.KnownListing) error {
	b, err := encodeListing(l)
	if err != nil {
		return fmt.Errorf("pebble: encode %q: %w", l.Address, err)
	}
	if err := p.db.Set(listingKey(l.Address), b, pebble.Sync); err != nil {
		return fmt.Errorf("pebble: set %q: %w", l.Address, err)
	}
	return nil
}

func (p *PebbleStore) Get(_ context.Context, address string) (models.KnownListing, bool, error) {
	return p.get(address)
}

func (p *PebbleStore) Insert(_ context.Context, listing models.KnownListing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok, err := p.get(listing.Address)
	if err != nil {
		return err
	}
	if ok {
		return ErrExists
	}
	return p.put(listing)
}

func (p *PebbleStore) AppendRef(_ context.Context, address, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok, err := p.get(address)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if l.HasRef(ref) {
		return nil
	}
	return p.put(l.WithRef(ref))
}

func (p *PebbleStore) UpdateCuration(_ context.Context, address string, c models.Curation) (models.KnownListing, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok, err := p.get(address)
	if err != nil {
		return models.KnownListing{}, err
	}
	if !ok {
		return models.KnownListing{}, ErrNotFound
	}
	l = c.Apply(l)
	if err := p.put(l); err != nil {
		return models.KnownListing{}, err
	}
	return l, nil
}

// ListAll returns every listing in key (address) order.
func (p *PebbleStore) ListAll(_ context.Context) ([]models.KnownListing, error) {
	it, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(listingKeyPrefix),
		UpperBound: prefixEnd([]byte(listingKeyPrefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble: iterate: %w", err)
	}
	defer it.Close()

	var out []models.KnownListing
	for it.First(); it.Valid(); it.Next() {
		v := append([]byte(nil), it.Value()...)
		l, err := decodeListing(v)
		if err != nil {
			return nil, fmt.Errorf("pebble: decode %q: %w", it.Key(), err)
		}
		out = append(out, l)
	}
	return out, it.Error()
}

func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
