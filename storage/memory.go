package storage

import (
	"context"
	"sort"
	"sync"

	"rental-watch/models"
)

// InMemoryStore is a thread-safe map store for tests and dry runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]models.KnownListing
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]models.KnownListing)}
}

func (s *InMemoryStore) Get(_ context.Context, address string) (models.KnownListing, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.data[address]
	return l.Clone(), ok, nil
}

func (s *InMemoryStore) Insert(_ context.Context, listing models.KnownListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[listing.Address]; ok {
		return ErrExists
	}
	s.data[listing.Address] = listing.Clone()
	return nil
}

func (s *InMemoryStore) AppendRef(_ context.Context, address, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.data[address]
	if !ok {
		return ErrNotFound
	}
	s.data[address] = l.WithRef(ref)
	return nil
}

func (s *InMemoryStore) UpdateCuration(_ context.Context, address string, c models.Curation) (models.KnownListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.data[address]
	if !ok {
		return models.KnownListing{}, ErrNotFound
	}
	l = c.Apply(l)
	s.data[address] = l
	return l.Clone(), nil
}

// ListAll returns every listing ordered by address.
func (s *InMemoryStore) ListAll(_ context.Context) ([]models.KnownListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.KnownListing, 0, len(s.data))
	for _, l := range s.data {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
