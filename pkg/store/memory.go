package store

import (
	"context"
	"slices"
	"sync"

	"github.com/singlecellvr/scvrprep/pkg/observability"
)

// MemoryStore keeps reports in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string][]byte
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string][]byte)}
}

// Name returns "memory".
func (s *MemoryStore) Name() string { return "memory" }

// Put stores a copy of data.
func (s *MemoryStore) Put(ctx context.Context, id string, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	s.reports[id] = slices.Clone(data)
	s.mu.Unlock()
	observability.Store().OnStorePut(ctx, s.Name(), len(data))
	return nil
}

// Get returns a copy of the stored data.
func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ValidateID(id); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	data, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		observability.Store().OnStoreMiss(ctx, s.Name())
		return nil, false, nil
	}
	observability.Store().OnStoreHit(ctx, s.Name())
	return slices.Clone(data), true, nil
}

// Delete removes id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.reports, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored reports.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Close does nothing.
func (s *MemoryStore) Close() error { return nil }

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
