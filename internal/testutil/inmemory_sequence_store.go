package testutil

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/sequence"
	"github.com/flexprice/ispbilling/internal/types"
)

// InMemorySequenceStore implements sequence.Repository
type InMemorySequenceStore struct {
	mu   sync.Mutex
	rows map[string]sequence.DocumentSequence
}

func NewInMemorySequenceStore() *InMemorySequenceStore {
	return &InMemorySequenceStore{
		rows: make(map[string]sequence.DocumentSequence),
	}
}

func (s *InMemorySequenceStore) Next(ctx context.Context, key string, start int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID := types.GetTenantID(ctx)
	id := tenantID + "/" + key
	row, ok := s.rows[id]
	if !ok {
		row = sequence.DocumentSequence{
			TenantID:  tenantID,
			Key:       key,
			NextValue: start,
		}
	}

	value := row.NextValue
	row.NextValue++
	row.UpdatedAt = time.Now().UTC()
	s.rows[id] = row
	return value, nil
}

func (s *InMemorySequenceStore) Snapshot() func() {
	s.mu.Lock()
	saved := maps.Clone(s.rows)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.rows = saved
	}
}

func (s *InMemorySequenceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]sequence.DocumentSequence)
}
