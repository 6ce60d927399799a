package testutil

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
)

// FilterFunc reports whether item belongs in a list result
type FilterFunc[T any] func(ctx context.Context, item T) bool

// SortFunc is a generic less function
type SortFunc[T any] func(i, j T) bool

// Snapshotter is implemented by stores that take part in MockPostgresClient
// rollbacks. Snapshot captures the current state and returns a func that
// restores it.
type Snapshotter interface {
	Snapshot() func()
}

// InMemoryStore implements a generic in-memory store keyed by id. Typed stores
// layer tenant, soft delete and ordering rules on top of it and copy values in
// and out so callers never share memory with the store.
type InMemoryStore[T any] struct {
	mu     sync.RWMutex
	entity string
	items  map[string]T
}

// NewInMemoryStore creates a new InMemoryStore. entity names the rows in errors.
func NewInMemoryStore[T any](entity string) *InMemoryStore[T] {
	return &InMemoryStore[T]{
		entity: entity,
		items:  make(map[string]T),
	}
}

// Create adds a new item to the store
func (s *InMemoryStore[T]) Create(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewErrorf("%s already exists", s.entity).
			WithHintf("%s %s already exists", s.entity, id).
			Mark(ierr.ErrAlreadyExists)
	}

	s.items[id] = item
	return nil
}

// Get retrieves an item by ID
func (s *InMemoryStore[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[id]; exists {
		return item, nil
	}

	var zero T
	return zero, s.notFound(id)
}

// List returns the items accepted by filterFn, sorted by sortFn and paged by qf
func (s *InMemoryStore[T]) List(ctx context.Context, qf *types.QueryFilter, filterFn FilterFunc[T], sortFn SortFunc[T]) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0)
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			result = append(result, item)
		}
	}

	if sortFn != nil {
		sort.SliceStable(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}

	if qf != nil && !qf.IsUnlimited() {
		start := qf.GetOffset()
		if start >= len(result) {
			return []T{}, nil
		}

		end := start + qf.GetLimit()
		if end > len(result) {
			end = len(result)
		}
		return result[start:end], nil
	}

	return result, nil
}

// Find returns the first item accepted by filterFn in sortFn order
func (s *InMemoryStore[T]) Find(ctx context.Context, key string, filterFn FilterFunc[T], sortFn SortFunc[T]) (T, error) {
	items, err := s.List(ctx, nil, filterFn, sortFn)
	if err != nil {
		var zero T
		return zero, err
	}
	if len(items) == 0 {
		var zero T
		return zero, s.notFound(key)
	}
	return items[0], nil
}

// Count returns the total number of items matching the filter
func (s *InMemoryStore[T]) Count(ctx context.Context, filterFn FilterFunc[T]) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, item := range s.items {
		if filterFn == nil || filterFn(ctx, item) {
			count++
		}
	}

	return count, nil
}

// Update replaces an existing item
func (s *InMemoryStore[T]) Update(ctx context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return s.notFound(id)
	}

	s.items[id] = item
	return nil
}

// Delete removes an item from the store
func (s *InMemoryStore[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return s.notFound(id)
	}

	delete(s.items, id)
	return nil
}

// Clear removes all items from the store
func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}

// Snapshot implements Snapshotter. Stored values are never mutated in place,
// so a shallow copy of the map is enough.
func (s *InMemoryStore[T]) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.items)
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items = saved
	}
}

func (s *InMemoryStore[T]) notFound(id string) error {
	return ierr.NewErrorf("%s not found", s.entity).
		WithHintf("%s %s was not found", s.entity, id).
		WithReportableDetails(map[string]any{
			"id": id,
		}).
		Mark(ierr.ErrNotFound)
}

// visible reports whether a row is a live row of the caller's tenant
func visible(ctx context.Context, base types.BaseModel) bool {
	return base.TenantID == types.GetTenantID(ctx) && base.Status == types.StatusPublished
}

// matchesStatus applies the tenant scope and the soft delete filter carried by qf
func matchesStatus(ctx context.Context, base types.BaseModel, qf *types.QueryFilter) bool {
	if base.TenantID != types.GetTenantID(ctx) {
		return false
	}
	if qf == nil || qf.Status == nil {
		return base.Status == types.StatusPublished
	}
	return base.Status == *qf.Status
}

// inTimeRange applies a created_at window, start inclusive and end exclusive
func inTimeRange(createdAt time.Time, tr *types.TimeRangeFilter) bool {
	if tr == nil {
		return true
	}
	if tr.StartTime != nil && createdAt.Before(*tr.StartTime) {
		return false
	}
	if tr.EndTime != nil && !createdAt.Before(*tr.EndTime) {
		return false
	}
	return true
}

// createdAsc orders rows oldest first with the id as tie breaker
func createdAsc(ai, bi types.BaseModel, aid, bid string) bool {
	if !ai.CreatedAt.Equal(bi.CreatedAt) {
		return ai.CreatedAt.Before(bi.CreatedAt)
	}
	return aid < bid
}

// createdByOrder follows the default list order of the query filter, which is
// created_at descending unless the caller asks for ascending
func createdByOrder(qf *types.QueryFilter, ai, bi types.BaseModel, aid, bid string) bool {
	if qf != nil && qf.GetOrder() == types.OrderAsc {
		return createdAsc(ai, bi, aid, bid)
	}
	return createdAsc(bi, ai, bid, aid)
}

func ptrEqual(p *string, v string) bool {
	return p != nil && *p == v
}
