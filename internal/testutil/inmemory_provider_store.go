package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/provider"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryProviderStore implements provider.Repository
type InMemoryProviderStore struct {
	*InMemoryStore[*provider.Provider]
}

func NewInMemoryProviderStore() *InMemoryProviderStore {
	return &InMemoryProviderStore{
		InMemoryStore: NewInMemoryStore[*provider.Provider]("payment provider"),
	}
}

func (s *InMemoryProviderStore) Create(ctx context.Context, p *provider.Provider) error {
	c := *p
	return s.InMemoryStore.Create(ctx, p.ID, &c)
}

func (s *InMemoryProviderStore) Get(ctx context.Context, id string) (*provider.Provider, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, p.BaseModel) {
		return nil, s.notFound(id)
	}
	c := *p
	return &c, nil
}

// InMemoryProviderEventStore implements provider.EventRepository
type InMemoryProviderEventStore struct {
	*InMemoryStore[*provider.Event]
}

func NewInMemoryProviderEventStore() *InMemoryProviderEventStore {
	return &InMemoryProviderEventStore{
		InMemoryStore: NewInMemoryStore[*provider.Event]("provider event"),
	}
}

func copyProviderEvent(e *provider.Event) *provider.Event {
	c := *e
	return &c
}

// Create mirrors the unique (tenant, provider, idempotency key) index
func (s *InMemoryProviderEventStore) Create(ctx context.Context, e *provider.Event) error {
	if _, err := s.GetByIdempotencyKey(ctx, e.ProviderID, e.IdempotencyKey); err == nil {
		return ierr.NewError("provider event already recorded").
			WithHintf("Event %s was already received from provider %s", e.IdempotencyKey, e.ProviderID).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, e.ID, copyProviderEvent(e))
}

func (s *InMemoryProviderEventStore) Get(ctx context.Context, id string) (*provider.Event, error) {
	e, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, e.BaseModel) {
		return nil, s.notFound(id)
	}
	return copyProviderEvent(e), nil
}

func (s *InMemoryProviderEventStore) GetByIdempotencyKey(ctx context.Context, providerID, key string) (*provider.Event, error) {
	e, err := s.InMemoryStore.Find(ctx, key, func(ctx context.Context, e *provider.Event) bool {
		return e.TenantID == types.GetTenantID(ctx) && e.ProviderID == providerID && e.IdempotencyKey == key
	}, nil)
	if err != nil {
		return nil, err
	}
	return copyProviderEvent(e), nil
}

func (s *InMemoryProviderEventStore) Update(ctx context.Context, e *provider.Event) error {
	if _, err := s.Get(ctx, e.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, e.ID, copyProviderEvent(e))
}

func (s *InMemoryProviderEventStore) List(ctx context.Context, filter *types.ProviderEventFilter) ([]*provider.Event, error) {
	if filter == nil {
		filter = types.NewProviderEventFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter.QueryFilter, func(ctx context.Context, e *provider.Event) bool {
		if !matchesStatus(ctx, e.BaseModel, filter.QueryFilter) {
			return false
		}
		if filter.ProviderID != "" && e.ProviderID != filter.ProviderID {
			return false
		}
		if filter.PaymentID != "" && !ptrEqual(e.PaymentID, filter.PaymentID) {
			return false
		}
		return len(filter.Statuses) == 0 || lo.Contains(filter.Statuses, e.ProcessingStatus)
	}, func(a, b *provider.Event) bool {
		return createdByOrder(filter.QueryFilter, a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(e *provider.Event, _ int) *provider.Event { return copyProviderEvent(e) }), nil
}
