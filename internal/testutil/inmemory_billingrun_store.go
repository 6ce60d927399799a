package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/billingrun"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryBillingRunStore implements billingrun.Repository
type InMemoryBillingRunStore struct {
	*InMemoryStore[*billingrun.BillingRun]
}

func NewInMemoryBillingRunStore() *InMemoryBillingRunStore {
	return &InMemoryBillingRunStore{
		InMemoryStore: NewInMemoryStore[*billingrun.BillingRun]("billing run"),
	}
}

func (s *InMemoryBillingRunStore) Create(ctx context.Context, run *billingrun.BillingRun) error {
	c := *run
	return s.InMemoryStore.Create(ctx, run.ID, &c)
}

func (s *InMemoryBillingRunStore) Get(ctx context.Context, id string) (*billingrun.BillingRun, error) {
	run, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, run.BaseModel) {
		return nil, s.notFound(id)
	}
	c := *run
	return &c, nil
}

func (s *InMemoryBillingRunStore) Update(ctx context.Context, run *billingrun.BillingRun) error {
	if _, err := s.Get(ctx, run.ID); err != nil {
		return err
	}
	c := *run
	return s.InMemoryStore.Update(ctx, run.ID, &c)
}

func (s *InMemoryBillingRunStore) List(ctx context.Context, filter *types.BillingRunFilter) ([]*billingrun.BillingRun, error) {
	if filter == nil {
		filter = types.NewBillingRunFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter.QueryFilter, func(ctx context.Context, run *billingrun.BillingRun) bool {
		if !matchesStatus(ctx, run.BaseModel, filter.QueryFilter) {
			return false
		}
		return len(filter.RunStatus) == 0 || lo.Contains(filter.RunStatus, run.RunStatus)
	}, func(a, b *billingrun.BillingRun) bool {
		return createdByOrder(filter.QueryFilter, a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(run *billingrun.BillingRun, _ int) *billingrun.BillingRun {
		c := *run
		return &c
	}), nil
}
