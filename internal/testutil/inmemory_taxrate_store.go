package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/taxrate"
)

// InMemoryTaxRateStore implements taxrate.Repository
type InMemoryTaxRateStore struct {
	*InMemoryStore[*taxrate.TaxRate]
}

func NewInMemoryTaxRateStore() *InMemoryTaxRateStore {
	return &InMemoryTaxRateStore{
		InMemoryStore: NewInMemoryStore[*taxrate.TaxRate]("tax rate"),
	}
}

func (s *InMemoryTaxRateStore) Create(ctx context.Context, rate *taxrate.TaxRate) error {
	c := *rate
	return s.InMemoryStore.Create(ctx, rate.ID, &c)
}

func (s *InMemoryTaxRateStore) Get(ctx context.Context, id string) (*taxrate.TaxRate, error) {
	rate, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, rate.BaseModel) {
		return nil, s.notFound(id)
	}
	c := *rate
	return &c, nil
}
