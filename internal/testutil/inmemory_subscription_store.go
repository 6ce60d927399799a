package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/subscription"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription]("subscription"),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	c := *sub
	return &c
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, sub.BaseModel) {
		return nil, s.notFound(id)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if _, err := s.Get(ctx, sub.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub))
}

// List orders by account, then start date, so a run bills each account's
// subscriptions together
func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewNoLimitSubscriptionFilter()
	}
	items, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription) bool {
		if !matchesStatus(ctx, sub.BaseModel, filter.QueryFilter) {
			return false
		}
		if len(filter.SubscriptionIDs) > 0 && !lo.Contains(filter.SubscriptionIDs, sub.ID) {
			return false
		}
		if filter.AccountID != "" && sub.AccountID != filter.AccountID {
			return false
		}
		return len(filter.SubscriptionStatus) == 0 || lo.Contains(filter.SubscriptionStatus, sub.SubscriptionStatus)
	}, func(a, b *subscription.Subscription) bool {
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if !a.StartAt.Equal(b.StartAt) {
			return a.StartAt.Before(b.StartAt)
		}
		return a.ID < b.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

// InMemoryOfferStore implements subscription.OfferRepository
type InMemoryOfferStore struct {
	offers   *InMemoryStore[*subscription.Offer]
	versions *InMemoryStore[*subscription.OfferVersion]
}

func NewInMemoryOfferStore() *InMemoryOfferStore {
	return &InMemoryOfferStore{
		offers:   NewInMemoryStore[*subscription.Offer]("offer"),
		versions: NewInMemoryStore[*subscription.OfferVersion]("offer version"),
	}
}

func (s *InMemoryOfferStore) Create(ctx context.Context, offer *subscription.Offer) error {
	c := *offer
	return s.offers.Create(ctx, offer.ID, &c)
}

func (s *InMemoryOfferStore) Get(ctx context.Context, id string) (*subscription.Offer, error) {
	offer, err := s.offers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, offer.BaseModel) {
		return nil, s.offers.notFound(id)
	}
	c := *offer
	return &c, nil
}

func (s *InMemoryOfferStore) CreateVersion(ctx context.Context, version *subscription.OfferVersion) error {
	c := *version
	return s.versions.Create(ctx, version.ID, &c)
}

func (s *InMemoryOfferStore) GetVersion(ctx context.Context, id string) (*subscription.OfferVersion, error) {
	version, err := s.versions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, version.BaseModel) {
		return nil, s.versions.notFound(id)
	}
	c := *version
	return &c, nil
}

func (s *InMemoryOfferStore) Snapshot() func() {
	restoreOffers := s.offers.Snapshot()
	restoreVersions := s.versions.Snapshot()
	return func() {
		restoreOffers()
		restoreVersions()
	}
}

func (s *InMemoryOfferStore) Clear() {
	s.offers.Clear()
	s.versions.Clear()
}
