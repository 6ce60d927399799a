package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/paymentchannel"
	"github.com/samber/lo"
)

// InMemoryPaymentChannelStore implements paymentchannel.Repository
type InMemoryPaymentChannelStore struct {
	methods  *InMemoryStore[*paymentchannel.Method]
	channels *InMemoryStore[*paymentchannel.Channel]
	accounts *InMemoryStore[*paymentchannel.CollectionAccount]
	mappings *InMemoryStore[*paymentchannel.ChannelAccount]
}

func NewInMemoryPaymentChannelStore() *InMemoryPaymentChannelStore {
	return &InMemoryPaymentChannelStore{
		methods:  NewInMemoryStore[*paymentchannel.Method]("payment method"),
		channels: NewInMemoryStore[*paymentchannel.Channel]("payment channel"),
		accounts: NewInMemoryStore[*paymentchannel.CollectionAccount]("collection account"),
		mappings: NewInMemoryStore[*paymentchannel.ChannelAccount]("payment channel account"),
	}
}

func (s *InMemoryPaymentChannelStore) CreateMethod(ctx context.Context, m *paymentchannel.Method) error {
	c := *m
	return s.methods.Create(ctx, m.ID, &c)
}

func (s *InMemoryPaymentChannelStore) GetMethod(ctx context.Context, id string) (*paymentchannel.Method, error) {
	m, err := s.methods.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, m.BaseModel) {
		return nil, s.methods.notFound(id)
	}
	c := *m
	return &c, nil
}

func (s *InMemoryPaymentChannelStore) CreateChannel(ctx context.Context, ch *paymentchannel.Channel) error {
	c := *ch
	return s.channels.Create(ctx, ch.ID, &c)
}

func (s *InMemoryPaymentChannelStore) GetChannel(ctx context.Context, id string) (*paymentchannel.Channel, error) {
	ch, err := s.channels.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, ch.BaseModel) {
		return nil, s.channels.notFound(id)
	}
	c := *ch
	return &c, nil
}

func (s *InMemoryPaymentChannelStore) ListChannelsByProvider(ctx context.Context, providerID string) ([]*paymentchannel.Channel, error) {
	items, err := s.channels.List(ctx, nil, func(ctx context.Context, ch *paymentchannel.Channel) bool {
		return visible(ctx, ch.BaseModel) && ptrEqual(ch.ProviderID, providerID)
	}, func(a, b *paymentchannel.Channel) bool {
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(ch *paymentchannel.Channel, _ int) *paymentchannel.Channel {
		c := *ch
		return &c
	}), nil
}

func (s *InMemoryPaymentChannelStore) CreateCollectionAccount(ctx context.Context, a *paymentchannel.CollectionAccount) error {
	c := *a
	return s.accounts.Create(ctx, a.ID, &c)
}

func (s *InMemoryPaymentChannelStore) GetCollectionAccount(ctx context.Context, id string) (*paymentchannel.CollectionAccount, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, a.BaseModel) {
		return nil, s.accounts.notFound(id)
	}
	c := *a
	return &c, nil
}

func (s *InMemoryPaymentChannelStore) CreateChannelAccount(ctx context.Context, ca *paymentchannel.ChannelAccount) error {
	c := *ca
	return s.mappings.Create(ctx, ca.ID, &c)
}

func (s *InMemoryPaymentChannelStore) ListChannelAccounts(ctx context.Context, channelID string) ([]*paymentchannel.ChannelAccount, error) {
	items, err := s.mappings.List(ctx, nil, func(ctx context.Context, ca *paymentchannel.ChannelAccount) bool {
		return visible(ctx, ca.BaseModel) && ca.PaymentChannelID == channelID
	}, func(a, b *paymentchannel.ChannelAccount) bool {
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(ca *paymentchannel.ChannelAccount, _ int) *paymentchannel.ChannelAccount {
		c := *ca
		return &c
	}), nil
}

func (s *InMemoryPaymentChannelStore) Snapshot() func() {
	restores := []func(){
		s.methods.Snapshot(),
		s.channels.Snapshot(),
		s.accounts.Snapshot(),
		s.mappings.Snapshot(),
	}
	return func() {
		for _, restore := range restores {
			restore()
		}
	}
}

func (s *InMemoryPaymentChannelStore) Clear() {
	s.methods.Clear()
	s.channels.Clear()
	s.accounts.Clear()
	s.mappings.Clear()
}
