package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/account"
)

// InMemoryAccountStore implements account.Repository
type InMemoryAccountStore struct {
	*InMemoryStore[*account.Account]
}

func NewInMemoryAccountStore() *InMemoryAccountStore {
	return &InMemoryAccountStore{
		InMemoryStore: NewInMemoryStore[*account.Account]("account"),
	}
}

func (s *InMemoryAccountStore) Create(ctx context.Context, acct *account.Account) error {
	c := *acct
	return s.InMemoryStore.Create(ctx, acct.ID, &c)
}

// Get returns suspended and closed accounts too; only deleted rows are hidden
func (s *InMemoryAccountStore) Get(ctx context.Context, id string) (*account.Account, error) {
	acct, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, acct.BaseModel) {
		return nil, s.notFound(id)
	}
	c := *acct
	return &c, nil
}
