package account

import "context"

// Repository is the subscriber lookup the billing core depends on
type Repository interface {
	// Get returns the account or a NotFound error
	Get(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) error
}
