package provider

import (
	"context"

	"github.com/flexprice/ispbilling/internal/types"
)

type Repository interface {
	Create(ctx context.Context, p *Provider) error
	Get(ctx context.Context, id string) (*Provider, error)
}

type EventRepository interface {
	// Create returns an AlreadyExists error when (provider, idempotency key) is taken
	Create(ctx context.Context, event *Event) error
	Get(ctx context.Context, id string) (*Event, error)
	GetByIdempotencyKey(ctx context.Context, providerID, key string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	List(ctx context.Context, filter *types.ProviderEventFilter) ([]*Event, error)
}
