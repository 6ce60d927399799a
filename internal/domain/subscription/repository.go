package subscription

import (
	"context"

	"github.com/flexprice/ispbilling/internal/types"
)

type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
}

type OfferRepository interface {
	Create(ctx context.Context, offer *Offer) error
	Get(ctx context.Context, id string) (*Offer, error)
	CreateVersion(ctx context.Context, version *OfferVersion) error
	GetVersion(ctx context.Context, id string) (*OfferVersion, error)
}
