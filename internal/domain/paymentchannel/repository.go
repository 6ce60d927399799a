package paymentchannel

import "context"

// Repository reads payment routing metadata. Writes happen in the back office.
type Repository interface {
	CreateMethod(ctx context.Context, m *Method) error
	GetMethod(ctx context.Context, id string) (*Method, error)

	CreateChannel(ctx context.Context, c *Channel) error
	GetChannel(ctx context.Context, id string) (*Channel, error)
	// ListChannelsByProvider returns active channels of a provider, defaults first
	ListChannelsByProvider(ctx context.Context, providerID string) ([]*Channel, error)

	CreateCollectionAccount(ctx context.Context, a *CollectionAccount) error
	GetCollectionAccount(ctx context.Context, id string) (*CollectionAccount, error)

	CreateChannelAccount(ctx context.Context, ca *ChannelAccount) error
	// ListChannelAccounts returns active mappings of a channel ordered by is_default desc, priority asc
	ListChannelAccounts(ctx context.Context, channelID string) ([]*ChannelAccount, error)
}
