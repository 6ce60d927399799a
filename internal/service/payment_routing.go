package service

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/payment"
	"github.com/flexprice/ispbilling/internal/domain/paymentchannel"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// resolveRouting fills the payment channel and the collection account the money settles into
func (s *paymentService) resolveRouting(ctx context.Context, p *payment.Payment, method *paymentchannel.Method) error {
	channel, err := s.resolveChannel(ctx, p, method)
	if err != nil {
		return err
	}
	if channel == nil {
		return nil
	}
	p.PaymentChannelID = lo.ToPtr(channel.ID)

	if p.CollectionAccountID != nil {
		_, err := s.PaymentChannelRepo.GetCollectionAccount(ctx, *p.CollectionAccountID)
		return err
	}

	accountID, err := s.resolveCollectionAccount(ctx, channel, p.Currency)
	if err != nil {
		return err
	}
	p.CollectionAccountID = accountID
	return nil
}

// resolveChannel picks the explicit channel, else the method's, else the
// provider's only or default channel. Several non-default candidates are ambiguous.
func (s *paymentService) resolveChannel(ctx context.Context, p *payment.Payment, method *paymentchannel.Method) (*paymentchannel.Channel, error) {
	if p.PaymentChannelID != nil {
		return s.PaymentChannelRepo.GetChannel(ctx, *p.PaymentChannelID)
	}
	if method != nil && method.PaymentChannelID != nil {
		return s.PaymentChannelRepo.GetChannel(ctx, *method.PaymentChannelID)
	}
	if p.ProviderID == nil {
		return nil, nil
	}

	channels, err := s.PaymentChannelRepo.ListChannelsByProvider(ctx, *p.ProviderID)
	if err != nil {
		return nil, err
	}
	return pickProviderChannel(*p.ProviderID, channels)
}

func pickProviderChannel(providerID string, channels []*paymentchannel.Channel) (*paymentchannel.Channel, error) {
	switch len(channels) {
	case 0:
		return nil, nil
	case 1:
		return channels[0], nil
	}

	defaults := lo.Filter(channels, func(c *paymentchannel.Channel, _ int) bool {
		return c.IsDefault
	})
	if len(defaults) == 1 {
		return defaults[0], nil
	}

	return nil, ierr.NewError("ambiguous payment channel").
		WithHint("Several payment channels match this provider; specify payment_channel_id").
		WithReportableDetails(map[string]any{
			"provider_id": providerID,
			"channel_ids": lo.Map(channels, func(c *paymentchannel.Channel, _ int) string { return c.ID }),
		}).
		Mark(ierr.ErrValidation)
}

// resolveCollectionAccount walks the channel's mappings: a currency match first
// (default flag then priority, as the repository orders them), then a
// currency-agnostic mapping, then the channel's configured default.
func (s *paymentService) resolveCollectionAccount(ctx context.Context, channel *paymentchannel.Channel, currency string) (*string, error) {
	mappings, err := s.PaymentChannelRepo.ListChannelAccounts(ctx, channel.ID)
	if err != nil {
		return nil, err
	}
	if m := pickChannelAccount(mappings, currency); m != nil {
		return lo.ToPtr(m.CollectionAccountID), nil
	}
	return copyString(channel.DefaultCollectionAccountID), nil
}

func pickChannelAccount(mappings []*paymentchannel.ChannelAccount, currency string) *paymentchannel.ChannelAccount {
	for _, m := range mappings {
		if m.Currency != nil && types.IsCurrencyEqual(*m.Currency, currency) {
			return m
		}
	}
	for _, m := range mappings {
		if m.Currency == nil {
			return m
		}
	}
	return nil
}
