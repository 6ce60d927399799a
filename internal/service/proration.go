package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/cache"
	"github.com/flexprice/ispbilling/internal/domain/subscription"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/flexprice/ispbilling/internal/validator"
	"github.com/shopspring/decimal"
)

// ProrateAmount charges price for the share of [periodStart, periodEnd] the
// subscription was live: round(price * min(1, usage / period)).
func ProrateAmount(price decimal.Decimal, periodStart, periodEnd, subStart time.Time, subEnd *time.Time) decimal.Decimal {
	period := periodEnd.Sub(periodStart).Seconds()
	if period <= 0 {
		return decimal.Zero
	}
	usage := types.OverlapSeconds(periodStart, periodEnd, subStart, subEnd)
	if usage >= period {
		return types.RoundMoney(price)
	}
	amount := price.Mul(decimal.NewFromFloat(usage)).Div(decimal.NewFromFloat(period))
	return types.RoundMoney(amount)
}

// GenerateProratedInvoice bills the remainder of the period a subscription was
// activated in. Activation on the period boundary is left to the regular run.
func (s *billingAutomationService) GenerateProratedInvoice(ctx context.Context, req dto.GenerateProratedInvoiceRequest) (*dto.ProratedInvoiceResponse, error) {
	if err := validator.ValidateRequest(&req); err != nil {
		return nil, err
	}

	var resp *dto.ProratedInvoiceResponse
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		sub, err := s.SubRepo.Get(ctx, req.SubscriptionID)
		if err != nil {
			return err
		}

		activation := sub.StartAt
		if sub.ActivatedAt != nil {
			activation = *sub.ActivatedAt
		}
		if req.ActivationDate != nil {
			activation = *req.ActivationDate
		}
		activation = activation.UTC()

		pricing, ok, err := s.resolvePricing(ctx, sub)
		if err != nil {
			return err
		}
		if !ok {
			resp = skipped("subscription has no price")
			return nil
		}

		periodStart, periodEnd := naturalPeriod(pricing.BillingCycle, sub.NextBillingAt, activation)
		if activation.Equal(periodStart) {
			resp = skipped("activation is on a period boundary")
			return nil
		}

		_, err = s.InvoiceLineRepo.FindForSubscriptionPeriod(ctx, sub.ID, periodStart, periodEnd)
		if err == nil {
			resp = skipped("period already billed")
			return nil
		}
		if !ierr.IsNotFound(err) {
			return err
		}

		amount := ProrateAmount(pricing.Price, periodStart, periodEnd, activation, sub.EndAt)
		if !amount.IsPositive() {
			resp = skipped("prorated amount is zero")
			return nil
		}

		invResp, err := s.invoiceService.CreateInvoice(ctx, dto.CreateInvoiceRequest{
			AccountID:          sub.AccountID,
			Currency:           pricing.Currency,
			BillingPeriodStart: &periodStart,
			BillingPeriodEnd:   &periodEnd,
			Lines: []dto.CreateInvoiceLineRequest{{
				SubscriptionID: &sub.ID,
				Description:    s.lineDescription(ctx, sub, periodStart, periodEnd, true),
				Quantity:       decimal.NewFromInt(1),
				UnitPrice:      amount,
				PeriodStart:    &periodStart,
				PeriodEnd:      &periodEnd,
			}},
		})
		if err != nil {
			return err
		}

		if sub.NextBillingAt == nil || sub.NextBillingAt.Before(periodEnd) {
			sub.NextBillingAt = &periodEnd
			sub.UpdatedAt = time.Now().UTC()
			sub.UpdatedBy = types.GetUserID(ctx)
			if err := s.SubRepo.Update(ctx, sub); err != nil {
				return err
			}
		}

		resp = &dto.ProratedInvoiceResponse{Invoice: invResp.Invoice}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if resp.Skipped {
		s.Logger.Infow("prorated invoice skipped",
			"subscription_id", req.SubscriptionID,
			"reason", resp.SkipReason,
		)
	} else {
		s.Logger.Infow("generated prorated invoice",
			"subscription_id", req.SubscriptionID,
			"invoice_id", resp.Invoice.ID,
			"total", resp.Invoice.Total,
		)
	}
	return resp, nil
}

// naturalPeriod is [next_billing_at - cycle, next_billing_at] when the next
// billing date lies after activation, else the calendar period holding activation.
func naturalPeriod(cycle types.BillingCycle, nextBillingAt *time.Time, activation time.Time) (time.Time, time.Time) {
	if nextBillingAt != nil && nextBillingAt.After(activation) {
		end := nextBillingAt.UTC()
		return cycle.PeriodStart(end), end
	}
	start := cycle.CalendarPeriodStart(activation)
	return start, cycle.PeriodEnd(start)
}

func skipped(reason string) *dto.ProratedInvoiceResponse {
	return &dto.ProratedInvoiceResponse{Skipped: true, SkipReason: reason}
}

// resolvePricing loads the offer (cached per tenant) and version behind a subscription
func (s *billingAutomationService) resolvePricing(ctx context.Context, sub *subscription.Subscription) (subscription.Pricing, bool, error) {
	offer, err := s.getOffer(ctx, sub.OfferID)
	if err != nil {
		return subscription.Pricing{}, false, err
	}

	var version *subscription.OfferVersion
	if sub.OfferVersionID != nil {
		version, err = s.OfferRepo.GetVersion(ctx, *sub.OfferVersionID)
		if err != nil {
			return subscription.Pricing{}, false, err
		}
	}

	pricing, ok := subscription.ResolvePricing(sub, offer, version)
	return pricing, ok, nil
}

func (s *billingAutomationService) getOffer(ctx context.Context, id string) (*subscription.Offer, error) {
	key := cache.GenerateKey(cache.PrefixOffer, types.GetTenantID(ctx), id)
	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, key); ok {
			if offer, ok := v.(*subscription.Offer); ok {
				return offer, nil
			}
		}
	}

	offer, err := s.OfferRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, key, offer, 0)
	}
	return offer, nil
}

func (s *billingAutomationService) lineDescription(ctx context.Context, sub *subscription.Subscription, start, end time.Time, prorated bool) string {
	name := sub.OfferID
	if offer, err := s.getOffer(ctx, sub.OfferID); err == nil && offer.Name != "" {
		name = offer.Name
	}
	desc := fmt.Sprintf("%s %s to %s", name, start.Format(time.DateOnly), end.Format(time.DateOnly))
	if prorated {
		desc += " (prorated)"
	}
	return desc
}
