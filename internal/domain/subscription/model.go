package subscription

import (
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is an account's service on an offer (an internet package)
type Subscription struct {
	ID                 string                   `db:"id" json:"id"`
	AccountID          string                   `db:"account_id" json:"account_id"`
	OfferID            string                   `db:"offer_id" json:"offer_id"`
	OfferVersionID     *string                  `db:"offer_version_id" json:"offer_version_id,omitempty"`
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`
	PriceOverride      *decimal.Decimal         `db:"price_override" json:"price_override,omitempty"`
	Currency           *string                  `db:"currency" json:"currency,omitempty"`
	BillingCycle       *types.BillingCycle      `db:"billing_cycle" json:"billing_cycle,omitempty"`
	StartAt            time.Time                `db:"start_at" json:"start_at"`
	EndAt              *time.Time               `db:"end_at" json:"end_at,omitempty"`
	NextBillingAt      *time.Time               `db:"next_billing_at" json:"next_billing_at,omitempty"`
	ActivatedAt        *time.Time               `db:"activated_at" json:"activated_at,omitempty"`
	types.BaseModel
}

func (s *Subscription) Validate() error {
	if s.AccountID == "" || s.OfferID == "" {
		return ierr.NewError("account_id and offer_id are required").
			WithHint("Subscription must reference an account and an offer").
			Mark(ierr.ErrValidation)
	}
	if s.EndAt != nil && s.EndAt.Before(s.StartAt) {
		return ierr.NewError("end_at before start_at").
			WithHint("Subscription cannot end before it starts").
			Mark(ierr.ErrValidation)
	}
	return s.SubscriptionStatus.Validate()
}

// Offer is a sellable package with a recurring price
type Offer struct {
	ID           string             `db:"id" json:"id"`
	Name         string             `db:"name" json:"name"`
	Price        *decimal.Decimal   `db:"price" json:"price,omitempty"`
	Currency     string             `db:"currency" json:"currency"`
	BillingCycle types.BillingCycle `db:"billing_cycle" json:"billing_cycle"`
	types.BaseModel
}

// OfferVersion pins a revision of an offer. Non-nil fields override the offer.
type OfferVersion struct {
	ID           string              `db:"id" json:"id"`
	OfferID      string              `db:"offer_id" json:"offer_id"`
	Version      int                 `db:"version" json:"version"`
	Price        *decimal.Decimal    `db:"price" json:"price,omitempty"`
	Currency     *string             `db:"currency" json:"currency,omitempty"`
	BillingCycle *types.BillingCycle `db:"billing_cycle" json:"billing_cycle,omitempty"`
	types.BaseModel
}

// Pricing is the price, currency and cycle a subscription is billed at
type Pricing struct {
	Price        decimal.Decimal
	Currency     string
	BillingCycle types.BillingCycle
}

// ResolvePricing layers subscription overrides over the offer version over the offer.
// ok is false when no level carries a price.
func ResolvePricing(sub *Subscription, offer *Offer, version *OfferVersion) (Pricing, bool) {
	p := Pricing{
		Currency:     offer.Currency,
		BillingCycle: offer.BillingCycle,
	}
	var price *decimal.Decimal = offer.Price
	if version != nil {
		if version.Price != nil {
			price = version.Price
		}
		if version.Currency != nil {
			p.Currency = *version.Currency
		}
		if version.BillingCycle != nil {
			p.BillingCycle = *version.BillingCycle
		}
	}
	if sub.PriceOverride != nil {
		price = sub.PriceOverride
	}
	if sub.Currency != nil {
		p.Currency = *sub.Currency
	}
	if sub.BillingCycle != nil {
		p.BillingCycle = *sub.BillingCycle
	}
	if p.BillingCycle == "" {
		p.BillingCycle = types.BillingCycleMonthly
	}
	p.Currency = types.NormalizeCurrency(p.Currency)
	if price == nil {
		return p, false
	}
	p.Price = types.RoundMoney(*price)
	return p, true
}
