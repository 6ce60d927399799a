package provider

import (
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

// Provider is a payment gateway (Stripe, a mobile money aggregator, a bank feed)
type Provider struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Code string `db:"code" json:"code"`
	types.BaseModel
}

// Event is an inbound gateway event, unique per (provider, idempotency key)
type Event struct {
	ID               string                    `db:"id" json:"id"`
	ProviderID       string                    `db:"provider_id" json:"provider_id"`
	PaymentID        *string                   `db:"payment_id" json:"payment_id,omitempty"`
	InvoiceID        *string                   `db:"invoice_id" json:"invoice_id,omitempty"`
	AccountID        *string                   `db:"account_id" json:"account_id,omitempty"`
	EventType        types.ProviderEventType   `db:"event_type" json:"event_type"`
	ExternalID       *string                   `db:"external_id" json:"external_id,omitempty"`
	IdempotencyKey   string                    `db:"idempotency_key" json:"idempotency_key"`
	Amount           *decimal.Decimal          `db:"amount" json:"amount,omitempty"`
	Currency         *string                   `db:"currency" json:"currency,omitempty"`
	Payload          types.RawJSON             `db:"payload" json:"payload,omitempty"`
	ProcessingStatus types.ProviderEventStatus `db:"processing_status" json:"processing_status"`
	Error            *string                   `db:"error" json:"error,omitempty"`
	ProcessedAt      *time.Time                `db:"processed_at" json:"processed_at,omitempty"`
	types.BaseModel
}

func (e *Event) Validate() error {
	if e.ProviderID == "" {
		return ierr.NewError("provider_id is required").
			WithHint("Provider event must reference a provider").
			Mark(ierr.ErrValidation)
	}
	if e.IdempotencyKey == "" {
		return ierr.NewError("idempotency_key is required").
			WithHint("Provider events need an idempotency key").
			Mark(ierr.ErrValidation)
	}
	return e.EventType.Validate()
}
