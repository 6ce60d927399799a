package dto

import (
	"context"
	"encoding/json"

	"github.com/flexprice/ispbilling/internal/domain/provider"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/flexprice/ispbilling/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// IngestProviderEventRequest is one inbound gateway event
type IngestProviderEventRequest struct {
	ProviderID string `json:"-"`
	// IdempotencyKey defaults to a key derived from provider, event type and external id
	IdempotencyKey string                  `json:"idempotency_key,omitempty"`
	EventType      types.ProviderEventType `json:"event_type" validate:"required"`
	PaymentID      *string                 `json:"payment_id,omitempty"`
	InvoiceID      *string                 `json:"invoice_id,omitempty"`
	AccountID      *string                 `json:"account_id,omitempty"`
	ExternalID     *string                 `json:"external_id,omitempty"`
	Amount         *decimal.Decimal        `json:"amount,omitempty"`
	Currency       *string                 `json:"currency,omitempty"`
	Payload        json.RawMessage         `json:"payload,omitempty"`
}

func (r *IngestProviderEventRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.ProviderID == "" {
		return ierr.NewError("provider_id is required").
			WithHint("Provider events must reference a provider").
			Mark(ierr.ErrValidation)
	}
	if r.IdempotencyKey == "" {
		return ierr.NewError("idempotency_key is required").
			WithHint("Provider events need an idempotency key or an external id").
			Mark(ierr.ErrValidation)
	}
	if err := r.EventType.Validate(); err != nil {
		return err
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return ierr.NewError("event amount must be positive").
			WithHint("Provider event amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.Currency != nil {
		if err := types.ValidateCurrencyCode(types.NormalizeCurrency(*r.Currency)); err != nil {
			return err
		}
	}
	return nil
}

func (r *IngestProviderEventRequest) ToEvent(ctx context.Context) *provider.Event {
	e := &provider.Event{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROVIDER_EVENT),
		ProviderID:       r.ProviderID,
		PaymentID:        r.PaymentID,
		InvoiceID:        r.InvoiceID,
		AccountID:        r.AccountID,
		EventType:        r.EventType,
		ExternalID:       r.ExternalID,
		IdempotencyKey:   r.IdempotencyKey,
		Payload:          types.RawJSON(r.Payload),
		ProcessingStatus: types.ProviderEventStatusReceived,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if r.Amount != nil {
		e.Amount = lo.ToPtr(types.RoundMoney(*r.Amount))
	}
	if r.Currency != nil {
		e.Currency = lo.ToPtr(types.NormalizeCurrency(*r.Currency))
	}
	return e
}

type ProviderEventResponse struct {
	*provider.Event
	// Replayed is true when the event had already been ingested
	Replayed bool `json:"replayed"`
}

func NewProviderEventResponse(e *provider.Event, replayed bool) *ProviderEventResponse {
	return &ProviderEventResponse{Event: e, Replayed: replayed}
}
