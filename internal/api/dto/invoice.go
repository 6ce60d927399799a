package dto

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/invoice"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/flexprice/ispbilling/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest creates an invoice with optional lines.
// Currency, status and number fall back to the billing configuration.
type CreateInvoiceRequest struct {
	AccountID          string                     `json:"account_id" validate:"required"`
	InvoiceNumber      *string                    `json:"invoice_number,omitempty"`
	InvoiceStatus      *types.InvoiceStatus       `json:"invoice_status,omitempty"`
	Currency           string                     `json:"currency,omitempty"`
	BillingPeriodStart *time.Time                 `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time                 `json:"billing_period_end,omitempty"`
	DueAt              *time.Time                 `json:"due_at,omitempty"`
	Memo               *string                    `json:"memo,omitempty"`
	IdempotencyKey     *string                    `json:"idempotency_key,omitempty"`
	BillingRunID       *string                    `json:"-"`
	Lines              []CreateInvoiceLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Currency != "" {
		if err := types.ValidateCurrencyCode(r.Currency); err != nil {
			return err
		}
	}
	if r.InvoiceStatus != nil {
		if err := r.InvoiceStatus.Validate(); err != nil {
			return err
		}
	}
	if r.BillingPeriodStart != nil && r.BillingPeriodEnd != nil && r.BillingPeriodEnd.Before(*r.BillingPeriodStart) {
		return ierr.NewError("billing_period_end must be after billing_period_start").
			WithHint("Billing period end must not be before its start").
			Mark(ierr.ErrValidation)
	}
	for i := range r.Lines {
		if err := r.Lines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToInvoice builds the invoice with zero totals; the caller recomputes after adding lines
func (r *CreateInvoiceRequest) ToInvoice(ctx context.Context) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		AccountID:          r.AccountID,
		InvoiceNumber:      r.InvoiceNumber,
		Currency:           types.NormalizeCurrency(r.Currency),
		Subtotal:           decimal.Zero,
		TaxTotal:           decimal.Zero,
		Total:              decimal.Zero,
		AmountPaid:         decimal.Zero,
		AmountCredited:     decimal.Zero,
		BalanceDue:         decimal.Zero,
		BillingPeriodStart: r.BillingPeriodStart,
		BillingPeriodEnd:   r.BillingPeriodEnd,
		DueAt:              r.DueAt,
		Memo:               r.Memo,
		IdempotencyKey:     r.IdempotencyKey,
		BillingRunID:       r.BillingRunID,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if r.InvoiceStatus != nil {
		inv.InvoiceStatus = *r.InvoiceStatus
	}
	return inv
}

// CreateInvoiceLineRequest adds a charge to an invoice. Amount is computed from
// quantity and unit price when omitted and must agree with them when given.
type CreateInvoiceLineRequest struct {
	SubscriptionID *string               `json:"subscription_id,omitempty"`
	Description    string                `json:"description" validate:"required"`
	Quantity       decimal.Decimal       `json:"quantity"`
	UnitPrice      decimal.Decimal       `json:"unit_price"`
	Amount         *decimal.Decimal      `json:"amount,omitempty"`
	TaxRateID      *string               `json:"tax_rate_id,omitempty"`
	TaxApplication *types.TaxApplication `json:"tax_application,omitempty"`
	PeriodStart    *time.Time            `json:"period_start,omitempty"`
	PeriodEnd      *time.Time            `json:"period_end,omitempty"`
}

func (r *CreateInvoiceLineRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.TaxApplication != nil {
		if err := r.TaxApplication.Validate(); err != nil {
			return err
		}
	}
	_, err := lineAmount(r.Quantity, r.UnitPrice, r.Amount)
	return err
}

func (r *CreateInvoiceLineRequest) ToInvoiceLine(ctx context.Context, invoiceID string) (*invoice.InvoiceLine, error) {
	amount, err := lineAmount(r.Quantity, r.UnitPrice, r.Amount)
	if err != nil {
		return nil, err
	}
	return &invoice.InvoiceLine{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE),
		InvoiceID:      invoiceID,
		SubscriptionID: r.SubscriptionID,
		Description:    r.Description,
		Quantity:       types.RoundQuantity(r.Quantity),
		UnitPrice:      types.RoundMoney(r.UnitPrice),
		Amount:         amount,
		TaxRateID:      r.TaxRateID,
		TaxApplication: taxApplicationOrDefault(r.TaxApplication),
		PeriodStart:    r.PeriodStart,
		PeriodEnd:      r.PeriodEnd,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}, nil
}

// UpdateInvoiceRequest changes the mutable header fields of an invoice
type UpdateInvoiceRequest struct {
	InvoiceStatus      *types.InvoiceStatus `json:"invoice_status,omitempty"`
	DueAt              *time.Time           `json:"due_at,omitempty"`
	Memo               *string              `json:"memo,omitempty"`
	BillingPeriodStart *time.Time           `json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time           `json:"billing_period_end,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	if r.InvoiceStatus != nil {
		return r.InvoiceStatus.Validate()
	}
	return nil
}

// UpdateInvoiceLineRequest changes a line; the amount is re-derived when quantity or price change
type UpdateInvoiceLineRequest struct {
	Description    *string               `json:"description,omitempty"`
	Quantity       *decimal.Decimal      `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal      `json:"unit_price,omitempty"`
	Amount         *decimal.Decimal      `json:"amount,omitempty"`
	TaxRateID      *string               `json:"tax_rate_id,omitempty"`
	TaxApplication *types.TaxApplication `json:"tax_application,omitempty"`
}

func (r *UpdateInvoiceLineRequest) Validate() error {
	if r.TaxApplication != nil {
		return r.TaxApplication.Validate()
	}
	return nil
}

// InvoiceActionRequest carries the optional memo of a void or write-off
type InvoiceActionRequest struct {
	Memo *string `json:"memo,omitempty"`
}

// BulkInvoiceActionRequest voids or writes off several invoices at once
type BulkInvoiceActionRequest struct {
	InvoiceIDs []string `json:"invoice_ids" validate:"required,min=1"`
	Memo       *string  `json:"memo,omitempty"`
}

func (r *BulkInvoiceActionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type InvoiceLineResponse struct {
	*invoice.InvoiceLine
}

func NewInvoiceLineResponse(l *invoice.InvoiceLine) *InvoiceLineResponse {
	if l == nil {
		return nil
	}
	return &InvoiceLineResponse{InvoiceLine: l}
}

// InvoiceResponse is an invoice with its lines and the allocations paying it
type InvoiceResponse struct {
	*invoice.Invoice
	Allocations []*PaymentAllocationResponse `json:"allocations,omitempty"`
}

func NewInvoiceResponse(inv *invoice.Invoice) *InvoiceResponse {
	if inv == nil {
		return nil
	}
	return &InvoiceResponse{Invoice: inv}
}

// ListInvoicesResponse represents the response for listing invoices
type ListInvoicesResponse = types.ListResponse[*InvoiceResponse]

type ListInvoiceLinesResponse = types.ListResponse[*InvoiceLineResponse]

// lineAmount returns round(quantity * unit_price), rejecting a supplied amount that disagrees
func lineAmount(quantity, unitPrice decimal.Decimal, supplied *decimal.Decimal) (decimal.Decimal, error) {
	if quantity.IsNegative() {
		return decimal.Zero, ierr.NewError("quantity cannot be negative").
			WithHint("Line quantity cannot be negative").
			Mark(ierr.ErrValidation)
	}
	computed := types.RoundMoney(types.RoundQuantity(quantity).Mul(types.RoundMoney(unitPrice)))
	if supplied != nil && !types.RoundMoney(*supplied).Equal(computed) {
		return decimal.Zero, ierr.NewError("line amount does not match quantity times unit price").
			WithHint("Line amount must equal quantity multiplied by unit price").
			WithReportableDetails(map[string]any{
				"amount":   supplied.String(),
				"expected": computed.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return computed, nil
}

func taxApplicationOrDefault(t *types.TaxApplication) types.TaxApplication {
	if t == nil {
		return types.TaxApplicationExclusive
	}
	return *t
}
