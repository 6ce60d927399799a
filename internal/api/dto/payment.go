package dto

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/flexprice/ispbilling/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest records money received from an account. Without explicit
// allocations the amount is spread over the account's open invoices, oldest due first.
type CreatePaymentRequest struct {
	AccountID           string                     `json:"account_id" validate:"required"`
	InvoiceID           *string                    `json:"invoice_id,omitempty"`
	PaymentMethodID     *string                    `json:"payment_method_id,omitempty"`
	PaymentChannelID    *string                    `json:"payment_channel_id,omitempty"`
	CollectionAccountID *string                    `json:"collection_account_id,omitempty"`
	ProviderID          *string                    `json:"provider_id,omitempty"`
	Amount              decimal.Decimal            `json:"amount"`
	Currency            string                     `json:"currency,omitempty"`
	PaymentStatus       *types.PaymentStatus       `json:"payment_status,omitempty"`
	PaidAt              *time.Time                 `json:"paid_at,omitempty"`
	ExternalID          *string                    `json:"external_id,omitempty"`
	Memo                *string                    `json:"memo,omitempty"`
	Allocations         []PaymentAllocationRequest `json:"allocations,omitempty" validate:"omitempty,dive"`
	// SkipAllocation stores the payment without touching invoices
	SkipAllocation bool `json:"skip_allocation,omitempty"`
}

func (r *CreatePaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"amount": r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if r.Currency != "" {
		if err := types.ValidateCurrencyCode(r.Currency); err != nil {
			return err
		}
	}
	if r.PaymentStatus != nil {
		if err := r.PaymentStatus.Validate(); err != nil {
			return err
		}
	}
	total := decimal.Zero
	for i := range r.Allocations {
		if err := r.Allocations[i].Validate(); err != nil {
			return err
		}
		total = total.Add(types.RoundMoney(r.Allocations[i].Amount))
	}
	if total.GreaterThan(types.RoundMoney(r.Amount)) {
		return ierr.NewError("allocations exceed payment amount").
			WithHint("Allocated amount exceeds the payment amount").
			WithReportableDetails(map[string]any{
				"allocated": total.String(),
				"amount":    r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	ids := lo.Map(r.Allocations, func(a PaymentAllocationRequest, _ int) string { return a.InvoiceID })
	if len(lo.Uniq(ids)) != len(ids) {
		return ierr.NewError("duplicate invoice in allocations").
			WithHint("Each invoice can appear only once in a payment's allocations").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreatePaymentRequest) ToPayment(ctx context.Context) *payment.Payment {
	status := types.PaymentStatusSucceeded
	if r.PaymentStatus != nil {
		status = *r.PaymentStatus
	}
	p := &payment.Payment{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		AccountID:           r.AccountID,
		InvoiceID:           r.InvoiceID,
		PaymentMethodID:     r.PaymentMethodID,
		PaymentChannelID:    r.PaymentChannelID,
		CollectionAccountID: r.CollectionAccountID,
		ProviderID:          r.ProviderID,
		Amount:              types.RoundMoney(r.Amount),
		RefundedAmount:      decimal.Zero,
		Currency:            types.NormalizeCurrency(r.Currency),
		PaymentStatus:       status,
		PaidAt:              r.PaidAt,
		ExternalID:          r.ExternalID,
		Memo:                r.Memo,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	if status == types.PaymentStatusSucceeded && p.PaidAt == nil {
		p.PaidAt = lo.ToPtr(time.Now().UTC())
	}
	return p
}

// PaymentAllocationRequest assigns part of a payment to one invoice
type PaymentAllocationRequest struct {
	InvoiceID string          `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r *PaymentAllocationRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("allocation amount must be positive").
			WithHint("Allocation amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreatePaymentAllocationRequest is the standalone allocation of an existing payment
type CreatePaymentAllocationRequest struct {
	PaymentID string          `json:"payment_id" validate:"required"`
	InvoiceID string          `json:"invoice_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

func (r *CreatePaymentAllocationRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("allocation amount must be positive").
			WithHint("Allocation amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type UpdatePaymentRequest struct {
	ExternalID *string `json:"external_id,omitempty"`
	Memo       *string `json:"memo,omitempty"`
}

type MarkPaymentStatusRequest struct {
	PaymentStatus types.PaymentStatus `json:"payment_status" validate:"required"`
	// At overrides the paid_at/failed_at timestamp
	At *time.Time `json:"at,omitempty"`
}

func (r *MarkPaymentStatusRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.PaymentStatus.Validate()
}

// RefundPaymentRequest refunds part or all of a payment; a nil amount refunds everything left
type RefundPaymentRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Memo   *string          `json:"memo,omitempty"`
	// CreateCreditNote overrides billing.create_refund_credit_note for this refund
	CreateCreditNote *bool `json:"create_credit_note,omitempty"`
}

func (r *RefundPaymentRequest) Validate() error {
	if r.Amount != nil && !r.Amount.IsPositive() {
		return ierr.NewError("refund amount must be positive").
			WithHint("Refund amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type ReversePaymentRequest struct {
	Memo *string `json:"memo,omitempty"`
}

type PaymentAllocationResponse struct {
	*payment.Allocation
}

func NewPaymentAllocationResponse(a *payment.Allocation) *PaymentAllocationResponse {
	if a == nil {
		return nil
	}
	return &PaymentAllocationResponse{Allocation: a}
}

type PaymentResponse struct {
	*payment.Payment
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{Payment: p}
}

// RefundResponse is the refunded payment, the refund posting and the optional mirror credit note
type RefundResponse struct {
	Payment     *PaymentResponse    `json:"payment"`
	LedgerEntry *ledger.Entry       `json:"ledger_entry"`
	CreditNote  *CreditNoteResponse `json:"credit_note,omitempty"`
}

// ListPaymentsResponse represents the response for listing payments
type ListPaymentsResponse = types.ListResponse[*PaymentResponse]

type ListPaymentAllocationsResponse = types.ListResponse[*PaymentAllocationResponse]
