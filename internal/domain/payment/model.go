package payment

import (
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

// Payment represents money received (or expected) from an account
type Payment struct {
	ID                  string              `db:"id" json:"id"`
	AccountID           string              `db:"account_id" json:"account_id"`
	InvoiceID           *string             `db:"invoice_id" json:"invoice_id,omitempty"`
	PaymentMethodID     *string             `db:"payment_method_id" json:"payment_method_id,omitempty"`
	PaymentChannelID    *string             `db:"payment_channel_id" json:"payment_channel_id,omitempty"`
	CollectionAccountID *string             `db:"collection_account_id" json:"collection_account_id,omitempty"`
	ProviderID          *string             `db:"provider_id" json:"provider_id,omitempty"`
	Amount              decimal.Decimal     `db:"amount" json:"amount"`
	RefundedAmount      decimal.Decimal     `db:"refunded_amount" json:"refunded_amount"`
	Currency            string              `db:"currency" json:"currency"`
	PaymentStatus       types.PaymentStatus `db:"payment_status" json:"payment_status"`
	PaidAt              *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	FailedAt            *time.Time          `db:"failed_at" json:"failed_at,omitempty"`
	ExternalID          *string             `db:"external_id" json:"external_id,omitempty"`
	Memo                *string             `db:"memo" json:"memo,omitempty"`
	Allocations         []*Allocation       `db:"-" json:"allocations,omitempty"`
	types.BaseModel
}

func (p *Payment) Validate() error {
	if p.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Payment must belong to an account").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]any{
				"amount": p.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if err := types.ValidateCurrencyCode(p.Currency); err != nil {
		return err
	}
	return p.PaymentStatus.Validate()
}

// Allocation assigns part of a payment to one invoice. At most one per (payment, invoice).
type Allocation struct {
	ID        string          `db:"id" json:"id"`
	PaymentID string          `db:"payment_id" json:"payment_id"`
	InvoiceID string          `db:"invoice_id" json:"invoice_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Currency  string          `db:"currency" json:"currency"`
	types.BaseModel
}

func (a *Allocation) Validate() error {
	if a.PaymentID == "" || a.InvoiceID == "" {
		return ierr.NewError("payment_id and invoice_id are required").
			WithHint("Allocation must reference a payment and an invoice").
			Mark(ierr.ErrValidation)
	}
	if !a.Amount.IsPositive() {
		return ierr.NewError("allocation amount must be positive").
			WithHint("Allocation amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}
