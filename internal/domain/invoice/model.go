package invoice

import (
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice represents the invoice domain model
type Invoice struct {
	ID                 string              `db:"id" json:"id"`
	AccountID          string              `db:"account_id" json:"account_id"`
	InvoiceNumber      *string             `db:"invoice_number" json:"invoice_number,omitempty"`
	InvoiceStatus      types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	Currency           string              `db:"currency" json:"currency"`
	Subtotal           decimal.Decimal     `db:"subtotal" json:"subtotal"`
	TaxTotal           decimal.Decimal     `db:"tax_total" json:"tax_total"`
	Total              decimal.Decimal     `db:"total" json:"total"`
	AmountPaid         decimal.Decimal     `db:"amount_paid" json:"amount_paid"`
	AmountCredited     decimal.Decimal     `db:"amount_credited" json:"amount_credited"`
	BalanceDue         decimal.Decimal     `db:"balance_due" json:"balance_due"`
	BillingPeriodStart *time.Time          `db:"billing_period_start" json:"billing_period_start,omitempty"`
	BillingPeriodEnd   *time.Time          `db:"billing_period_end" json:"billing_period_end,omitempty"`
	IssuedAt           *time.Time          `db:"issued_at" json:"issued_at,omitempty"`
	DueAt              *time.Time          `db:"due_at" json:"due_at,omitempty"`
	PaidAt             *time.Time          `db:"paid_at" json:"paid_at,omitempty"`
	VoidedAt           *time.Time          `db:"voided_at" json:"voided_at,omitempty"`
	Memo               *string             `db:"memo" json:"memo,omitempty"`
	IdempotencyKey     *string             `db:"idempotency_key" json:"idempotency_key,omitempty"`
	BillingRunID       *string             `db:"billing_run_id" json:"billing_run_id,omitempty"`
	Lines              []*InvoiceLine      `db:"-" json:"lines,omitempty"`
	types.BaseModel
}

// Validate checks the monetary invariants of the stored totals
func (i *Invoice) Validate() error {
	if i.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Invoice must belong to an account").
			Mark(ierr.ErrValidation)
	}
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if err := types.ValidateCurrencyCode(i.Currency); err != nil {
		return err
	}

	amounts := []struct {
		field  string
		amount decimal.Decimal
	}{
		{"subtotal", i.Subtotal},
		{"tax_total", i.TaxTotal},
		{"total", i.Total},
		{"balance_due", i.BalanceDue},
	}
	for _, a := range amounts {
		if a.amount.IsNegative() {
			return ierr.NewErrorf("%s cannot be negative", a.field).
				WithHintf("Invoice %s cannot be negative", a.field).
				WithReportableDetails(map[string]any{
					a.field: a.amount.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	}

	if i.Subtotal.Add(i.TaxTotal).GreaterThan(i.Total) {
		return ierr.NewError("subtotal plus tax exceeds total").
			WithHint("Subtotal plus tax total cannot exceed the invoice total").
			WithReportableDetails(map[string]any{
				"subtotal":  i.Subtotal.String(),
				"tax_total": i.TaxTotal.String(),
				"total":     i.Total.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	if i.BalanceDue.GreaterThan(i.Total) {
		return ierr.NewError("balance due exceeds total").
			WithHint("Balance due cannot exceed the invoice total").
			WithReportableDetails(map[string]any{
				"balance_due": i.BalanceDue.String(),
				"total":       i.Total.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsVoid reports whether the invoice has been voided or written off
func (i *Invoice) IsVoid() bool {
	return i.InvoiceStatus == types.InvoiceStatusVoid
}

// InvoiceLine is a single charge on an invoice
type InvoiceLine struct {
	ID             string               `db:"id" json:"id"`
	InvoiceID      string               `db:"invoice_id" json:"invoice_id"`
	SubscriptionID *string              `db:"subscription_id" json:"subscription_id,omitempty"`
	Description    string               `db:"description" json:"description"`
	Quantity       decimal.Decimal      `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal      `db:"unit_price" json:"unit_price"`
	Amount         decimal.Decimal      `db:"amount" json:"amount"`
	TaxRateID      *string              `db:"tax_rate_id" json:"tax_rate_id,omitempty"`
	TaxApplication types.TaxApplication `db:"tax_application" json:"tax_application"`
	PeriodStart    *time.Time           `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd      *time.Time           `db:"period_end" json:"period_end,omitempty"`
	types.BaseModel
}

// Validate checks that the line amount agrees with quantity x unit price
func (l *InvoiceLine) Validate() error {
	if l.InvoiceID == "" {
		return ierr.NewError("invoice_id is required").
			WithHint("Invoice line must belong to an invoice").
			Mark(ierr.ErrValidation)
	}
	if err := l.TaxApplication.Validate(); err != nil {
		return err
	}
	if l.Quantity.IsNegative() {
		return ierr.NewError("quantity cannot be negative").
			WithHint("Line quantity cannot be negative").
			Mark(ierr.ErrValidation)
	}
	expected := types.RoundMoney(l.Quantity.Mul(l.UnitPrice))
	if !l.Amount.Equal(expected) {
		return ierr.NewError("line amount does not match quantity times unit price").
			WithHint("Line amount must equal quantity multiplied by unit price").
			WithReportableDetails(map[string]any{
				"amount":   l.Amount.String(),
				"expected": expected.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if l.PeriodStart != nil && l.PeriodEnd != nil && !l.PeriodEnd.After(*l.PeriodStart) {
		return ierr.NewError("period_end must be after period_start").
			WithHint("Line service period end must be after its start").
			Mark(ierr.ErrValidation)
	}
	return nil
}
