package creditnote

import (
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

// CreditNote is credit issued to an account, drawable against its invoices up to Total
type CreditNote struct {
	ID               string                 `db:"id" json:"id"`
	AccountID        string                 `db:"account_id" json:"account_id"`
	InvoiceID        *string                `db:"invoice_id" json:"invoice_id,omitempty"`
	PaymentID        *string                `db:"payment_id" json:"payment_id,omitempty"`
	CreditNoteNumber *string                `db:"credit_note_number" json:"credit_note_number,omitempty"`
	CreditNoteStatus types.CreditNoteStatus `db:"credit_note_status" json:"credit_note_status"`
	Currency         string                 `db:"currency" json:"currency"`
	Subtotal         decimal.Decimal        `db:"subtotal" json:"subtotal"`
	TaxTotal         decimal.Decimal        `db:"tax_total" json:"tax_total"`
	Total            decimal.Decimal        `db:"total" json:"total"`
	AppliedTotal     decimal.Decimal        `db:"applied_total" json:"applied_total"`
	Memo             *string                `db:"memo" json:"memo,omitempty"`
	IssuedAt         *time.Time             `db:"issued_at" json:"issued_at,omitempty"`
	VoidedAt         *time.Time             `db:"voided_at" json:"voided_at,omitempty"`
	Lines            []*CreditNoteLine      `db:"-" json:"lines,omitempty"`
	types.BaseModel
}

// Remaining is the credit still available to apply
func (c *CreditNote) Remaining() decimal.Decimal {
	return types.RoundMoney(c.Total.Sub(c.AppliedTotal))
}

func (c *CreditNote) Validate() error {
	if c.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Credit note must belong to an account").
			Mark(ierr.ErrValidation)
	}
	if err := c.CreditNoteStatus.Validate(); err != nil {
		return err
	}
	if err := types.ValidateCurrencyCode(c.Currency); err != nil {
		return err
	}
	if c.Subtotal.IsNegative() || c.TaxTotal.IsNegative() || c.Total.IsNegative() || c.AppliedTotal.IsNegative() {
		return ierr.NewError("credit note amounts cannot be negative").
			WithHint("Credit note amounts cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if c.Subtotal.Add(c.TaxTotal).GreaterThan(c.Total) {
		return ierr.NewError("subtotal plus tax exceeds total").
			WithHint("Subtotal plus tax total cannot exceed the credit note total").
			Mark(ierr.ErrValidation)
	}
	if c.AppliedTotal.GreaterThan(c.Total) {
		return ierr.NewError("applied total exceeds total").
			WithHint("Applied total exceeds credit note total").
			WithReportableDetails(map[string]any{
				"applied_total": c.AppliedTotal.String(),
				"total":         c.Total.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreditNoteLine is one credited item on a credit note
type CreditNoteLine struct {
	ID             string               `db:"id" json:"id"`
	CreditNoteID   string               `db:"credit_note_id" json:"credit_note_id"`
	Description    string               `db:"description" json:"description"`
	Quantity       decimal.Decimal      `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal      `db:"unit_price" json:"unit_price"`
	Amount         decimal.Decimal      `db:"amount" json:"amount"`
	TaxRateID      *string              `db:"tax_rate_id" json:"tax_rate_id,omitempty"`
	TaxApplication types.TaxApplication `db:"tax_application" json:"tax_application"`
	types.BaseModel
}

func (l *CreditNoteLine) Validate() error {
	if l.CreditNoteID == "" {
		return ierr.NewError("credit_note_id is required").
			WithHint("Credit note line must belong to a credit note").
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
	return nil
}

// Application records one draw of credit from a note onto an invoice. Rows are append-only.
type Application struct {
	ID           string          `db:"id" json:"id"`
	CreditNoteID string          `db:"credit_note_id" json:"credit_note_id"`
	InvoiceID    string          `db:"invoice_id" json:"invoice_id"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Currency     string          `db:"currency" json:"currency"`
	AppliedAt    time.Time       `db:"applied_at" json:"applied_at"`
	types.BaseModel
}
