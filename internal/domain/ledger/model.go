package ledger

import (
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

// Entry is an append-only record of one money movement on an account
type Entry struct {
	ID           string                  `db:"id" json:"id"`
	AccountID    string                  `db:"account_id" json:"account_id"`
	InvoiceID    *string                 `db:"invoice_id" json:"invoice_id,omitempty"`
	PaymentID    *string                 `db:"payment_id" json:"payment_id,omitempty"`
	CreditNoteID *string                 `db:"credit_note_id" json:"credit_note_id,omitempty"`
	EntryType    types.LedgerEntryType   `db:"entry_type" json:"entry_type"`
	Source       types.LedgerEntrySource `db:"source" json:"source"`
	Amount       decimal.Decimal         `db:"amount" json:"amount"`
	Currency     string                  `db:"currency" json:"currency"`
	Memo         *string                 `db:"memo" json:"memo,omitempty"`
	types.BaseModel
}

func (e *Entry) Validate() error {
	if e.AccountID == "" {
		return ierr.NewError("account_id is required").
			WithHint("Ledger entry must belong to an account").
			Mark(ierr.ErrValidation)
	}
	if err := e.EntryType.Validate(); err != nil {
		return err
	}
	if err := e.Source.Validate(); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return ierr.NewError("ledger amount must be positive").
			WithHint("Ledger entries carry a positive amount; direction comes from the entry type").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Signed returns the amount as seen by the account: credits positive, debits negative
func (e *Entry) Signed() decimal.Decimal {
	if e.EntryType == types.LedgerEntryTypeDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}
