package types

import (
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// LedgerEntryType is the direction of a money movement on an account
type LedgerEntryType string

const (
	LedgerEntryTypeCredit LedgerEntryType = "credit"
	LedgerEntryTypeDebit  LedgerEntryType = "debit"
)

func (t LedgerEntryType) Validate() error {
	allowed := []LedgerEntryType{LedgerEntryTypeCredit, LedgerEntryTypeDebit}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid ledger entry type").
			WithHint("Please provide a valid ledger entry type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LedgerEntrySource names what caused a ledger posting
type LedgerEntrySource string

const (
	LedgerEntrySourcePayment    LedgerEntrySource = "payment"
	LedgerEntrySourceRefund     LedgerEntrySource = "refund"
	LedgerEntrySourceCreditNote LedgerEntrySource = "credit_note"
	LedgerEntrySourceAdjustment LedgerEntrySource = "adjustment"
)

func (s LedgerEntrySource) Validate() error {
	allowed := []LedgerEntrySource{
		LedgerEntrySourcePayment,
		LedgerEntrySourceRefund,
		LedgerEntrySourceCreditNote,
		LedgerEntrySourceAdjustment,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid ledger entry source").
			WithHint("Please provide a valid ledger entry source").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LedgerEntryFilter lists postings for an account, payment or invoice
type LedgerEntryFilter struct {
	*QueryFilter

	AccountID    string              `json:"account_id,omitempty" form:"account_id"`
	PaymentID    string              `json:"payment_id,omitempty" form:"payment_id"`
	InvoiceID    string              `json:"invoice_id,omitempty" form:"invoice_id"`
	CreditNoteID string              `json:"credit_note_id,omitempty" form:"credit_note_id"`
	EntryType    *LedgerEntryType    `json:"entry_type,omitempty" form:"entry_type"`
	Sources      []LedgerEntrySource `json:"sources,omitempty" form:"sources"`
	// Unallocated restricts the result to postings without an invoice
	Unallocated bool `json:"unallocated,omitempty" form:"unallocated"`
}

func NewLedgerEntryFilter() *LedgerEntryFilter {
	return &LedgerEntryFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *LedgerEntryFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.EntryType != nil {
		if err := f.EntryType.Validate(); err != nil {
			return err
		}
	}
	for _, s := range f.Sources {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
