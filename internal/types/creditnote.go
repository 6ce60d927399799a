package types

import (
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// CreditNoteStatus is the lifecycle state of a credit note
type CreditNoteStatus string

const (
	CreditNoteStatusDraft            CreditNoteStatus = "draft"
	CreditNoteStatusIssued           CreditNoteStatus = "issued"
	CreditNoteStatusPartiallyApplied CreditNoteStatus = "partially_applied"
	CreditNoteStatusApplied          CreditNoteStatus = "applied"
	CreditNoteStatusVoid             CreditNoteStatus = "void"
)

var creditNoteStatusTransitions = transitionTable[CreditNoteStatus]{
	CreditNoteStatusDraft: {
		CreditNoteStatusIssued,
		CreditNoteStatusVoid,
	},
	CreditNoteStatusIssued: {
		CreditNoteStatusPartiallyApplied,
		CreditNoteStatusApplied,
		CreditNoteStatusVoid,
	},
	CreditNoteStatusPartiallyApplied: {
		CreditNoteStatusIssued,
		CreditNoteStatusApplied,
		CreditNoteStatusVoid,
	},
	CreditNoteStatusApplied: {
		CreditNoteStatusIssued,
		CreditNoteStatusPartiallyApplied,
	},
	CreditNoteStatusVoid: {},
}

func (s CreditNoteStatus) String() string {
	return string(s)
}

func (s CreditNoteStatus) Validate() error {
	allowed := []CreditNoteStatus{
		CreditNoteStatusDraft,
		CreditNoteStatusIssued,
		CreditNoteStatusPartiallyApplied,
		CreditNoteStatusApplied,
		CreditNoteStatusVoid,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid credit note status").
			WithHint("Please provide a valid credit note status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s CreditNoteStatus) CanTransitionTo(next CreditNoteStatus) bool {
	return creditNoteStatusTransitions.allows(s, next)
}

func (s CreditNoteStatus) ValidateTransition(next CreditNoteStatus) error {
	return creditNoteStatusTransitions.validate("credit note", s, next)
}

// IsApplicable reports whether credit can be drawn from a note in this state
func (s CreditNoteStatus) IsApplicable() bool {
	return s != CreditNoteStatusDraft && s != CreditNoteStatusVoid
}

// CreditNoteFilter represents the filter options for listing credit notes
type CreditNoteFilter struct {
	*QueryFilter
	*TimeRangeFilter

	CreditNoteIDs    []string           `json:"credit_note_ids,omitempty" form:"credit_note_ids"`
	AccountID        string             `json:"account_id,omitempty" form:"account_id"`
	InvoiceID        string             `json:"invoice_id,omitempty" form:"invoice_id"`
	CreditNoteStatus []CreditNoteStatus `json:"credit_note_status,omitempty" form:"credit_note_status"`
}

func NewCreditNoteFilter() *CreditNoteFilter {
	return &CreditNoteFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func NewNoLimitCreditNoteFilter() *CreditNoteFilter {
	return &CreditNoteFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *CreditNoteFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}
	for _, s := range f.CreditNoteStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreditNoteLineFilter lists the lines of one or more credit notes
type CreditNoteLineFilter struct {
	*QueryFilter

	CreditNoteIDs []string `json:"credit_note_ids,omitempty" form:"credit_note_ids"`
}

func NewCreditNoteLineFilter() *CreditNoteLineFilter {
	return &CreditNoteLineFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *CreditNoteLineFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	return f.QueryFilter.Validate()
}

// CreditNoteApplicationFilter lists application events by credit note or invoice
type CreditNoteApplicationFilter struct {
	*QueryFilter

	CreditNoteID string `json:"credit_note_id,omitempty" form:"credit_note_id"`
	InvoiceID    string `json:"invoice_id,omitempty" form:"invoice_id"`
}

func NewCreditNoteApplicationFilter() *CreditNoteApplicationFilter {
	return &CreditNoteApplicationFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *CreditNoteApplicationFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	return f.QueryFilter.Validate()
}
