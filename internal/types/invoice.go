package types

import (
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusIssued        InvoiceStatus = "issued"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

var invoiceStatusTransitions = transitionTable[InvoiceStatus]{
	InvoiceStatusDraft: {
		InvoiceStatusIssued,
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusVoid,
	},
	InvoiceStatusIssued: {
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusVoid,
	},
	InvoiceStatusOverdue: {
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusVoid,
	},
	InvoiceStatusPartiallyPaid: {
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusVoid,
	},
	InvoiceStatusPaid: {
		InvoiceStatusVoid,
	},
	InvoiceStatusVoid: {},
}

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusIssued,
		InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusVoid,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CanTransitionTo reports whether the invoice may move to next
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	return invoiceStatusTransitions.allows(s, next)
}

// ValidateTransition returns a validation error when s -> next is not allowed
func (s InvoiceStatus) ValidateTransition(next InvoiceStatus) error {
	return invoiceStatusTransitions.validate("invoice", s, next)
}

// IsOpen reports whether the invoice can still receive payments in auto-allocation
func (s InvoiceStatus) IsOpen() bool {
	return lo.Contains(OpenInvoiceStatuses, s)
}

// OpenInvoiceStatuses are the statuses that auto-allocation considers
var OpenInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusIssued,
	InvoiceStatusPartiallyPaid,
	InvoiceStatusOverdue,
}

// InvoiceFilter represents the filter options for listing invoices
type InvoiceFilter struct {
	*QueryFilter
	*TimeRangeFilter

	InvoiceIDs    []string        `json:"invoice_ids,omitempty" form:"invoice_ids"`
	AccountID     string          `json:"account_id,omitempty" form:"account_id"`
	InvoiceStatus []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	Currency      string          `json:"currency,omitempty" form:"currency"`
	BillingRunID  string          `json:"billing_run_id,omitempty" form:"billing_run_id"`
	// Outstanding restricts the result to invoices with balance_due > 0
	Outstanding bool `json:"outstanding,omitempty" form:"outstanding"`
}

// NewInvoiceFilter creates a new invoice filter with default options
func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitInvoiceFilter creates a new invoice filter without pagination
func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the invoice filter
func (f *InvoiceFilter) Validate() error {
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
	for _, s := range f.InvoiceStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InvoiceLineFilter represents the filter options for listing invoice lines
type InvoiceLineFilter struct {
	*QueryFilter

	InvoiceIDs     []string   `json:"invoice_ids,omitempty" form:"invoice_ids"`
	SubscriptionID string     `json:"subscription_id,omitempty" form:"subscription_id"`
	PeriodStart    *time.Time `json:"period_start,omitempty" form:"period_start"`
	PeriodEnd      *time.Time `json:"period_end,omitempty" form:"period_end"`
}

// NewInvoiceLineFilter creates a line filter without pagination; lines are always read in full
func NewInvoiceLineFilter() *InvoiceLineFilter {
	return &InvoiceLineFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *InvoiceLineFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	return f.QueryFilter.Validate()
}
