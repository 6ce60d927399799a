package types

import (
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// PaymentStatus is the settlement state of a payment
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusSucceeded         PaymentStatus = "succeeded"
	PaymentStatusFailed            PaymentStatus = "failed"
	PaymentStatusRefunded          PaymentStatus = "refunded"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusCanceled          PaymentStatus = "canceled"
)

var paymentStatusTransitions = transitionTable[PaymentStatus]{
	PaymentStatusPending: {
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusCanceled,
	},
	PaymentStatusSucceeded: {
		PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded,
		PaymentStatusFailed,
	},
	PaymentStatusPartiallyRefunded: {
		PaymentStatusRefunded,
		PaymentStatusFailed,
	},
	PaymentStatusRefunded: {
		PaymentStatusFailed,
	},
	PaymentStatusFailed:   {},
	PaymentStatusCanceled: {},
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusSucceeded,
		PaymentStatusFailed,
		PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded,
		PaymentStatusCanceled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment status").
			WithHint("Please provide a valid payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return paymentStatusTransitions.allows(s, next)
}

func (s PaymentStatus) ValidateTransition(next PaymentStatus) error {
	return paymentStatusTransitions.validate("payment", s, next)
}

// IsAllocatable reports whether a payment in this state may be spread over invoices
func (s PaymentStatus) IsAllocatable() bool {
	return s == PaymentStatusPending || s == PaymentStatusSucceeded
}

// PaymentFilter represents the filter options for listing payments
type PaymentFilter struct {
	*QueryFilter
	*TimeRangeFilter

	PaymentIDs    []string        `json:"payment_ids,omitempty" form:"payment_ids"`
	AccountID     string          `json:"account_id,omitempty" form:"account_id"`
	InvoiceID     string          `json:"invoice_id,omitempty" form:"invoice_id"`
	ProviderID    string          `json:"provider_id,omitempty" form:"provider_id"`
	ExternalID    string          `json:"external_id,omitempty" form:"external_id"`
	PaymentStatus []PaymentStatus `json:"payment_status,omitempty" form:"payment_status"`
	Currency      string          `json:"currency,omitempty" form:"currency"`
}

func NewPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func NewNoLimitPaymentFilter() *PaymentFilter {
	return &PaymentFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *PaymentFilter) Validate() error {
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
	for _, s := range f.PaymentStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PaymentAllocationFilter lists allocations by payment and/or invoice
type PaymentAllocationFilter struct {
	*QueryFilter

	PaymentIDs []string `json:"payment_ids,omitempty" form:"payment_ids"`
	InvoiceIDs []string `json:"invoice_ids,omitempty" form:"invoice_ids"`
}

func NewPaymentAllocationFilter() *PaymentAllocationFilter {
	return &PaymentAllocationFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *PaymentAllocationFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	return f.QueryFilter.Validate()
}
