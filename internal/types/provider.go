package types

import (
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// ProviderEventType is the normalized kind of an inbound gateway event
type ProviderEventType string

const (
	ProviderEventTypePaymentPending   ProviderEventType = "payment.pending"
	ProviderEventTypePaymentSucceeded ProviderEventType = "payment.succeeded"
	ProviderEventTypePaymentFailed    ProviderEventType = "payment.failed"
	ProviderEventTypePaymentRefunded  ProviderEventType = "payment.refunded"
	ProviderEventTypePaymentCanceled  ProviderEventType = "payment.canceled"
	ProviderEventTypePaymentUpdated   ProviderEventType = "payment.updated"
)

var providerEventTerminalStatus = map[ProviderEventType]PaymentStatus{
	ProviderEventTypePaymentSucceeded: PaymentStatusSucceeded,
	ProviderEventTypePaymentFailed:    PaymentStatusFailed,
	ProviderEventTypePaymentRefunded:  PaymentStatusRefunded,
	ProviderEventTypePaymentCanceled:  PaymentStatusCanceled,
}

func (t ProviderEventType) String() string {
	return string(t)
}

func (t ProviderEventType) Validate() error {
	allowed := []ProviderEventType{
		ProviderEventTypePaymentPending,
		ProviderEventTypePaymentSucceeded,
		ProviderEventTypePaymentFailed,
		ProviderEventTypePaymentRefunded,
		ProviderEventTypePaymentCanceled,
		ProviderEventTypePaymentUpdated,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid provider event type").
			WithHint("Please provide a valid provider event type").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TerminalPaymentStatus returns the payment status this event drives, if any
func (t ProviderEventType) TerminalPaymentStatus() (PaymentStatus, bool) {
	s, ok := providerEventTerminalStatus[t]
	return s, ok
}

// ProviderEventStatus records how far an inbound event got
type ProviderEventStatus string

const (
	ProviderEventStatusReceived  ProviderEventStatus = "received"
	ProviderEventStatusProcessed ProviderEventStatus = "processed"
	ProviderEventStatusFailed    ProviderEventStatus = "failed"
)

// ProviderEventFilter lists provider events
type ProviderEventFilter struct {
	*QueryFilter

	ProviderID string                `json:"provider_id,omitempty" form:"provider_id"`
	PaymentID  string                `json:"payment_id,omitempty" form:"payment_id"`
	Statuses   []ProviderEventStatus `json:"statuses,omitempty" form:"statuses"`
}

func NewProviderEventFilter() *ProviderEventFilter {
	return &ProviderEventFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func (f *ProviderEventFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	return f.QueryFilter.Validate()
}
