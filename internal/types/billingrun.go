package types

// BillingRunStatus is the state of one recurring billing execution
type BillingRunStatus string

const (
	BillingRunStatusRunning BillingRunStatus = "running"
	BillingRunStatusSuccess BillingRunStatus = "success"
	BillingRunStatusFailed  BillingRunStatus = "failed"
)

var billingRunStatusTransitions = transitionTable[BillingRunStatus]{
	BillingRunStatusRunning: {BillingRunStatusSuccess, BillingRunStatusFailed},
	BillingRunStatusSuccess: {},
	BillingRunStatusFailed:  {},
}

func (s BillingRunStatus) ValidateTransition(next BillingRunStatus) error {
	return billingRunStatusTransitions.validate("billing run", s, next)
}

// BillingRunFilter lists billing runs
type BillingRunFilter struct {
	*QueryFilter

	RunStatus []BillingRunStatus `json:"run_status,omitempty" form:"run_status"`
}

func NewBillingRunFilter() *BillingRunFilter {
	return &BillingRunFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}
