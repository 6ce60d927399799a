package types

import (
	"time"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// BillingCycle is the recurrence unit of a subscription's invoicing period
type BillingCycle string

const (
	BillingCycleDaily   BillingCycle = "daily"
	BillingCycleWeekly  BillingCycle = "weekly"
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

func (c BillingCycle) String() string {
	return string(c)
}

func (c BillingCycle) Validate() error {
	allowed := []BillingCycle{
		BillingCycleDaily,
		BillingCycleWeekly,
		BillingCycleMonthly,
		BillingCycleAnnual,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid billing cycle").
			WithHint("Billing cycle must be one of daily, weekly, monthly or annual").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PeriodEnd returns the end of the billing period that starts at start.
// Monthly and annual cycles add calendar months with the day of month clamped.
func (c BillingCycle) PeriodEnd(start time.Time) time.Time {
	switch c {
	case BillingCycleDaily:
		return start.AddDate(0, 0, 1)
	case BillingCycleWeekly:
		return start.AddDate(0, 0, 7)
	case BillingCycleAnnual:
		return AddClampedMonths(start, 1, 0)
	default:
		return AddClampedMonths(start, 0, 1)
	}
}

// PeriodStart returns the start of the billing period that ends at end.
func (c BillingCycle) PeriodStart(end time.Time) time.Time {
	switch c {
	case BillingCycleDaily:
		return end.AddDate(0, 0, -1)
	case BillingCycleWeekly:
		return end.AddDate(0, 0, -7)
	case BillingCycleAnnual:
		return AddClampedMonths(end, -1, 0)
	default:
		return AddClampedMonths(end, 0, -1)
	}
}

// CalendarPeriodStart returns the start of the calendar-aligned period
// (day, ISO week starting Monday, month, year) that contains t.
func (c BillingCycle) CalendarPeriodStart(t time.Time) time.Time {
	day := StartOfDay(t)
	switch c {
	case BillingCycleDaily:
		return day
	case BillingCycleWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case BillingCycleAnnual:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	}
}

// SubscriptionStatus is the lifecycle state of a subscriber's service
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCanceled  SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusPending,
		SubscriptionStatusActive,
		SubscriptionStatusSuspended,
		SubscriptionStatusCanceled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Please provide a valid subscription status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SubscriptionFilter selects subscriptions for billing runs
type SubscriptionFilter struct {
	*QueryFilter

	SubscriptionIDs    []string             `json:"subscription_ids,omitempty" form:"subscription_ids"`
	AccountID          string               `json:"account_id,omitempty" form:"account_id"`
	SubscriptionStatus []SubscriptionStatus `json:"subscription_status,omitempty" form:"subscription_status"`
}

func NewNoLimitSubscriptionFilter() *SubscriptionFilter {
	return &SubscriptionFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *SubscriptionFilter) Validate() error {
	if f == nil {
		return nil
	}
	f.QueryFilter = ensureQueryFilter(f.QueryFilter)
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	for _, s := range f.SubscriptionStatus {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// AccountStatus is the state of a subscriber account
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
)
