package billingrun

import (
	"time"

	"github.com/flexprice/ispbilling/internal/types"
)

// BillingRun records one execution of the recurring invoice cycle
type BillingRun struct {
	ID                   string                 `db:"id" json:"id"`
	RunStatus            types.BillingRunStatus `db:"run_status" json:"run_status"`
	RunAt                time.Time              `db:"run_at" json:"run_at"`
	BillingCycle         *types.BillingCycle    `db:"billing_cycle" json:"billing_cycle,omitempty"`
	DryRun               bool                   `db:"dry_run" json:"dry_run"`
	IncludePending       bool                   `db:"include_pending" json:"include_pending"`
	AutoActivatePending  bool                   `db:"auto_activate_pending" json:"auto_activate_pending"`
	SubscriptionsScanned int                    `db:"subscriptions_scanned" json:"subscriptions_scanned"`
	SubscriptionsBilled  int                    `db:"subscriptions_billed" json:"subscriptions_billed"`
	SubscriptionsSkipped int                    `db:"subscriptions_skipped" json:"subscriptions_skipped"`
	InvoicesCreated      int                    `db:"invoices_created" json:"invoices_created"`
	Attempt              int                    `db:"attempt" json:"attempt"`
	StartedAt            time.Time              `db:"started_at" json:"started_at"`
	FinishedAt           *time.Time             `db:"finished_at" json:"finished_at,omitempty"`
	Error                *string                `db:"error" json:"error,omitempty"`
	types.BaseModel
}
