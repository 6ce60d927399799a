package dto

import (
	"time"

	"github.com/flexprice/ispbilling/internal/domain/billingrun"
	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/types"
)

// RunInvoiceCycleRequest drives one recurring billing execution
type RunInvoiceCycleRequest struct {
	// RunAt is the reference time; now when omitted
	RunAt        *time.Time          `json:"run_at,omitempty"`
	BillingCycle *types.BillingCycle `json:"billing_cycle,omitempty"`
	DryRun       bool                `json:"dry_run"`
	// IncludePending and AutoActivatePending fall back to the billing configuration
	IncludePending      *bool `json:"include_pending,omitempty"`
	AutoActivatePending *bool `json:"auto_activate_pending,omitempty"`
}

func (r *RunInvoiceCycleRequest) Validate() error {
	if r.BillingCycle != nil {
		return r.BillingCycle.Validate()
	}
	return nil
}

// BillingRunSummary reports what a billing run did
type BillingRunSummary struct {
	BillingRunID         string                 `json:"billing_run_id"`
	RunStatus            types.BillingRunStatus `json:"run_status"`
	RunAt                time.Time              `json:"run_at"`
	DryRun               bool                   `json:"dry_run"`
	SubscriptionsScanned int                    `json:"subscriptions_scanned"`
	SubscriptionsBilled  int                    `json:"subscriptions_billed"`
	SubscriptionsSkipped int                    `json:"subscriptions_skipped"`
	InvoicesCreated      int                    `json:"invoices_created"`
	InvoiceIDs           []string               `json:"invoice_ids,omitempty"`
	Attempts             int                    `json:"attempts"`
}

func NewBillingRunSummary(run *billingrun.BillingRun, invoiceIDs []string) *BillingRunSummary {
	return &BillingRunSummary{
		BillingRunID:         run.ID,
		RunStatus:            run.RunStatus,
		RunAt:                run.RunAt,
		DryRun:               run.DryRun,
		SubscriptionsScanned: run.SubscriptionsScanned,
		SubscriptionsBilled:  run.SubscriptionsBilled,
		SubscriptionsSkipped: run.SubscriptionsSkipped,
		InvoicesCreated:      run.InvoicesCreated,
		InvoiceIDs:           invoiceIDs,
		Attempts:             run.Attempt,
	}
}

// GenerateProratedInvoiceRequest bills the partial period of a subscription activated mid-cycle
type GenerateProratedInvoiceRequest struct {
	SubscriptionID string     `json:"subscription_id" validate:"required"`
	ActivationDate *time.Time `json:"activation_date,omitempty"`
}

// ProratedInvoiceResponse is nil-invoice with a reason when nothing was billed
type ProratedInvoiceResponse struct {
	Invoice    *invoice.Invoice `json:"invoice,omitempty"`
	Skipped    bool             `json:"skipped"`
	SkipReason string           `json:"skip_reason,omitempty"`
}
