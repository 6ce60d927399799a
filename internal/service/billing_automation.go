package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/billingrun"
	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/domain/subscription"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/idempotency"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// BillingAutomationService runs the recurring invoice cycle
type BillingAutomationService interface {
	// RunInvoiceCycle bills every due subscription in one atomic unit recorded as a BillingRun
	RunInvoiceCycle(ctx context.Context, req dto.RunInvoiceCycleRequest) (*dto.BillingRunSummary, error)

	// RunInvoiceCycleWithRetry re-runs the whole cycle after transient failures
	RunInvoiceCycleWithRetry(ctx context.Context, req dto.RunInvoiceCycleRequest) (*dto.BillingRunSummary, error)

	GenerateProratedInvoice(ctx context.Context, req dto.GenerateProratedInvoiceRequest) (*dto.ProratedInvoiceResponse, error)

	GetBillingRun(ctx context.Context, id string) (*billingrun.BillingRun, error)
	ListBillingRuns(ctx context.Context, filter *types.BillingRunFilter) ([]*billingrun.BillingRun, error)
}

type billingAutomationService struct {
	ServiceParams
	invoiceService InvoiceService
	idempGen       *idempotency.Generator
}

// errDryRun rolls back a dry run after all of its work is done
var errDryRun = errors.New("dry run rollback")

func NewBillingAutomationService(params ServiceParams) BillingAutomationService {
	return &billingAutomationService{
		ServiceParams:  params,
		invoiceService: NewInvoiceService(params),
		idempGen:       idempotency.NewGenerator(),
	}
}

func (s *billingAutomationService) RunInvoiceCycle(ctx context.Context, req dto.RunInvoiceCycleRequest) (*dto.BillingRunSummary, error) {
	return s.runInvoiceCycle(ctx, req, 1)
}

func (s *billingAutomationService) RunInvoiceCycleWithRetry(ctx context.Context, req dto.RunInvoiceCycleRequest) (*dto.BillingRunSummary, error) {
	if req.RunAt == nil {
		// pin the reference time so every attempt bills the same periods
		req.RunAt = lo.ToPtr(time.Now().UTC())
	}

	var (
		summary *dto.BillingRunSummary
		attempt int
	)
	operation := func() error {
		attempt++
		var err error
		summary, err = s.runInvoiceCycle(ctx, req, attempt)
		if err == nil {
			return nil
		}
		if !ierr.IsTransient(err) {
			return backoff.Permanent(err)
		}
		s.Logger.Warnw("billing run failed with a transient error, retrying",
			"attempt", attempt,
			"max_attempts", s.Config.Billing.RetryAttempts,
			"error", err,
		)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(s.Config.Billing.RetryDelay),
			uint64(max(s.Config.Billing.RetryAttempts-1, 0)),
		),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return summary, nil
}

type cycleResult struct {
	scanned    int
	billed     int
	skipped    int
	created    []string
	touched    []string
	invoiceFor map[string]string
}

func (s *billingAutomationService) runInvoiceCycle(ctx context.Context, req dto.RunInvoiceCycleRequest, attempt int) (*dto.BillingRunSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run := &billingrun.BillingRun{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_RUN),
		RunStatus:           types.BillingRunStatusRunning,
		RunAt:               lo.FromPtrOr(req.RunAt, now).UTC(),
		BillingCycle:        req.BillingCycle,
		DryRun:              req.DryRun,
		IncludePending:      lo.FromPtrOr(req.IncludePending, s.Config.Billing.IncludePending),
		AutoActivatePending: lo.FromPtrOr(req.AutoActivatePending, s.Config.Billing.AutoActivatePending),
		Attempt:             attempt,
		StartedAt:           now,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	if err := s.BillingRunRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	span, ctx := s.Sentry.StartBillingRunSpan(ctx, run.ID, run.DryRun)
	if span != nil {
		defer span.Finish()
	}

	s.Logger.Infow("billing run started",
		"billing_run_id", run.ID,
		"run_at", run.RunAt,
		"dry_run", run.DryRun,
		"include_pending", run.IncludePending,
		"auto_activate_pending", run.AutoActivatePending,
		"attempt", attempt,
	)

	var result *cycleResult
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.invoiceCycle(ctx, run)
		if err != nil {
			return err
		}
		if run.DryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		err = nil
	}
	if err != nil {
		s.failRun(ctx, run, err)
		return nil, err
	}

	finished := time.Now().UTC()
	run.RunStatus = types.BillingRunStatusSuccess
	run.SubscriptionsScanned = result.scanned
	run.SubscriptionsBilled = result.billed
	run.SubscriptionsSkipped = result.skipped
	run.InvoicesCreated = len(result.created)
	run.FinishedAt = &finished
	run.UpdatedAt = finished
	if err := s.BillingRunRepo.Update(ctx, run); err != nil {
		return nil, err
	}

	s.Logger.Infow("billing run finished",
		"billing_run_id", run.ID,
		"dry_run", run.DryRun,
		"scanned", run.SubscriptionsScanned,
		"billed", run.SubscriptionsBilled,
		"skipped", run.SubscriptionsSkipped,
		"invoices_created", run.InvoicesCreated,
		"duration_ms", finished.Sub(now).Milliseconds(),
	)

	invoiceIDs := result.created
	if run.DryRun {
		invoiceIDs = nil
	}
	return dto.NewBillingRunSummary(run, invoiceIDs), nil
}

// failRun persists the failure on the run record before the error is re-raised
func (s *billingAutomationService) failRun(ctx context.Context, run *billingrun.BillingRun, cause error) {
	finished := time.Now().UTC()
	run.RunStatus = types.BillingRunStatusFailed
	run.Error = lo.ToPtr(cause.Error())
	run.FinishedAt = &finished
	run.UpdatedAt = finished

	s.Logger.Errorw("billing run failed",
		"billing_run_id", run.ID,
		"attempt", run.Attempt,
		"error", cause,
	)
	s.Sentry.CaptureExceptionWithTags(cause, map[string]string{
		"billing_run_id": run.ID,
		"dry_run":        fmt.Sprint(run.DryRun),
	})

	if err := s.BillingRunRepo.Update(ctx, run); err != nil {
		s.Logger.Errorw("failed to record billing run failure",
			"billing_run_id", run.ID,
			"error", err,
		)
	}
}

// invoiceCycle does the work of one run inside the caller's transaction
func (s *billingAutomationService) invoiceCycle(ctx context.Context, run *billingrun.BillingRun) (*cycleResult, error) {
	statuses := []types.SubscriptionStatus{types.SubscriptionStatusActive}
	if run.IncludePending {
		statuses = append(statuses, types.SubscriptionStatusPending)
	}
	filter := types.NewNoLimitSubscriptionFilter()
	filter.SubscriptionStatus = statuses

	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &cycleResult{invoiceFor: make(map[string]string)}
	for _, sub := range subs {
		pricing, ok, err := s.resolvePricing(ctx, sub)
		if err != nil {
			return nil, err
		}
		if run.BillingCycle != nil && (!ok || pricing.BillingCycle != *run.BillingCycle) {
			continue
		}

		result.scanned++
		billed, err := s.billSubscription(ctx, run, sub, pricing, ok, result)
		if err != nil {
			s.Logger.Errorw("failed to bill subscription",
				"billing_run_id", run.ID,
				"subscription_id", sub.ID,
				"error", err,
			)
			return nil, err
		}
		if billed {
			result.billed++
		} else {
			result.skipped++
		}
	}

	result.touched = lo.Uniq(result.touched)
	for _, id := range result.touched {
		if _, err := s.invoiceService.RecomputeTotals(ctx, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// billSubscription bills one period of a subscription. It reports false for every skip.
func (s *billingAutomationService) billSubscription(
	ctx context.Context,
	run *billingrun.BillingRun,
	sub *subscription.Subscription,
	pricing subscription.Pricing,
	priced bool,
	result *cycleResult,
) (bool, error) {
	skip := func(reason string) (bool, error) {
		s.Logger.Debugw("subscription skipped",
			"billing_run_id", run.ID,
			"subscription_id", sub.ID,
			"reason", reason,
		)
		return false, nil
	}

	if !priced {
		return skip("no price")
	}

	acct, err := s.AccountRepo.Get(ctx, sub.AccountID)
	if err != nil {
		return false, err
	}
	if !acct.IsActive() {
		return skip("account not active")
	}

	periodStart := run.RunAt
	switch {
	case sub.NextBillingAt != nil:
		periodStart = sub.NextBillingAt.UTC()
	case !sub.StartAt.IsZero():
		periodStart = sub.StartAt.UTC()
	}
	periodEnd := pricing.BillingCycle.PeriodEnd(periodStart)

	if periodStart.After(run.RunAt) {
		return skip("period not started")
	}
	if sub.EndAt != nil && !sub.EndAt.After(periodStart) {
		return skip("subscription ended")
	}

	amount := ProrateAmount(pricing.Price, periodStart, periodEnd, sub.StartAt, sub.EndAt)
	if !amount.IsPositive() {
		return skip("nothing to charge")
	}

	_, err = s.InvoiceLineRepo.FindForSubscriptionPeriod(ctx, sub.ID, periodStart, periodEnd)
	if err == nil {
		if sub.NextBillingAt == nil || !sub.NextBillingAt.Equal(periodEnd) {
			sub.NextBillingAt = &periodEnd
			if err := s.updateSubscription(ctx, sub); err != nil {
				return false, err
			}
		}
		return skip("period already billed")
	}
	if !ierr.IsNotFound(err) {
		return false, err
	}

	invoiceID, err := s.runInvoice(ctx, run, sub.AccountID, pricing.Currency, periodStart, periodEnd, result)
	if err != nil {
		return false, err
	}

	line := &invoice.InvoiceLine{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE),
		InvoiceID:      invoiceID,
		SubscriptionID: lo.ToPtr(sub.ID),
		Description:    s.lineDescription(ctx, sub, periodStart, periodEnd, !amount.Equal(pricing.Price)),
		Quantity:       decimal.NewFromInt(1),
		UnitPrice:      amount,
		Amount:         amount,
		TaxApplication: types.TaxApplicationExclusive,
		PeriodStart:    &periodStart,
		PeriodEnd:      &periodEnd,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := line.Validate(); err != nil {
		return false, err
	}
	if err := s.InvoiceLineRepo.Create(ctx, line); err != nil {
		return false, err
	}
	result.touched = append(result.touched, invoiceID)

	sub.NextBillingAt = &periodEnd
	if sub.SubscriptionStatus == types.SubscriptionStatusPending && run.AutoActivatePending {
		now := time.Now().UTC()
		sub.SubscriptionStatus = types.SubscriptionStatusActive
		sub.ActivatedAt = &now
		s.notifyAfterCommit(ctx, types.NotificationEventSubscriptionActivated, sub.AccountID, lo.ToPtr(invoiceID), nil,
			map[string]interface{}{
				"subscription_id": sub.ID,
				"billing_run_id":  run.ID,
				"billed_by_run":   true,
			})
	}
	if err := s.updateSubscription(ctx, sub); err != nil {
		return false, err
	}

	s.Logger.Debugw("subscription billed",
		"billing_run_id", run.ID,
		"subscription_id", sub.ID,
		"invoice_id", invoiceID,
		"period_start", periodStart,
		"period_end", periodEnd,
		"amount", amount,
	)
	return true, nil
}

// runInvoice finds or creates the single invoice of this run for (account, currency, period)
func (s *billingAutomationService) runInvoice(
	ctx context.Context,
	run *billingrun.BillingRun,
	accountID, currency string,
	periodStart, periodEnd time.Time,
	result *cycleResult,
) (string, error) {
	groupKey := strings.Join([]string{
		accountID,
		currency,
		periodStart.Format(time.RFC3339),
		periodEnd.Format(time.RFC3339),
	}, "|")
	if id, ok := result.invoiceFor[groupKey]; ok {
		return id, nil
	}

	key := s.idempGen.GenerateKey(idempotency.ScopeBillingRunInvoice, map[string]interface{}{
		"account_id":   accountID,
		"currency":     currency,
		"period_start": periodStart.Format(time.RFC3339),
		"period_end":   periodEnd.Format(time.RFC3339),
		"run_id":       run.ID,
	})

	inv, err := s.invoiceService.CreateInvoice(ctx, dto.CreateInvoiceRequest{
		AccountID:          accountID,
		Currency:           currency,
		BillingPeriodStart: &periodStart,
		BillingPeriodEnd:   &periodEnd,
		IdempotencyKey:     &key,
		BillingRunID:       lo.ToPtr(run.ID),
	})
	if err != nil {
		return "", err
	}

	result.invoiceFor[groupKey] = inv.ID
	result.created = append(result.created, inv.ID)
	return inv.ID, nil
}

func (s *billingAutomationService) updateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)
	return s.SubRepo.Update(ctx, sub)
}

func (s *billingAutomationService) GetBillingRun(ctx context.Context, id string) (*billingrun.BillingRun, error) {
	return s.BillingRunRepo.Get(ctx, id)
}

func (s *billingAutomationService) ListBillingRuns(ctx context.Context, filter *types.BillingRunFilter) ([]*billingrun.BillingRun, error) {
	if filter == nil {
		filter = types.NewBillingRunFilter()
	}
	return s.BillingRunRepo.List(ctx, filter)
}
