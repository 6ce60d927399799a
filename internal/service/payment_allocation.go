package service

import (
	"context"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreatePaymentAllocation assigns part of an existing payment to an invoice. The
// payment row stays locked until commit so concurrent requests cannot jointly
// over-allocate it. Repeating a (payment, invoice) pair returns the stored row.
func (s *paymentService) CreatePaymentAllocation(ctx context.Context, req dto.CreatePaymentAllocationRequest) (*dto.PaymentAllocationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var alloc *payment.Allocation
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.PaymentRepo.GetForUpdate(ctx, req.PaymentID)
		if err != nil {
			return err
		}

		inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if err := validateInvoiceForPayment(p, inv); err != nil {
			return err
		}

		existing, err := s.PaymentAllocationRepo.GetByPaymentAndInvoice(ctx, p.ID, inv.ID)
		if err == nil {
			alloc = existing
			return nil
		}
		if !ierr.IsNotFound(err) {
			return err
		}

		if !p.PaymentStatus.IsAllocatable() {
			return ierr.NewErrorf("payment is %s", p.PaymentStatus).
				WithHint("Only pending or succeeded payments can be allocated").
				WithReportableDetails(map[string]any{
					"payment_id":     p.ID,
					"payment_status": p.PaymentStatus,
				}).
				Mark(ierr.ErrValidation)
		}

		allocations, err := s.paymentAllocations(ctx, p.ID)
		if err != nil {
			return err
		}
		allocated := sumAllocations(allocations)
		amount := types.RoundMoney(req.Amount)
		if allocated.Add(amount).GreaterThan(p.Amount) {
			return ierr.NewError("allocation exceeds payment amount").
				WithHint("Allocated amount exceeds the payment amount").
				WithReportableDetails(map[string]any{
					"payment_id": p.ID,
					"amount":     p.Amount.String(),
					"allocated":  allocated.String(),
					"requested":  amount.String(),
				}).
				Mark(ierr.ErrValidation)
		}

		alloc, err = s.createAllocation(ctx, p, inv, amount)
		if err != nil {
			return err
		}
		_, err = s.invoiceService.RecomputeTotals(ctx, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentAllocationResponse(alloc), nil
}

func (s *paymentService) ListPaymentAllocations(ctx context.Context, filter *types.PaymentAllocationFilter) (*dto.ListPaymentAllocationsResponse, error) {
	if filter == nil {
		filter = types.NewPaymentAllocationFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	allocations, err := s.PaymentAllocationRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(allocations, func(a *payment.Allocation, _ int) *dto.PaymentAllocationResponse {
		return dto.NewPaymentAllocationResponse(a)
	})
	return &dto.ListPaymentAllocationsResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(len(items), filter.GetLimit(), filter.GetOffset()),
	}, nil
}

// DeletePaymentAllocation removes the allocation row and recomputes its invoice.
// Ledger postings stay as the audit trail.
func (s *paymentService) DeletePaymentAllocation(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		alloc, err := s.PaymentAllocationRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.PaymentAllocationRepo.Delete(ctx, id); err != nil {
			return err
		}
		if _, err := s.invoiceService.RecomputeTotals(ctx, alloc.InvoiceID); err != nil {
			return err
		}

		s.Logger.Infow("deleted payment allocation",
			"allocation_id", id,
			"payment_id", alloc.PaymentID,
			"invoice_id", alloc.InvoiceID,
		)
		return nil
	})
}

// allocateExplicit applies caller supplied allocations of a new payment
func (s *paymentService) allocateExplicit(ctx context.Context, p *payment.Payment, reqs []dto.PaymentAllocationRequest) error {
	total := decimal.Zero
	for _, r := range reqs {
		total = total.Add(types.RoundMoney(r.Amount))
	}
	if total.GreaterThan(p.Amount) {
		return ierr.NewError("allocations exceed payment amount").
			WithHint("Allocated amount exceeds the payment amount").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"amount":     p.Amount.String(),
				"allocated":  total.String(),
			}).
			Mark(ierr.ErrValidation)
	}

	touched := make([]string, 0, len(reqs))
	for _, r := range reqs {
		inv, err := s.InvoiceRepo.Get(ctx, r.InvoiceID)
		if err != nil {
			return err
		}
		if err := validateInvoiceForPayment(p, inv); err != nil {
			return err
		}
		if _, err := s.createAllocation(ctx, p, inv, types.RoundMoney(r.Amount)); err != nil {
			return err
		}
		touched = append(touched, inv.ID)
	}
	return s.recomputeInvoices(ctx, touched)
}

// autoAllocate spreads the unallocated part of a payment over the account's open
// invoices, oldest due first. The payment's own invoice, when set, goes first.
// Running it again for the same payment only fills what is still missing.
func (s *paymentService) autoAllocate(ctx context.Context, p *payment.Payment) error {
	existing, err := s.paymentAllocations(ctx, p.ID)
	if err != nil {
		return err
	}
	allocatedTo := lo.SliceToMap(existing, func(a *payment.Allocation) (string, bool) {
		return a.InvoiceID, true
	})
	remaining := types.RoundMoney(p.Amount.Sub(sumAllocations(existing)))

	candidates, err := s.InvoiceRepo.ListOpenForAccount(ctx, p.AccountID)
	if err != nil {
		return err
	}
	candidates = preferInvoice(candidates, p.InvoiceID)

	touched := lo.Keys(allocatedTo)
	for _, inv := range candidates {
		if !remaining.IsPositive() {
			break
		}
		if allocatedTo[inv.ID] || !types.IsCurrencyEqual(inv.Currency, p.Currency) {
			continue
		}

		amount := decimal.Min(remaining, inv.BalanceDue)
		if !amount.IsPositive() {
			continue
		}
		if _, err := s.createAllocation(ctx, p, inv, amount); err != nil {
			return err
		}
		remaining = types.RoundMoney(remaining.Sub(amount))
		allocatedTo[inv.ID] = true
		touched = append(touched, inv.ID)
	}

	if remaining.IsPositive() && p.PaymentStatus == types.PaymentStatusSucceeded {
		if err := s.postUnallocatedCredit(ctx, p, remaining); err != nil {
			return err
		}
	}

	s.Logger.Debugw("auto allocated payment",
		"payment_id", p.ID,
		"account_id", p.AccountID,
		"invoices", len(touched),
		"unallocated", remaining,
	)
	return s.recomputeInvoices(ctx, touched)
}

// createAllocation inserts the allocation and, once the payment has succeeded,
// its credit posting. Allocations of a pending payment are posted on settle.
func (s *paymentService) createAllocation(ctx context.Context, p *payment.Payment, inv *invoice.Invoice, amount decimal.Decimal) (*payment.Allocation, error) {
	alloc := &payment.Allocation{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_ALLOCATION),
		PaymentID: p.ID,
		InvoiceID: inv.ID,
		Amount:    types.RoundMoney(amount),
		Currency:  p.Currency,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	if err := alloc.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentAllocationRepo.Create(ctx, alloc); err != nil {
		return nil, err
	}
	if p.PaymentStatus != types.PaymentStatusSucceeded {
		return alloc, nil
	}
	if err := s.postAllocationCredit(ctx, p, alloc, inv.InvoiceNumber); err != nil {
		return nil, err
	}
	return alloc, nil
}

// postAllocationCredit posts the credit for one allocation. A posting that
// already exists for the pair is reused so retries never double-post.
func (s *paymentService) postAllocationCredit(ctx context.Context, p *payment.Payment, alloc *payment.Allocation, memo *string) error {
	_, err := s.LedgerRepo.FindPosting(ctx, p.ID, alloc.InvoiceID, types.LedgerEntrySourcePayment)
	if err == nil {
		return nil
	}
	if !ierr.IsNotFound(err) {
		return err
	}

	_, err = s.postLedgerEntry(ctx, &ledger.Entry{
		AccountID: p.AccountID,
		InvoiceID: lo.ToPtr(alloc.InvoiceID),
		PaymentID: lo.ToPtr(p.ID),
		EntryType: types.LedgerEntryTypeCredit,
		Source:    types.LedgerEntrySourcePayment,
		Amount:    alloc.Amount,
		Currency:  p.Currency,
		Memo:      memo,
	})
	return err
}

// postSettledCredits posts the credits a payment's allocations were waiting on
// while it was pending
func (s *paymentService) postSettledCredits(ctx context.Context, p *payment.Payment, allocations []*payment.Allocation) error {
	for _, alloc := range allocations {
		inv, err := s.InvoiceRepo.Get(ctx, alloc.InvoiceID)
		if err != nil {
			return err
		}
		if err := s.postAllocationCredit(ctx, p, alloc, inv.InvoiceNumber); err != nil {
			return err
		}
	}
	return nil
}

// postUnallocatedCredit leaves the rest of a payment on the account as credit
func (s *paymentService) postUnallocatedCredit(ctx context.Context, p *payment.Payment, amount decimal.Decimal) error {
	filter := types.NewLedgerEntryFilter()
	filter.PaymentID = p.ID
	filter.Sources = []types.LedgerEntrySource{types.LedgerEntrySourcePayment}
	filter.Unallocated = true
	posted, err := s.LedgerRepo.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(posted) > 0 {
		return nil
	}

	_, err = s.postLedgerEntry(ctx, &ledger.Entry{
		AccountID: p.AccountID,
		PaymentID: lo.ToPtr(p.ID),
		EntryType: types.LedgerEntryTypeCredit,
		Source:    types.LedgerEntrySourcePayment,
		Amount:    amount,
		Currency:  p.Currency,
		Memo:      lo.ToPtr("unallocated payment credit"),
	})
	return err
}

// preferInvoice moves the invoice with the given id to the front, keeping the rest in order
func preferInvoice(invoices []*invoice.Invoice, id *string) []*invoice.Invoice {
	if id == nil {
		return invoices
	}
	first := lo.Filter(invoices, func(inv *invoice.Invoice, _ int) bool { return inv.ID == *id })
	if len(first) == 0 {
		return invoices
	}
	rest := lo.Filter(invoices, func(inv *invoice.Invoice, _ int) bool { return inv.ID != *id })
	return append(first, rest...)
}

func sumAllocations(allocations []*payment.Allocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return types.RoundMoney(total)
}

// validateInvoiceForPayment checks the invoice can take money from this payment
func validateInvoiceForPayment(p *payment.Payment, inv *invoice.Invoice) error {
	if inv.AccountID != p.AccountID {
		return ierr.NewError("invoice belongs to a different account").
			WithHint("Payment and invoice must belong to the same account").
			WithReportableDetails(map[string]any{
				"payment_account": p.AccountID,
				"invoice_account": inv.AccountID,
			}).
			Mark(ierr.ErrValidation)
	}
	if p.Currency != "" && !types.IsCurrencyEqual(inv.Currency, p.Currency) {
		return ierr.NewError("currency mismatch").
			WithHint("Payment currency must match the invoice currency").
			WithReportableDetails(map[string]any{
				"payment_currency": p.Currency,
				"invoice_currency": inv.Currency,
			}).
			Mark(ierr.ErrValidation)
	}
	if inv.IsVoid() {
		return ierr.NewError("invoice is void").
			WithHint("Payments cannot be allocated to a void invoice").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
