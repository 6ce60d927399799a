package service

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func (s *invoiceService) RecomputeTotals(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		lines, err := s.activeLines(ctx, id)
		if err != nil {
			return err
		}

		subtotal := decimal.Zero
		taxTotal := decimal.Zero
		for _, line := range lines {
			subtotal = subtotal.Add(line.Amount)
			tax, err := s.taxService.LineTax(ctx, line.Amount, line.TaxRateID, line.TaxApplication)
			if err != nil {
				return err
			}
			taxTotal = taxTotal.Add(tax)
		}
		subtotal = types.RoundMoney(subtotal)
		taxTotal = types.RoundMoney(taxTotal)
		total := types.RoundMoney(subtotal.Add(taxTotal))

		paid, err := s.paidAmount(ctx, id)
		if err != nil {
			return err
		}
		credited, err := s.creditedAmount(ctx, id)
		if err != nil {
			return err
		}

		before := *inv
		inv.Subtotal = subtotal
		inv.TaxTotal = taxTotal
		inv.Total = total
		inv.AmountPaid = paid
		inv.AmountCredited = credited
		inv.Lines = lines

		if inv.IsVoid() {
			inv.BalanceDue = decimal.Zero
		} else {
			inv.BalanceDue = types.NonNegative(types.RoundMoney(total.Sub(paid).Sub(credited)))
			next := deriveInvoiceStatus(inv.InvoiceStatus, total, inv.BalanceDue, paid, credited)
			if next != inv.InvoiceStatus {
				s.changeStatus(ctx, inv, next, time.Now().UTC())
			}
		}

		if err := inv.Validate(); err != nil {
			return err
		}

		if totalsUnchanged(&before, inv) {
			return nil
		}

		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		s.Logger.Debugw("recomputed invoice totals",
			"invoice_id", inv.ID,
			"subtotal", inv.Subtotal,
			"tax_total", inv.TaxTotal,
			"total", inv.Total,
			"amount_paid", inv.AmountPaid,
			"amount_credited", inv.AmountCredited,
			"balance_due", inv.BalanceDue,
			"invoice_status", inv.InvoiceStatus,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// paidAmount sums allocations whose payment is active and succeeded
func (s *invoiceService) paidAmount(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	allocFilter := types.NewPaymentAllocationFilter()
	allocFilter.InvoiceIDs = []string{invoiceID}
	allocations, err := s.PaymentAllocationRepo.List(ctx, allocFilter)
	if err != nil {
		return decimal.Zero, err
	}
	if len(allocations) == 0 {
		return decimal.Zero, nil
	}

	paymentFilter := types.NewNoLimitPaymentFilter()
	paymentFilter.PaymentIDs = lo.Uniq(lo.Map(allocations, func(a *payment.Allocation, _ int) string {
		return a.PaymentID
	}))
	paymentFilter.PaymentStatus = []types.PaymentStatus{types.PaymentStatusSucceeded}
	payments, err := s.PaymentRepo.List(ctx, paymentFilter)
	if err != nil {
		return decimal.Zero, err
	}
	settled := lo.SliceToMap(payments, func(p *payment.Payment) (string, bool) {
		return p.ID, p.Status.IsActive()
	})

	paid := decimal.Zero
	for _, a := range allocations {
		if settled[a.PaymentID] {
			paid = paid.Add(a.Amount)
		}
	}
	return types.RoundMoney(paid), nil
}

func (s *invoiceService) creditedAmount(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	filter := types.NewCreditNoteApplicationFilter()
	filter.InvoiceID = invoiceID
	applications, err := s.CreditNoteApplicationRepo.List(ctx, filter)
	if err != nil {
		return decimal.Zero, err
	}
	credited := decimal.Zero
	for _, app := range applications {
		credited = credited.Add(app.Amount)
	}
	return types.RoundMoney(credited), nil
}

// deriveInvoiceStatus moves an invoice to paid or partially_paid from its balances.
// paid and void never change here, and an empty invoice nobody paid keeps its status.
func deriveInvoiceStatus(current types.InvoiceStatus, total, balance, paid, credited decimal.Decimal) types.InvoiceStatus {
	if current == types.InvoiceStatusVoid || current == types.InvoiceStatusPaid {
		return current
	}

	applied := paid.Add(credited)
	if !balance.IsPositive() {
		if !total.IsPositive() && !applied.IsPositive() {
			return current
		}
		return types.InvoiceStatusPaid
	}
	if applied.IsPositive() {
		return types.InvoiceStatusPartiallyPaid
	}
	return current
}

// changeStatus applies a status the caller has already validated and queues the matching notification
func (s *invoiceService) changeStatus(ctx context.Context, inv *invoice.Invoice, next types.InvoiceStatus, now time.Time) {
	prev := inv.InvoiceStatus
	inv.InvoiceStatus = next

	var event types.NotificationEventName
	switch next {
	case types.InvoiceStatusIssued:
		s.stampIssued(inv, now)
		event = types.NotificationEventInvoiceSent
	case types.InvoiceStatusOverdue:
		event = types.NotificationEventInvoiceOverdue
	case types.InvoiceStatusPaid:
		if inv.PaidAt == nil {
			inv.PaidAt = &now
		}
		event = types.NotificationEventInvoicePaid
	}

	s.Logger.Infow("invoice status changed",
		"invoice_id", inv.ID,
		"account_id", inv.AccountID,
		"from", prev,
		"to", next,
	)

	if event != "" {
		s.notifyAfterCommit(ctx, event, inv.AccountID, &inv.ID, nil, invoicePayload(inv))
	}
}

// stampIssued sets issued_at and due_at when they are still unset
func (s *invoiceService) stampIssued(inv *invoice.Invoice, now time.Time) {
	if inv.IssuedAt == nil {
		inv.IssuedAt = &now
	}
	if inv.DueAt == nil {
		due := inv.IssuedAt.AddDate(0, 0, s.Config.Billing.InvoiceDueDays)
		inv.DueAt = &due
	}
}

func totalsUnchanged(a, b *invoice.Invoice) bool {
	return a.Subtotal.Equal(b.Subtotal) &&
		a.TaxTotal.Equal(b.TaxTotal) &&
		a.Total.Equal(b.Total) &&
		a.AmountPaid.Equal(b.AmountPaid) &&
		a.AmountCredited.Equal(b.AmountCredited) &&
		a.BalanceDue.Equal(b.BalanceDue) &&
		a.InvoiceStatus == b.InvoiceStatus
}
