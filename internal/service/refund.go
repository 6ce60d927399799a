package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/creditnote"
	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ProcessRefund gives back part or all of a settled payment. A refund that
// exhausts the refundable amount also releases every allocation of the payment.
func (s *paymentService) ProcessRefund(ctx context.Context, id string, req dto.RefundPaymentRequest) (*dto.RefundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		p     *payment.Payment
		entry *ledger.Entry
		cn    *creditnote.CreditNote
	)
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.PaymentRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if p.PaymentStatus == types.PaymentStatusRefunded {
			return ierr.NewError("payment already fully refunded").
				WithHint("This payment has already been fully refunded").
				WithReportableDetails(map[string]any{
					"payment_id": p.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		if p.PaymentStatus != types.PaymentStatusSucceeded && p.PaymentStatus != types.PaymentStatusPartiallyRefunded {
			return ierr.NewErrorf("payment is %s", p.PaymentStatus).
				WithHint("Only succeeded or partially refunded payments can be refunded").
				WithReportableDetails(map[string]any{
					"payment_id":     p.ID,
					"payment_status": p.PaymentStatus,
				}).
				Mark(ierr.ErrValidation)
		}

		refunded, err := s.refundedAmount(ctx, p.ID)
		if err != nil {
			return err
		}
		refundable := types.RoundMoney(p.Amount.Sub(refunded))
		if !refundable.IsPositive() {
			return ierr.NewError("payment already fully refunded").
				WithHint("This payment has already been fully refunded").
				Mark(ierr.ErrValidation)
		}

		amount := refundable
		if req.Amount != nil {
			amount = types.RoundMoney(*req.Amount)
		}
		if amount.GreaterThan(refundable) {
			return ierr.NewError("refund exceeds refundable amount").
				WithHintf("Refund amount exceeds the refundable amount of %s", refundable.StringFixed(2)).
				WithReportableDetails(map[string]any{
					"payment_id": p.ID,
					"requested":  amount.String(),
					"refundable": refundable.String(),
				}).
				Mark(ierr.ErrValidation)
		}

		entry, err = s.postLedgerEntry(ctx, &ledger.Entry{
			AccountID: p.AccountID,
			InvoiceID: copyString(p.InvoiceID),
			PaymentID: lo.ToPtr(p.ID),
			EntryType: types.LedgerEntryTypeDebit,
			Source:    types.LedgerEntrySourceRefund,
			Amount:    amount,
			Currency:  p.Currency,
			Memo:      req.Memo,
		})
		if err != nil {
			return err
		}

		allocations, err := s.paymentAllocations(ctx, p.ID)
		if err != nil {
			return err
		}

		next := types.PaymentStatusPartiallyRefunded
		if amount.Equal(refundable) {
			next = types.PaymentStatusRefunded
			for _, a := range allocations {
				if err := s.PaymentAllocationRepo.Delete(ctx, a.ID); err != nil {
					return err
				}
			}
		}
		if next != p.PaymentStatus {
			if err := p.PaymentStatus.ValidateTransition(next); err != nil {
				return err
			}
			p.PaymentStatus = next
		}
		p.RefundedAmount = types.RoundMoney(refunded.Add(amount))
		p.UpdatedAt = time.Now().UTC()
		p.UpdatedBy = types.GetUserID(ctx)
		if err := s.PaymentRepo.Update(ctx, p); err != nil {
			return err
		}

		if err := s.recomputeAllocatedInvoices(ctx, allocations); err != nil {
			return err
		}

		if lo.FromPtrOr(req.CreateCreditNote, s.Config.Billing.CreateRefundCreditNote) {
			cn, err = s.creditNoteService.createRefundCreditNote(ctx, p, amount, req.Memo)
			if err != nil {
				return err
			}
		}

		s.notifyAfterCommit(ctx, types.NotificationEventPaymentRefunded, p.AccountID, p.InvoiceID, lo.ToPtr(p.ID),
			lo.Assign(paymentPayload(p), map[string]interface{}{
				"refund_amount": amount.String(),
				"full_refund":   next == types.PaymentStatusRefunded,
			}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("refunded payment",
		"payment_id", p.ID,
		"account_id", p.AccountID,
		"amount", entry.Amount,
		"refunded_amount", p.RefundedAmount,
		"payment_status", p.PaymentStatus,
	)

	resp := &dto.RefundResponse{LedgerEntry: entry}
	resp.Payment, err = s.GetPayment(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if cn != nil {
		resp.CreditNote, err = s.creditNoteService.GetCreditNote(ctx, cn.ID)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// ReversePayment handles chargebacks and bank reversals: the payment fails and
// money it had settled is taken back off the account.
func (s *paymentService) ReversePayment(ctx context.Context, id string, req dto.ReversePaymentRequest) (*dto.PaymentResponse, error) {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.PaymentRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.PaymentStatus == types.PaymentStatusFailed {
			return ierr.NewError("payment already failed").
				WithHint("This payment has already been reversed or failed").
				WithReportableDetails(map[string]any{
					"payment_id": p.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		if err := p.PaymentStatus.ValidateTransition(types.PaymentStatusFailed); err != nil {
			return err
		}

		if p.PaymentStatus == types.PaymentStatusSucceeded || p.PaymentStatus == types.PaymentStatusPartiallyRefunded {
			outstanding := types.RoundMoney(p.Amount.Sub(p.RefundedAmount))
			if outstanding.IsPositive() {
				memo := req.Memo
				if memo == nil {
					memo = lo.ToPtr(fmt.Sprintf("reversal of payment %s", p.ID))
				}
				if _, err := s.postLedgerEntry(ctx, &ledger.Entry{
					AccountID: p.AccountID,
					InvoiceID: copyString(p.InvoiceID),
					PaymentID: lo.ToPtr(p.ID),
					EntryType: types.LedgerEntryTypeDebit,
					Source:    types.LedgerEntrySourceAdjustment,
					Amount:    outstanding,
					Currency:  p.Currency,
					Memo:      memo,
				}); err != nil {
					return err
				}
			}
		}

		now := time.Now().UTC()
		p.PaymentStatus = types.PaymentStatusFailed
		p.FailedAt = &now
		if req.Memo != nil {
			p.Memo = req.Memo
		}
		p.UpdatedAt = now
		p.UpdatedBy = types.GetUserID(ctx)
		if err := s.PaymentRepo.Update(ctx, p); err != nil {
			return err
		}

		allocations, err := s.paymentAllocations(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := s.recomputeAllocatedInvoices(ctx, allocations); err != nil {
			return err
		}

		s.Logger.Infow("reversed payment", "payment_id", p.ID, "account_id", p.AccountID)
		s.notifyPaymentStatus(ctx, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPayment(ctx, id)
}

// refundedAmount sums the refund postings of a payment
func (s *paymentService) refundedAmount(ctx context.Context, paymentID string) (decimal.Decimal, error) {
	filter := types.NewLedgerEntryFilter()
	filter.PaymentID = paymentID
	filter.Sources = []types.LedgerEntrySource{types.LedgerEntrySourceRefund}
	entries, err := s.LedgerRepo.List(ctx, filter)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return types.RoundMoney(total), nil
}

// createRefundCreditNote issues the single-line credit note that mirrors a refund
func (s *creditNoteService) createRefundCreditNote(ctx context.Context, p *payment.Payment, amount decimal.Decimal, memo *string) (*creditnote.CreditNote, error) {
	number, err := s.sequenceService.NextCreditNoteNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cn := &creditnote.CreditNote{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE),
		AccountID:        p.AccountID,
		PaymentID:        lo.ToPtr(p.ID),
		CreditNoteNumber: &number,
		CreditNoteStatus: types.CreditNoteStatusIssued,
		Currency:         p.Currency,
		Subtotal:         decimal.Zero,
		TaxTotal:         decimal.Zero,
		Total:            decimal.Zero,
		AppliedTotal:     decimal.Zero,
		Memo:             memo,
		IssuedAt:         &now,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if err := cn.Validate(); err != nil {
		return nil, err
	}
	if err := s.CreditNoteRepo.Create(ctx, cn); err != nil {
		return nil, err
	}

	line := &creditnote.CreditNoteLine{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE_LINE),
		CreditNoteID:   cn.ID,
		Description:    fmt.Sprintf("Refund of payment %s", lo.FromPtrOr(p.ExternalID, p.ID)),
		Quantity:       decimal.NewFromInt(1),
		UnitPrice:      types.RoundMoney(amount),
		Amount:         types.RoundMoney(amount),
		TaxApplication: types.TaxApplicationExempt,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := s.createLine(ctx, line); err != nil {
		return nil, err
	}

	if _, err := s.postLedgerEntry(ctx, &ledger.Entry{
		AccountID:    p.AccountID,
		PaymentID:    lo.ToPtr(p.ID),
		CreditNoteID: lo.ToPtr(cn.ID),
		EntryType:    types.LedgerEntryTypeCredit,
		Source:       types.LedgerEntrySourceCreditNote,
		Amount:       amount,
		Currency:     p.Currency,
		Memo:         cn.CreditNoteNumber,
	}); err != nil {
		return nil, err
	}

	return s.RecomputeCreditNote(ctx, cn.ID)
}
