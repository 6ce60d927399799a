package service

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoiceService owns the invoice and invoice line lifecycle
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	VoidInvoice(ctx context.Context, id string, req dto.InvoiceActionRequest) (*dto.InvoiceResponse, error)
	WriteOffInvoice(ctx context.Context, id string, req dto.InvoiceActionRequest) (*dto.InvoiceResponse, error)
	BulkVoidInvoices(ctx context.Context, req dto.BulkInvoiceActionRequest) ([]*dto.InvoiceResponse, error)
	BulkWriteOffInvoices(ctx context.Context, req dto.BulkInvoiceActionRequest) ([]*dto.InvoiceResponse, error)

	CreateInvoiceLine(ctx context.Context, invoiceID string, req dto.CreateInvoiceLineRequest) (*dto.InvoiceLineResponse, error)
	GetInvoiceLine(ctx context.Context, id string) (*dto.InvoiceLineResponse, error)
	ListInvoiceLines(ctx context.Context, filter *types.InvoiceLineFilter) (*dto.ListInvoiceLinesResponse, error)
	UpdateInvoiceLine(ctx context.Context, id string, req dto.UpdateInvoiceLineRequest) (*dto.InvoiceLineResponse, error)
	DeleteInvoiceLine(ctx context.Context, id string) error

	// RecomputeTotals re-derives subtotal, tax, total, paid, credited, balance and
	// status from lines, allocations and credit applications. It is idempotent.
	RecomputeTotals(ctx context.Context, id string) (*invoice.Invoice, error)
}

type invoiceService struct {
	ServiceParams
	taxService      TaxService
	sequenceService SequenceService
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams:   params,
		taxService:      NewTaxService(params),
		sequenceService: NewSequenceService(params),
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	acct, err := s.AccountRepo.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	if req.IdempotencyKey != nil {
		existing, err := s.InvoiceRepo.GetByIdempotencyKey(ctx, *req.IdempotencyKey)
		if err == nil {
			s.Logger.Debugw("invoice already exists for idempotency key",
				"invoice_id", existing.ID,
				"idempotency_key", *req.IdempotencyKey,
			)
			return s.GetInvoice(ctx, existing.ID)
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	inv := req.ToInvoice(ctx)
	if inv.Currency == "" {
		inv.Currency = types.NormalizeCurrency(acct.Currency)
	}
	if inv.Currency == "" {
		inv.Currency = s.Config.Billing.DefaultCurrency
	}
	if inv.InvoiceStatus == "" {
		inv.InvoiceStatus = s.Config.Billing.DefaultInvoiceStatus
	}
	if err := s.validateCreateStatus(inv.InvoiceStatus); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if inv.InvoiceNumber == nil {
			number, err := s.sequenceService.NextInvoiceNumber(ctx)
			if err != nil {
				return err
			}
			inv.InvoiceNumber = &number
		}

		if inv.InvoiceStatus == types.InvoiceStatusIssued {
			s.stampIssued(inv, time.Now().UTC())
		}

		if err := inv.Validate(); err != nil {
			return err
		}
		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return err
		}

		for i := range req.Lines {
			line, err := req.Lines[i].ToInvoiceLine(ctx, inv.ID)
			if err != nil {
				return err
			}
			if err := s.createLine(ctx, line); err != nil {
				return err
			}
		}

		recomputed, err := s.RecomputeTotals(ctx, inv.ID)
		if err != nil {
			return err
		}
		inv = recomputed

		s.notifyAfterCommit(ctx, types.NotificationEventInvoiceCreated, inv.AccountID, &inv.ID, nil, invoicePayload(inv))
		if inv.InvoiceStatus == types.InvoiceStatusIssued {
			s.notifyAfterCommit(ctx, types.NotificationEventInvoiceSent, inv.AccountID, &inv.ID, nil, invoicePayload(inv))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created invoice",
		"invoice_id", inv.ID,
		"invoice_number", lo.FromPtr(inv.InvoiceNumber),
		"account_id", inv.AccountID,
		"total", inv.Total,
	)
	return s.GetInvoice(ctx, inv.ID)
}

// validateCreateStatus keeps derived statuses out of the caller's hands
func (s *invoiceService) validateCreateStatus(status types.InvoiceStatus) error {
	allowed := []types.InvoiceStatus{types.InvoiceStatusDraft, types.InvoiceStatusIssued}
	if !lo.Contains(allowed, status) {
		return ierr.NewErrorf("invoice cannot be created as %s", status).
			WithHint("New invoices start as draft or issued").
			WithReportableDetails(map[string]any{
				"invoice_status": status,
				"allowed":        allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, err := s.activeLines(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Lines = lines

	allocFilter := types.NewPaymentAllocationFilter()
	allocFilter.InvoiceIDs = []string{id}
	allocations, err := s.PaymentAllocationRepo.List(ctx, allocFilter)
	if err != nil {
		return nil, err
	}

	resp := dto.NewInvoiceResponse(inv)
	resp.Allocations = lo.Map(allocations, func(a *payment.Allocation, _ int) *dto.PaymentAllocationResponse {
		return dto.NewPaymentAllocationResponse(a)
	})
	return resp, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = dto.NewInvoiceResponse(inv)
	}

	return &dto.ListInvoicesResponse{
		Items: items,
		Pagination: types.NewPaginationResponse(
			count,
			filter.GetLimit(),
			filter.GetOffset(),
		),
	}, nil
}

// UpdateInvoice changes header fields. Status may only move to issued or overdue here;
// paid and partially_paid are derived and void has its own operation.
func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsVoid() {
			return ierr.NewError("invoice is void").
				WithHint("A void invoice cannot be changed").
				WithReportableDetails(map[string]any{
					"invoice_id": id,
				}).
				Mark(ierr.ErrValidation)
		}

		if req.DueAt != nil {
			inv.DueAt = req.DueAt
		}
		if req.Memo != nil {
			inv.Memo = req.Memo
		}
		if req.BillingPeriodStart != nil {
			inv.BillingPeriodStart = req.BillingPeriodStart
		}
		if req.BillingPeriodEnd != nil {
			inv.BillingPeriodEnd = req.BillingPeriodEnd
		}
		if inv.BillingPeriodStart != nil && inv.BillingPeriodEnd != nil && inv.BillingPeriodEnd.Before(*inv.BillingPeriodStart) {
			return ierr.NewError("billing_period_end must be after billing_period_start").
				WithHint("Billing period end must not be before its start").
				Mark(ierr.ErrValidation)
		}

		if req.InvoiceStatus != nil && *req.InvoiceStatus != inv.InvoiceStatus {
			next := *req.InvoiceStatus
			if !lo.Contains([]types.InvoiceStatus{types.InvoiceStatusIssued, types.InvoiceStatusOverdue}, next) {
				return ierr.NewErrorf("invoice status cannot be set to %s", next).
					WithHint("Only issued and overdue can be set directly; use void for voiding").
					Mark(ierr.ErrValidation)
			}
			if err := inv.InvoiceStatus.ValidateTransition(next); err != nil {
				return err
			}
			s.changeStatus(ctx, inv, next, time.Now().UTC())
		}

		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}

		_, err = s.RecomputeTotals(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

// DeleteInvoice soft deletes an invoice that nothing has been applied to
func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		allocFilter := types.NewPaymentAllocationFilter()
		allocFilter.InvoiceIDs = []string{id}
		allocations, err := s.PaymentAllocationRepo.List(ctx, allocFilter)
		if err != nil {
			return err
		}

		appFilter := types.NewCreditNoteApplicationFilter()
		appFilter.InvoiceID = id
		applications, err := s.CreditNoteApplicationRepo.List(ctx, appFilter)
		if err != nil {
			return err
		}

		if len(allocations) > 0 || len(applications) > 0 {
			return ierr.NewError("invoice has payments or credits applied").
				WithHint("Remove payment allocations and credit applications before deleting the invoice").
				WithReportableDetails(map[string]any{
					"invoice_id":   id,
					"allocations":  len(allocations),
					"applications": len(applications),
				}).
				Mark(ierr.ErrValidation)
		}

		if err := s.InvoiceRepo.Delete(ctx, inv.ID); err != nil {
			return err
		}

		s.Logger.Infow("deleted invoice", "invoice_id", id, "account_id", inv.AccountID)
		return nil
	})
}

func (s *invoiceService) VoidInvoice(ctx context.Context, id string, req dto.InvoiceActionRequest) (*dto.InvoiceResponse, error) {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		return s.voidInvoice(ctx, inv, req.Memo)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

func (s *invoiceService) WriteOffInvoice(ctx context.Context, id string, req dto.InvoiceActionRequest) (*dto.InvoiceResponse, error) {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		return s.writeOffInvoice(ctx, inv, req.Memo)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

func (s *invoiceService) BulkVoidInvoices(ctx context.Context, req dto.BulkInvoiceActionRequest) ([]*dto.InvoiceResponse, error) {
	return s.bulk(ctx, req, s.voidInvoice)
}

func (s *invoiceService) BulkWriteOffInvoices(ctx context.Context, req dto.BulkInvoiceActionRequest) ([]*dto.InvoiceResponse, error) {
	return s.bulk(ctx, req, s.writeOffInvoice)
}

// bulk loads every invoice first so a single missing id fails the batch before anything changes
func (s *invoiceService) bulk(
	ctx context.Context,
	req dto.BulkInvoiceActionRequest,
	action func(ctx context.Context, inv *invoice.Invoice, memo *string) error,
) ([]*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ids := lo.Uniq(req.InvoiceIDs)

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		invoices := make([]*invoice.Invoice, 0, len(ids))
		for _, id := range ids {
			inv, err := s.InvoiceRepo.Get(ctx, id)
			if err != nil {
				return err
			}
			invoices = append(invoices, inv)
		}
		for _, inv := range invoices {
			if err := action(ctx, inv, req.Memo); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*dto.InvoiceResponse, 0, len(ids))
	for _, id := range ids {
		resp, err := s.GetInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *invoiceService) voidInvoice(ctx context.Context, inv *invoice.Invoice, memo *string) error {
	if inv.IsVoid() {
		return nil
	}
	if err := inv.InvoiceStatus.ValidateTransition(types.InvoiceStatusVoid); err != nil {
		return err
	}

	now := time.Now().UTC()
	inv.InvoiceStatus = types.InvoiceStatusVoid
	inv.BalanceDue = decimal.Zero
	inv.VoidedAt = &now
	if memo != nil {
		inv.Memo = memo
	}
	inv.UpdatedAt = now
	inv.UpdatedBy = types.GetUserID(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	s.Logger.Infow("voided invoice", "invoice_id", inv.ID, "account_id", inv.AccountID)
	return nil
}

// writeOffInvoice credits the outstanding balance to the account through an
// adjustment posting and closes the invoice as void.
func (s *invoiceService) writeOffInvoice(ctx context.Context, inv *invoice.Invoice, memo *string) error {
	if inv.IsVoid() {
		return ierr.NewError("invoice is already void").
			WithHint("A void invoice has no balance to write off").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrValidation)
	}

	balance := types.RoundMoney(inv.BalanceDue)
	if balance.IsPositive() {
		if _, err := s.postLedgerEntry(ctx, &ledger.Entry{
			AccountID: inv.AccountID,
			InvoiceID: lo.ToPtr(inv.ID),
			EntryType: types.LedgerEntryTypeCredit,
			Source:    types.LedgerEntrySourceAdjustment,
			Amount:    balance,
			Currency:  inv.Currency,
			Memo:      lo.Ternary(memo != nil, memo, lo.ToPtr("Invoice write-off")),
		}); err != nil {
			return err
		}
	}

	if err := s.voidInvoice(ctx, inv, memo); err != nil {
		return err
	}

	s.Logger.Infow("wrote off invoice",
		"invoice_id", inv.ID,
		"account_id", inv.AccountID,
		"written_off", balance,
	)
	return nil
}

func (s *invoiceService) CreateInvoiceLine(ctx context.Context, invoiceID string, req dto.CreateInvoiceLineRequest) (*dto.InvoiceLineResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var line *invoice.InvoiceLine
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := ensureInvoiceEditable(inv); err != nil {
			return err
		}

		line, err = req.ToInvoiceLine(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := s.createLine(ctx, line); err != nil {
			return err
		}

		_, err = s.RecomputeTotals(ctx, invoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceLineResponse(line), nil
}

func (s *invoiceService) GetInvoiceLine(ctx context.Context, id string) (*dto.InvoiceLineResponse, error) {
	line, err := s.InvoiceLineRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceLineResponse(line), nil
}

func (s *invoiceService) ListInvoiceLines(ctx context.Context, filter *types.InvoiceLineFilter) (*dto.ListInvoiceLinesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceLineFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	lines, err := s.InvoiceLineRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(lines, func(l *invoice.InvoiceLine, _ int) *dto.InvoiceLineResponse {
		return dto.NewInvoiceLineResponse(l)
	})
	return &dto.ListInvoiceLinesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(len(items), filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *invoiceService) UpdateInvoiceLine(ctx context.Context, id string, req dto.UpdateInvoiceLineRequest) (*dto.InvoiceLineResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var line *invoice.InvoiceLine
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		line, err = s.InvoiceLineRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		inv, err := s.InvoiceRepo.Get(ctx, line.InvoiceID)
		if err != nil {
			return err
		}
		if err := ensureInvoiceEditable(inv); err != nil {
			return err
		}

		if req.Description != nil {
			line.Description = *req.Description
		}
		if req.Quantity != nil {
			line.Quantity = types.RoundQuantity(*req.Quantity)
		}
		if req.UnitPrice != nil {
			line.UnitPrice = types.RoundMoney(*req.UnitPrice)
		}
		if req.TaxRateID != nil {
			// an empty id clears the rate
			line.TaxRateID = nil
			if *req.TaxRateID != "" {
				line.TaxRateID = req.TaxRateID
			}
		}
		if req.TaxApplication != nil {
			line.TaxApplication = *req.TaxApplication
		}
		line.Amount = types.RoundMoney(line.Quantity.Mul(line.UnitPrice))
		if req.Amount != nil && !types.RoundMoney(*req.Amount).Equal(line.Amount) {
			return ierr.NewError("line amount does not match quantity times unit price").
				WithHint("Line amount must equal quantity multiplied by unit price").
				WithReportableDetails(map[string]any{
					"amount":   req.Amount.String(),
					"expected": line.Amount.String(),
				}).
				Mark(ierr.ErrValidation)
		}

		if err := s.validateLine(ctx, line); err != nil {
			return err
		}
		line.UpdatedAt = time.Now().UTC()
		line.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceLineRepo.Update(ctx, line); err != nil {
			return err
		}

		_, err = s.RecomputeTotals(ctx, line.InvoiceID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceLineResponse(line), nil
}

func (s *invoiceService) DeleteInvoiceLine(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		line, err := s.InvoiceLineRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		inv, err := s.InvoiceRepo.Get(ctx, line.InvoiceID)
		if err != nil {
			return err
		}
		if err := ensureInvoiceEditable(inv); err != nil {
			return err
		}
		if err := s.InvoiceLineRepo.Delete(ctx, id); err != nil {
			return err
		}
		_, err = s.RecomputeTotals(ctx, line.InvoiceID)
		return err
	})
}

func (s *invoiceService) createLine(ctx context.Context, line *invoice.InvoiceLine) error {
	if err := s.validateLine(ctx, line); err != nil {
		return err
	}
	return s.InvoiceLineRepo.Create(ctx, line)
}

// validateLine checks the line's own invariants and that its tax rate exists
func (s *invoiceService) validateLine(ctx context.Context, line *invoice.InvoiceLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if line.TaxRateID != nil {
		if _, err := s.taxService.GetTaxRate(ctx, *line.TaxRateID); err != nil {
			return err
		}
	}
	return nil
}

func (s *invoiceService) activeLines(ctx context.Context, invoiceID string) ([]*invoice.InvoiceLine, error) {
	filter := types.NewInvoiceLineFilter()
	filter.InvoiceIDs = []string{invoiceID}
	return s.InvoiceLineRepo.List(ctx, filter)
}

func ensureInvoiceEditable(inv *invoice.Invoice) error {
	if inv.IsVoid() {
		return ierr.NewError("invoice is void").
			WithHint("Lines of a void invoice cannot be changed").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func invoicePayload(inv *invoice.Invoice) map[string]interface{} {
	return map[string]interface{}{
		"invoice_id":     inv.ID,
		"invoice_number": lo.FromPtr(inv.InvoiceNumber),
		"invoice_status": inv.InvoiceStatus,
		"currency":       inv.Currency,
		"total":          inv.Total.StringFixed(2),
		"balance_due":    inv.BalanceDue.StringFixed(2),
	}
}
