package service

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/creditnote"
	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/domain/ledger"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreditNoteService owns credit notes, their lines and their application to invoices
type CreditNoteService interface {
	CreateCreditNote(ctx context.Context, req dto.CreateCreditNoteRequest) (*dto.CreditNoteResponse, error)
	GetCreditNote(ctx context.Context, id string) (*dto.CreditNoteResponse, error)
	ListCreditNotes(ctx context.Context, filter *types.CreditNoteFilter) (*dto.ListCreditNotesResponse, error)
	UpdateCreditNote(ctx context.Context, id string, req dto.UpdateCreditNoteRequest) (*dto.CreditNoteResponse, error)
	DeleteCreditNote(ctx context.Context, id string) error
	VoidCreditNote(ctx context.Context, id string) (*dto.CreditNoteResponse, error)
	ApplyCreditNote(ctx context.Context, id string, req dto.ApplyCreditNoteRequest) (*dto.CreditNoteApplicationResponse, error)

	CreateCreditNoteLine(ctx context.Context, creditNoteID string, req dto.CreateCreditNoteLineRequest) (*dto.CreditNoteLineResponse, error)
	GetCreditNoteLine(ctx context.Context, id string) (*dto.CreditNoteLineResponse, error)
	ListCreditNoteLines(ctx context.Context, filter *types.CreditNoteLineFilter) (*dto.ListCreditNoteLinesResponse, error)
	UpdateCreditNoteLine(ctx context.Context, id string, req dto.UpdateCreditNoteLineRequest) (*dto.CreditNoteLineResponse, error)
	DeleteCreditNoteLine(ctx context.Context, id string) error

	// RecomputeCreditNote re-derives totals from lines, applied_total from applications, then status
	RecomputeCreditNote(ctx context.Context, id string) (*creditnote.CreditNote, error)
}

type creditNoteService struct {
	ServiceParams
	taxService      TaxService
	sequenceService SequenceService
	invoiceService  InvoiceService
}

func NewCreditNoteService(params ServiceParams) CreditNoteService {
	return newCreditNoteService(params)
}

func newCreditNoteService(params ServiceParams) *creditNoteService {
	return &creditNoteService{
		ServiceParams:   params,
		taxService:      NewTaxService(params),
		sequenceService: NewSequenceService(params),
		invoiceService:  NewInvoiceService(params),
	}
}

func (s *creditNoteService) CreateCreditNote(ctx context.Context, req dto.CreateCreditNoteRequest) (*dto.CreditNoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var cn *creditnote.CreditNote
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		acct, err := s.AccountRepo.Get(ctx, req.AccountID)
		if err != nil {
			return err
		}

		cn = req.ToCreditNote(ctx)
		if cn.InvoiceID != nil {
			inv, err := s.InvoiceRepo.Get(ctx, *cn.InvoiceID)
			if err != nil {
				return err
			}
			if cn.Currency == "" {
				cn.Currency = inv.Currency
			}
			if err := validateCreditNoteInvoice(cn, inv); err != nil {
				return err
			}
		}
		if cn.Currency == "" {
			cn.Currency = types.NormalizeCurrency(acct.Currency)
		}
		if cn.Currency == "" {
			cn.Currency = s.Config.Billing.DefaultCurrency
		}

		if cn.CreditNoteNumber == nil {
			number, err := s.sequenceService.NextCreditNoteNumber(ctx)
			if err != nil {
				return err
			}
			cn.CreditNoteNumber = &number
		}

		if err := cn.Validate(); err != nil {
			return err
		}
		if err := s.CreditNoteRepo.Create(ctx, cn); err != nil {
			return err
		}

		for i := range req.Lines {
			line, err := req.Lines[i].ToCreditNoteLine(ctx, cn.ID)
			if err != nil {
				return err
			}
			if err := s.createLine(ctx, line); err != nil {
				return err
			}
		}

		if req.Issue {
			if err := s.issue(ctx, cn); err != nil {
				return err
			}
		}

		cn, err = s.RecomputeCreditNote(ctx, cn.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created credit note",
		"credit_note_id", cn.ID,
		"credit_note_number", lo.FromPtr(cn.CreditNoteNumber),
		"account_id", cn.AccountID,
		"total", cn.Total,
	)
	return s.GetCreditNote(ctx, cn.ID)
}

func (s *creditNoteService) GetCreditNote(ctx context.Context, id string) (*dto.CreditNoteResponse, error) {
	cn, err := s.CreditNoteRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lines, err := s.activeLines(ctx, id)
	if err != nil {
		return nil, err
	}
	cn.Lines = lines

	appFilter := types.NewCreditNoteApplicationFilter()
	appFilter.CreditNoteID = id
	applications, err := s.CreditNoteApplicationRepo.List(ctx, appFilter)
	if err != nil {
		return nil, err
	}

	resp := dto.NewCreditNoteResponse(cn)
	resp.Applications = applications
	return resp, nil
}

func (s *creditNoteService) ListCreditNotes(ctx context.Context, filter *types.CreditNoteFilter) (*dto.ListCreditNotesResponse, error) {
	if filter == nil {
		filter = types.NewCreditNoteFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	notes, err := s.CreditNoteRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.CreditNoteRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.CreditNoteResponse, len(notes))
	for i, cn := range notes {
		items[i] = dto.NewCreditNoteResponse(cn)
	}

	return &dto.ListCreditNotesResponse{
		Items: items,
		Pagination: types.NewPaginationResponse(
			count,
			filter.GetLimit(),
			filter.GetOffset(),
		),
	}, nil
}

func (s *creditNoteService) UpdateCreditNote(ctx context.Context, id string, req dto.UpdateCreditNoteRequest) (*dto.CreditNoteResponse, error) {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		cn, err := s.CreditNoteRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if cn.CreditNoteStatus == types.CreditNoteStatusVoid {
			return ierr.NewError("credit note is void").
				WithHint("A void credit note cannot be changed").
				WithReportableDetails(map[string]any{
					"credit_note_id": id,
				}).
				Mark(ierr.ErrValidation)
		}

		if req.InvoiceID != nil && *req.InvoiceID != lo.FromPtr(cn.InvoiceID) {
			if cn.AppliedTotal.IsPositive() {
				return ierr.NewError("credit note already applied").
					WithHint("The linked invoice cannot change once credit has been applied").
					Mark(ierr.ErrValidation)
			}
			if *req.InvoiceID == "" {
				cn.InvoiceID = nil
			} else {
				inv, err := s.InvoiceRepo.Get(ctx, *req.InvoiceID)
				if err != nil {
					return err
				}
				cn.InvoiceID = lo.ToPtr(inv.ID)
				if err := validateCreditNoteInvoice(cn, inv); err != nil {
					return err
				}
			}
		}
		if req.Memo != nil {
			cn.Memo = req.Memo
		}
		if req.Issue && cn.CreditNoteStatus == types.CreditNoteStatusDraft {
			if err := s.issue(ctx, cn); err != nil {
				return err
			}
		}

		cn.UpdatedAt = time.Now().UTC()
		cn.UpdatedBy = types.GetUserID(ctx)
		if err := s.CreditNoteRepo.Update(ctx, cn); err != nil {
			return err
		}

		_, err = s.RecomputeCreditNote(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetCreditNote(ctx, id)
}

// DeleteCreditNote soft deletes a credit note that was never drawn on
func (s *creditNoteService) DeleteCreditNote(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		cn, err := s.CreditNoteRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if cn.AppliedTotal.IsPositive() {
			return ierr.NewError("credit note has been applied").
				WithHint("A credit note with applied credit cannot be deleted").
				WithReportableDetails(map[string]any{
					"credit_note_id": id,
					"applied_total":  cn.AppliedTotal.String(),
				}).
				Mark(ierr.ErrValidation)
		}
		if err := s.CreditNoteRepo.Delete(ctx, id); err != nil {
			return err
		}
		s.Logger.Infow("deleted credit note", "credit_note_id", id, "account_id", cn.AccountID)
		return nil
	})
}

func (s *creditNoteService) VoidCreditNote(ctx context.Context, id string) (*dto.CreditNoteResponse, error) {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		cn, err := s.CreditNoteRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if cn.CreditNoteStatus == types.CreditNoteStatusVoid {
			return nil
		}
		if cn.AppliedTotal.IsPositive() {
			return ierr.NewError("credit note has applied balance").
				WithHint("Reverse all applications before voiding the credit note").
				WithReportableDetails(map[string]any{
					"credit_note_id": id,
					"applied_total":  cn.AppliedTotal.String(),
				}).
				Mark(ierr.ErrValidation)
		}
		if err := cn.CreditNoteStatus.ValidateTransition(types.CreditNoteStatusVoid); err != nil {
			return err
		}

		now := time.Now().UTC()
		cn.CreditNoteStatus = types.CreditNoteStatusVoid
		cn.VoidedAt = &now
		cn.UpdatedAt = now
		cn.UpdatedBy = types.GetUserID(ctx)
		if err := s.CreditNoteRepo.Update(ctx, cn); err != nil {
			return err
		}

		s.Logger.Infow("voided credit note", "credit_note_id", id, "account_id", cn.AccountID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCreditNote(ctx, id)
}

// ApplyCreditNote draws credit onto an invoice. The application row, the ledger
// posting and both recomputations commit or roll back together.
func (s *creditNoteService) ApplyCreditNote(ctx context.Context, id string, req dto.ApplyCreditNoteRequest) (*dto.CreditNoteApplicationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		app *creditnote.Application
		cn  *creditnote.CreditNote
	)
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cn, err = s.CreditNoteRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !cn.CreditNoteStatus.IsApplicable() {
			return ierr.NewErrorf("credit note is %s", cn.CreditNoteStatus).
				WithHint("Only issued credit notes can be applied").
				WithReportableDetails(map[string]any{
					"credit_note_id":     id,
					"credit_note_status": cn.CreditNoteStatus,
				}).
				Mark(ierr.ErrValidation)
		}

		inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if cn.InvoiceID != nil && *cn.InvoiceID != inv.ID {
			return ierr.NewError("credit note is tied to a different invoice").
				WithHint("This credit note can only be applied to its linked invoice").
				WithReportableDetails(map[string]any{
					"credit_note_id": id,
					"linked_invoice": *cn.InvoiceID,
					"invoice_id":     inv.ID,
				}).
				Mark(ierr.ErrValidation)
		}
		if err := validateCreditNoteInvoice(cn, inv); err != nil {
			return err
		}

		amount, err := applicationAmount(cn.Remaining(), inv.BalanceDue, req.Amount)
		if err != nil {
			return err
		}

		app = &creditnote.Application{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE_APPLICATION),
			CreditNoteID: cn.ID,
			InvoiceID:    inv.ID,
			Amount:       amount,
			Currency:     cn.Currency,
			AppliedAt:    time.Now().UTC(),
			BaseModel:    types.GetDefaultBaseModel(ctx),
		}
		if err := s.CreditNoteApplicationRepo.Create(ctx, app); err != nil {
			return err
		}

		if _, err := s.postLedgerEntry(ctx, &ledger.Entry{
			AccountID:    cn.AccountID,
			InvoiceID:    lo.ToPtr(inv.ID),
			CreditNoteID: lo.ToPtr(cn.ID),
			EntryType:    types.LedgerEntryTypeCredit,
			Source:       types.LedgerEntrySourceCreditNote,
			Amount:       amount,
			Currency:     cn.Currency,
			Memo:         cn.CreditNoteNumber,
		}); err != nil {
			return err
		}

		if _, err := s.invoiceService.RecomputeTotals(ctx, inv.ID); err != nil {
			return err
		}
		cn, err = s.RecomputeCreditNote(ctx, cn.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("applied credit note",
		"credit_note_id", cn.ID,
		"invoice_id", app.InvoiceID,
		"amount", app.Amount,
		"applied_total", cn.AppliedTotal,
	)

	invResp, err := s.invoiceService.GetInvoice(ctx, app.InvoiceID)
	if err != nil {
		return nil, err
	}
	return &dto.CreditNoteApplicationResponse{
		Application: app,
		CreditNote:  cn,
		Invoice:     invResp,
	}, nil
}

// applicationAmount resolves the amount to draw: the requested one, or
// min(remaining, balance). It must be positive and within both limits.
func applicationAmount(remaining, balance decimal.Decimal, requested *decimal.Decimal) (decimal.Decimal, error) {
	remaining = types.RoundMoney(remaining)
	balance = types.RoundMoney(balance)

	if !remaining.IsPositive() {
		return decimal.Zero, ierr.NewError("credit note has no remaining credit").
			WithHint("This credit note has been fully applied").
			Mark(ierr.ErrValidation)
	}
	if !balance.IsPositive() {
		return decimal.Zero, ierr.NewError("invoice has no balance due").
			WithHint("The invoice has nothing left to pay").
			Mark(ierr.ErrValidation)
	}

	amount := decimal.Min(remaining, balance)
	if requested != nil {
		amount = types.RoundMoney(*requested)
	}

	switch {
	case !amount.IsPositive():
		return decimal.Zero, ierr.NewError("application amount must be positive").
			WithHint("Application amount must be greater than zero").
			Mark(ierr.ErrValidation)
	case amount.GreaterThan(remaining):
		return decimal.Zero, ierr.NewError("application amount exceeds remaining credit").
			WithHint("Applied total exceeds credit note total").
			WithReportableDetails(map[string]any{
				"amount":    amount.String(),
				"remaining": remaining.String(),
			}).
			Mark(ierr.ErrValidation)
	case amount.GreaterThan(balance):
		return decimal.Zero, ierr.NewError("application amount exceeds invoice balance").
			WithHint("Application amount exceeds the invoice balance due").
			WithReportableDetails(map[string]any{
				"amount":      amount.String(),
				"balance_due": balance.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return amount, nil
}

func (s *creditNoteService) RecomputeCreditNote(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	var cn *creditnote.CreditNote
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		cn, err = s.CreditNoteRepo.Get(ctx, id)
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

		appFilter := types.NewCreditNoteApplicationFilter()
		appFilter.CreditNoteID = id
		applications, err := s.CreditNoteApplicationRepo.List(ctx, appFilter)
		if err != nil {
			return err
		}
		applied := decimal.Zero
		for _, app := range applications {
			applied = applied.Add(app.Amount)
		}

		cn.Subtotal = types.RoundMoney(subtotal)
		cn.TaxTotal = types.RoundMoney(taxTotal)
		cn.Total = types.RoundMoney(cn.Subtotal.Add(cn.TaxTotal))
		cn.AppliedTotal = types.RoundMoney(applied)
		cn.CreditNoteStatus = deriveCreditNoteStatus(cn.CreditNoteStatus, cn.Total, cn.AppliedTotal)
		cn.Lines = lines

		if err := cn.Validate(); err != nil {
			return err
		}

		cn.UpdatedAt = time.Now().UTC()
		cn.UpdatedBy = types.GetUserID(ctx)
		return s.CreditNoteRepo.Update(ctx, cn)
	})
	if err != nil {
		return nil, err
	}
	return cn, nil
}

// deriveCreditNoteStatus follows applied_total once the note is out of draft and not void
func deriveCreditNoteStatus(current types.CreditNoteStatus, total, applied decimal.Decimal) types.CreditNoteStatus {
	if current == types.CreditNoteStatusDraft || current == types.CreditNoteStatusVoid {
		return current
	}
	switch {
	case !applied.IsPositive():
		return types.CreditNoteStatusIssued
	case applied.GreaterThanOrEqual(total):
		return types.CreditNoteStatusApplied
	default:
		return types.CreditNoteStatusPartiallyApplied
	}
}

func (s *creditNoteService) CreateCreditNoteLine(ctx context.Context, creditNoteID string, req dto.CreateCreditNoteLineRequest) (*dto.CreditNoteLineResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var line *creditnote.CreditNoteLine
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		cn, err := s.CreditNoteRepo.Get(ctx, creditNoteID)
		if err != nil {
			return err
		}
		if err := ensureCreditNoteEditable(cn); err != nil {
			return err
		}

		line, err = req.ToCreditNoteLine(ctx, creditNoteID)
		if err != nil {
			return err
		}
		if err := s.createLine(ctx, line); err != nil {
			return err
		}

		_, err = s.RecomputeCreditNote(ctx, creditNoteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewCreditNoteLineResponse(line), nil
}

func (s *creditNoteService) GetCreditNoteLine(ctx context.Context, id string) (*dto.CreditNoteLineResponse, error) {
	line, err := s.CreditNoteLineRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewCreditNoteLineResponse(line), nil
}

func (s *creditNoteService) ListCreditNoteLines(ctx context.Context, filter *types.CreditNoteLineFilter) (*dto.ListCreditNoteLinesResponse, error) {
	if filter == nil {
		filter = types.NewCreditNoteLineFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	lines, err := s.CreditNoteLineRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(lines, func(l *creditnote.CreditNoteLine, _ int) *dto.CreditNoteLineResponse {
		return dto.NewCreditNoteLineResponse(l)
	})
	return &dto.ListCreditNoteLinesResponse{
		Items:      items,
		Pagination: types.NewPaginationResponse(len(items), filter.GetLimit(), filter.GetOffset()),
	}, nil
}

func (s *creditNoteService) UpdateCreditNoteLine(ctx context.Context, id string, req dto.UpdateCreditNoteLineRequest) (*dto.CreditNoteLineResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var line *creditnote.CreditNoteLine
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		line, err = s.CreditNoteLineRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		cn, err := s.CreditNoteRepo.Get(ctx, line.CreditNoteID)
		if err != nil {
			return err
		}
		if err := ensureCreditNoteEditable(cn); err != nil {
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
				Mark(ierr.ErrValidation)
		}

		if err := s.validateLine(ctx, line); err != nil {
			return err
		}
		line.UpdatedAt = time.Now().UTC()
		line.UpdatedBy = types.GetUserID(ctx)
		if err := s.CreditNoteLineRepo.Update(ctx, line); err != nil {
			return err
		}

		_, err = s.RecomputeCreditNote(ctx, line.CreditNoteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewCreditNoteLineResponse(line), nil
}

func (s *creditNoteService) DeleteCreditNoteLine(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		line, err := s.CreditNoteLineRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		cn, err := s.CreditNoteRepo.Get(ctx, line.CreditNoteID)
		if err != nil {
			return err
		}
		if err := ensureCreditNoteEditable(cn); err != nil {
			return err
		}
		if err := s.CreditNoteLineRepo.Delete(ctx, id); err != nil {
			return err
		}
		_, err = s.RecomputeCreditNote(ctx, line.CreditNoteID)
		return err
	})
}

// issue moves a draft to issued; the recompute that follows settles the applied status
func (s *creditNoteService) issue(ctx context.Context, cn *creditnote.CreditNote) error {
	if err := cn.CreditNoteStatus.ValidateTransition(types.CreditNoteStatusIssued); err != nil {
		return err
	}
	now := time.Now().UTC()
	cn.CreditNoteStatus = types.CreditNoteStatusIssued
	if cn.IssuedAt == nil {
		cn.IssuedAt = &now
	}
	cn.UpdatedAt = now
	cn.UpdatedBy = types.GetUserID(ctx)
	return s.CreditNoteRepo.Update(ctx, cn)
}

func (s *creditNoteService) createLine(ctx context.Context, line *creditnote.CreditNoteLine) error {
	if err := s.validateLine(ctx, line); err != nil {
		return err
	}
	return s.CreditNoteLineRepo.Create(ctx, line)
}

func (s *creditNoteService) validateLine(ctx context.Context, line *creditnote.CreditNoteLine) error {
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

func (s *creditNoteService) activeLines(ctx context.Context, creditNoteID string) ([]*creditnote.CreditNoteLine, error) {
	filter := types.NewCreditNoteLineFilter()
	filter.CreditNoteIDs = []string{creditNoteID}
	return s.CreditNoteLineRepo.List(ctx, filter)
}

func ensureCreditNoteEditable(cn *creditnote.CreditNote) error {
	if cn.CreditNoteStatus == types.CreditNoteStatusVoid {
		return ierr.NewError("credit note is void").
			WithHint("Lines of a void credit note cannot be changed").
			WithReportableDetails(map[string]any{
				"credit_note_id": cn.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// validateCreditNoteInvoice checks that a linked invoice has the same account and currency
func validateCreditNoteInvoice(cn *creditnote.CreditNote, inv *invoice.Invoice) error {
	if inv.AccountID != cn.AccountID {
		return ierr.NewError("invoice belongs to a different account").
			WithHint("Credit note and invoice must belong to the same account").
			WithReportableDetails(map[string]any{
				"credit_note_account": cn.AccountID,
				"invoice_account":     inv.AccountID,
			}).
			Mark(ierr.ErrValidation)
	}
	if !types.IsCurrencyEqual(inv.Currency, cn.Currency) {
		return ierr.NewError("currency mismatch").
			WithHint("Credit note currency must match the invoice currency").
			WithReportableDetails(map[string]any{
				"credit_note_currency": cn.Currency,
				"invoice_currency":     inv.Currency,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
