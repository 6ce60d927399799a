package dto

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/creditnote"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/flexprice/ispbilling/internal/validator"
	"github.com/shopspring/decimal"
)

type CreateCreditNoteRequest struct {
	AccountID        string  `json:"account_id" validate:"required"`
	InvoiceID        *string `json:"invoice_id,omitempty"`
	CreditNoteNumber *string `json:"credit_note_number,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	Memo             *string `json:"memo,omitempty"`
	// Issue moves the note straight to issued; otherwise it starts as a draft
	Issue bool                          `json:"issue,omitempty"`
	Lines []CreateCreditNoteLineRequest `json:"lines,omitempty" validate:"omitempty,dive"`
}

func (r *CreateCreditNoteRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.Currency != "" {
		if err := types.ValidateCurrencyCode(r.Currency); err != nil {
			return err
		}
	}
	for i := range r.Lines {
		if err := r.Lines[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *CreateCreditNoteRequest) ToCreditNote(ctx context.Context) *creditnote.CreditNote {
	return &creditnote.CreditNote{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE),
		AccountID:        r.AccountID,
		InvoiceID:        r.InvoiceID,
		CreditNoteNumber: r.CreditNoteNumber,
		CreditNoteStatus: types.CreditNoteStatusDraft,
		Currency:         types.NormalizeCurrency(r.Currency),
		Subtotal:         decimal.Zero,
		TaxTotal:         decimal.Zero,
		Total:            decimal.Zero,
		AppliedTotal:     decimal.Zero,
		Memo:             r.Memo,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
}

type CreateCreditNoteLineRequest struct {
	Description    string                `json:"description" validate:"required"`
	Quantity       decimal.Decimal       `json:"quantity"`
	UnitPrice      decimal.Decimal       `json:"unit_price"`
	Amount         *decimal.Decimal      `json:"amount,omitempty"`
	TaxRateID      *string               `json:"tax_rate_id,omitempty"`
	TaxApplication *types.TaxApplication `json:"tax_application,omitempty"`
}

func (r *CreateCreditNoteLineRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.TaxApplication != nil {
		if err := r.TaxApplication.Validate(); err != nil {
			return err
		}
	}
	_, err := lineAmount(r.Quantity, r.UnitPrice, r.Amount)
	return err
}

func (r *CreateCreditNoteLineRequest) ToCreditNoteLine(ctx context.Context, creditNoteID string) (*creditnote.CreditNoteLine, error) {
	amount, err := lineAmount(r.Quantity, r.UnitPrice, r.Amount)
	if err != nil {
		return nil, err
	}
	return &creditnote.CreditNoteLine{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_NOTE_LINE),
		CreditNoteID:   creditNoteID,
		Description:    r.Description,
		Quantity:       types.RoundQuantity(r.Quantity),
		UnitPrice:      types.RoundMoney(r.UnitPrice),
		Amount:         amount,
		TaxRateID:      r.TaxRateID,
		TaxApplication: taxApplicationOrDefault(r.TaxApplication),
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}, nil
}

type UpdateCreditNoteRequest struct {
	InvoiceID *string `json:"invoice_id,omitempty"`
	Memo      *string `json:"memo,omitempty"`
	// Issue moves a draft note to issued
	Issue bool `json:"issue,omitempty"`
}

type UpdateCreditNoteLineRequest struct {
	Description    *string               `json:"description,omitempty"`
	Quantity       *decimal.Decimal      `json:"quantity,omitempty"`
	UnitPrice      *decimal.Decimal      `json:"unit_price,omitempty"`
	Amount         *decimal.Decimal      `json:"amount,omitempty"`
	TaxRateID      *string               `json:"tax_rate_id,omitempty"`
	TaxApplication *types.TaxApplication `json:"tax_application,omitempty"`
}

func (r *UpdateCreditNoteLineRequest) Validate() error {
	if r.TaxApplication != nil {
		return r.TaxApplication.Validate()
	}
	return nil
}

// ApplyCreditNoteRequest draws credit onto an invoice. A nil amount applies
// min(remaining credit, invoice balance).
type ApplyCreditNoteRequest struct {
	InvoiceID string           `json:"invoice_id" validate:"required"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

func (r *ApplyCreditNoteRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type CreditNoteResponse struct {
	*creditnote.CreditNote
	Applications []*creditnote.Application `json:"applications,omitempty"`
}

func NewCreditNoteResponse(cn *creditnote.CreditNote) *CreditNoteResponse {
	if cn == nil {
		return nil
	}
	return &CreditNoteResponse{CreditNote: cn}
}

type CreditNoteLineResponse struct {
	*creditnote.CreditNoteLine
}

func NewCreditNoteLineResponse(l *creditnote.CreditNoteLine) *CreditNoteLineResponse {
	if l == nil {
		return nil
	}
	return &CreditNoteLineResponse{CreditNoteLine: l}
}

// CreditNoteApplicationResponse is the result of applying credit to an invoice
type CreditNoteApplicationResponse struct {
	Application *creditnote.Application `json:"application"`
	CreditNote  *creditnote.CreditNote  `json:"credit_note"`
	Invoice     *InvoiceResponse        `json:"invoice"`
}

// ListCreditNotesResponse represents the response for listing credit notes
type ListCreditNotesResponse = types.ListResponse[*CreditNoteResponse]

type ListCreditNoteLinesResponse = types.ListResponse[*CreditNoteLineResponse]
