package service

import (
	"testing"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/account"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/testutil"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CreditNoteServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        CreditNoteService
	invoiceService InvoiceService
	testData       struct {
		account *account.Account
		invoice *dto.InvoiceResponse
	}
}

func TestCreditNoteService(t *testing.T) {
	suite.Run(t, new(CreditNoteServiceSuite))
}

func (s *CreditNoteServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewCreditNoteService(params)
	s.invoiceService = NewInvoiceService(params)

	s.testData.account = s.CreateAccount("Kijiji Wireless")
	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     s.testData.account.ID,
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		Lines: []dto.CreateInvoiceLineRequest{{
			Description: "Fibre 50 Mbps",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(100),
		}},
	})
	s.Require().NoError(err)
	s.testData.invoice = inv
}

func (s *CreditNoteServiceSuite) createCreditNote(amount string, issue bool) *dto.CreditNoteResponse {
	cn, err := s.service.CreateCreditNote(s.GetContext(), dto.CreateCreditNoteRequest{
		AccountID: s.testData.account.ID,
		Issue:     issue,
		Lines: []dto.CreateCreditNoteLineRequest{{
			Description: "Outage credit",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString(amount),
		}},
	})
	s.Require().NoError(err)
	return cn
}

func (s *CreditNoteServiceSuite) TestCreateCreditNote() {
	draft := s.createCreditNote("30", false)
	s.Equal(types.CreditNoteStatusDraft, draft.CreditNoteStatus)
	s.Equal("CN-000001", lo.FromPtr(draft.CreditNoteNumber))
	s.Equal("USD", draft.Currency)
	s.True(decimal.NewFromInt(30).Equal(draft.Total))
	s.Len(draft.Lines, 1)
	s.Nil(draft.IssuedAt)

	issued := s.createCreditNote("15", true)
	s.Equal(types.CreditNoteStatusIssued, issued.CreditNoteStatus)
	s.Equal("CN-000002", lo.FromPtr(issued.CreditNoteNumber))
	s.NotNil(issued.IssuedAt)
}

func (s *CreditNoteServiceSuite) TestCreateCreditNoteForInvoice() {
	cn, err := s.service.CreateCreditNote(s.GetContext(), dto.CreateCreditNoteRequest{
		AccountID: s.testData.account.ID,
		InvoiceID: lo.ToPtr(s.testData.invoice.ID),
	})
	s.Require().NoError(err)
	s.Equal(s.testData.invoice.Currency, cn.Currency)

	other := s.CreateAccount("Someone else")
	_, err = s.service.CreateCreditNote(s.GetContext(), dto.CreateCreditNoteRequest{
		AccountID: other.ID,
		InvoiceID: lo.ToPtr(s.testData.invoice.ID),
	})
	s.True(ierr.IsValidation(err), "invoice of another account: %v", err)

	_, err = s.service.CreateCreditNote(s.GetContext(), dto.CreateCreditNoteRequest{
		AccountID: s.testData.account.ID,
		InvoiceID: lo.ToPtr(s.testData.invoice.ID),
		Currency:  "KES",
	})
	s.True(ierr.IsValidation(err), "currency mismatch: %v", err)
}

func (s *CreditNoteServiceSuite) TestApplyCreditNote() {
	cn := s.createCreditNote("30", true)

	resp, err := s.service.ApplyCreditNote(s.GetContext(), cn.ID, dto.ApplyCreditNoteRequest{
		InvoiceID: s.testData.invoice.ID,
	})
	s.Require().NoError(err)

	s.True(decimal.NewFromInt(30).Equal(resp.Application.Amount))
	s.Equal(types.CreditNoteStatusApplied, resp.CreditNote.CreditNoteStatus)
	s.True(decimal.NewFromInt(30).Equal(resp.CreditNote.AppliedTotal))
	s.Equal(types.InvoiceStatusPartiallyPaid, resp.Invoice.InvoiceStatus)
	s.True(decimal.NewFromInt(30).Equal(resp.Invoice.AmountCredited))
	s.True(decimal.NewFromInt(70).Equal(resp.Invoice.BalanceDue))

	filter := types.NewLedgerEntryFilter()
	filter.CreditNoteID = cn.ID
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(types.LedgerEntryTypeCredit, entries[0].EntryType)
	s.Equal(types.LedgerEntrySourceCreditNote, entries[0].Source)
	s.Equal(s.testData.invoice.ID, lo.FromPtr(entries[0].InvoiceID))
	s.Equal(lo.FromPtr(cn.CreditNoteNumber), lo.FromPtr(entries[0].Memo))

	// fully applied
	_, err = s.service.ApplyCreditNote(s.GetContext(), cn.ID, dto.ApplyCreditNoteRequest{
		InvoiceID: s.testData.invoice.ID,
	})
	s.True(ierr.IsValidation(err))
}

func (s *CreditNoteServiceSuite) TestApplyCreditNoteCapsAtBalance() {
	cn := s.createCreditNote("150", true)

	resp, err := s.service.ApplyCreditNote(s.GetContext(), cn.ID, dto.ApplyCreditNoteRequest{
		InvoiceID: s.testData.invoice.ID,
	})
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(resp.Application.Amount))
	s.Equal(types.CreditNoteStatusPartiallyApplied, resp.CreditNote.CreditNoteStatus)
	s.Equal(types.InvoiceStatusPaid, resp.Invoice.InvoiceStatus)
	s.True(resp.Invoice.BalanceDue.IsZero())
	s.NotNil(resp.Invoice.PaidAt)

	s.Contains(s.GetNotificationNames(), types.NotificationEventInvoicePaid)
}

func (s *CreditNoteServiceSuite) TestApplyCreditNoteValidation() {
	draft := s.createCreditNote("10", false)
	issued := s.createCreditNote("10", true)
	other := s.CreateAccount("Someone else")
	otherInvoice, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     other.ID,
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		Lines: []dto.CreateInvoiceLineRequest{{
			Description: "Fibre",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(10),
		}},
	})
	s.Require().NoError(err)

	tests := []struct {
		name         string
		creditNoteID string
		req          dto.ApplyCreditNoteRequest
		check        func(error) bool
	}{
		{"draft credit note", draft.ID, dto.ApplyCreditNoteRequest{InvoiceID: s.testData.invoice.ID}, ierr.IsValidation},
		{"unknown invoice", issued.ID, dto.ApplyCreditNoteRequest{InvoiceID: "inv_missing"}, ierr.IsNotFound},
		{"other account", issued.ID, dto.ApplyCreditNoteRequest{InvoiceID: otherInvoice.ID}, ierr.IsValidation},
		{"more than remaining", issued.ID, dto.ApplyCreditNoteRequest{
			InvoiceID: s.testData.invoice.ID,
			Amount:    lo.ToPtr(decimal.NewFromInt(11)),
		}, ierr.IsValidation},
		{"zero amount", issued.ID, dto.ApplyCreditNoteRequest{
			InvoiceID: s.testData.invoice.ID,
			Amount:    lo.ToPtr(decimal.Zero),
		}, ierr.IsValidation},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			_, err := s.service.ApplyCreditNote(s.GetContext(), tc.creditNoteID, tc.req)
			s.Require().Error(err)
			s.True(tc.check(err), "unexpected error: %v", err)
		})
	}

	apps, err := s.GetStores().CreditNoteApplicationRepo.List(s.GetContext(), types.NewCreditNoteApplicationFilter())
	s.Require().NoError(err)
	s.Empty(apps)
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), types.NewLedgerEntryFilter())
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *CreditNoteServiceSuite) TestApplyCreditNoteLinkedToOtherInvoice() {
	second, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     s.testData.account.ID,
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		Lines: []dto.CreateInvoiceLineRequest{{
			Description: "Fibre",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(20),
		}},
	})
	s.Require().NoError(err)

	cn, err := s.service.CreateCreditNote(s.GetContext(), dto.CreateCreditNoteRequest{
		AccountID: s.testData.account.ID,
		InvoiceID: lo.ToPtr(s.testData.invoice.ID),
		Issue:     true,
		Lines: []dto.CreateCreditNoteLineRequest{{
			Description: "Goodwill",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(5),
		}},
	})
	s.Require().NoError(err)

	_, err = s.service.ApplyCreditNote(s.GetContext(), cn.ID, dto.ApplyCreditNoteRequest{InvoiceID: second.ID})
	s.True(ierr.IsValidation(err))
}

func (s *CreditNoteServiceSuite) TestVoidCreditNote() {
	unused := s.createCreditNote("10", true)
	voided, err := s.service.VoidCreditNote(s.GetContext(), unused.ID)
	s.Require().NoError(err)
	s.Equal(types.CreditNoteStatusVoid, voided.CreditNoteStatus)

	again, err := s.service.VoidCreditNote(s.GetContext(), unused.ID)
	s.Require().NoError(err)
	s.Equal(types.CreditNoteStatusVoid, again.CreditNoteStatus)

	applied := s.createCreditNote("10", true)
	_, err = s.service.ApplyCreditNote(s.GetContext(), applied.ID, dto.ApplyCreditNoteRequest{
		InvoiceID: s.testData.invoice.ID,
		Amount:    lo.ToPtr(decimal.NewFromInt(4)),
	})
	s.Require().NoError(err)

	_, err = s.service.VoidCreditNote(s.GetContext(), applied.ID)
	s.True(ierr.IsValidation(err))
	s.True(ierr.IsValidation(s.service.DeleteCreditNote(s.GetContext(), applied.ID)))
}

func (s *CreditNoteServiceSuite) TestCreditNoteLines() {
	cn := s.createCreditNote("10", false)
	vat := s.CreateTaxRate("VAT16", "16")

	line, err := s.service.CreateCreditNoteLine(s.GetContext(), cn.ID, dto.CreateCreditNoteLineRequest{
		Description: "Router refund",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(50),
		TaxRateID:   lo.ToPtr(vat.ID),
	})
	s.Require().NoError(err)

	got, err := s.service.GetCreditNote(s.GetContext(), cn.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(60).Equal(got.Subtotal))
	s.True(decimal.NewFromInt(8).Equal(got.TaxTotal))
	s.True(decimal.NewFromInt(68).Equal(got.Total))

	s.Require().NoError(s.service.DeleteCreditNoteLine(s.GetContext(), line.ID))
	got, err = s.service.GetCreditNote(s.GetContext(), cn.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(10).Equal(got.Total))
}

func TestDeriveCreditNoteStatus(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name    string
		current types.CreditNoteStatus
		total   string
		applied string
		want    types.CreditNoteStatus
	}{
		{"draft stays draft", types.CreditNoteStatusDraft, "10", "0", types.CreditNoteStatusDraft},
		{"void stays void", types.CreditNoteStatusVoid, "10", "0", types.CreditNoteStatusVoid},
		{"nothing applied", types.CreditNoteStatusPartiallyApplied, "10", "0", types.CreditNoteStatusIssued},
		{"part applied", types.CreditNoteStatusIssued, "10", "4", types.CreditNoteStatusPartiallyApplied},
		{"fully applied", types.CreditNoteStatusPartiallyApplied, "10", "10", types.CreditNoteStatusApplied},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := deriveCreditNoteStatus(tc.current, d(tc.total), d(tc.applied)); got != tc.want {
				t.Fatalf("deriveCreditNoteStatus() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestApplicationAmount(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name      string
		remaining string
		balance   string
		requested *decimal.Decimal
		want      string
		wantErr   bool
	}{
		{name: "defaults to remaining", remaining: "30", balance: "100", want: "30"},
		{name: "defaults to balance", remaining: "150", balance: "100", want: "100"},
		{name: "explicit amount", remaining: "30", balance: "100", requested: lo.ToPtr(d("12.345")), want: "12.35"},
		{name: "nothing remaining", remaining: "0", balance: "100", wantErr: true},
		{name: "nothing due", remaining: "30", balance: "0", wantErr: true},
		{name: "above remaining", remaining: "30", balance: "100", requested: lo.ToPtr(d("31")), wantErr: true},
		{name: "above balance", remaining: "300", balance: "100", requested: lo.ToPtr(d("101")), wantErr: true},
		{name: "negative", remaining: "30", balance: "100", requested: lo.ToPtr(d("-1")), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := applicationAmount(d(tc.remaining), d(tc.balance), tc.requested)
			if tc.wantErr {
				if !ierr.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(d(tc.want)) {
				t.Fatalf("applicationAmount() = %s, want %s", got, tc.want)
			}
		})
	}
}
