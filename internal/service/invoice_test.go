package service

import (
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/domain/taxrate"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/testutil"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  InvoiceService
	testData struct {
		account *account.Account
		vat     *taxrate.TaxRate
	}
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInvoiceService(newTestServiceParams(&s.BaseServiceTestSuite))
	s.testData.account = s.CreateAccount("Acme Fibre")
	s.testData.vat = s.CreateTaxRate("VAT16", "16")
}

func (s *InvoiceServiceSuite) line(description, qty, price string) dto.CreateInvoiceLineRequest {
	return dto.CreateInvoiceLineRequest{
		Description: description,
		Quantity:    decimal.RequireFromString(qty),
		UnitPrice:   decimal.RequireFromString(price),
	}
}

func (s *InvoiceServiceSuite) createIssued(amount string) *dto.InvoiceResponse {
	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     s.testData.account.ID,
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		Lines:         []dto.CreateInvoiceLineRequest{s.line("Fibre 100", "1", amount)},
	})
	s.Require().NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	taxed := s.line("Fibre 100 Mbps", "2", "50")
	taxed.TaxRateID = lo.ToPtr(s.testData.vat.ID)
	exempt := s.line("Router rental", "1", "10")
	exempt.TaxRateID = lo.ToPtr(s.testData.vat.ID)
	exempt.TaxApplication = lo.ToPtr(types.TaxApplicationExempt)

	resp, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID: s.testData.account.ID,
		Lines:     []dto.CreateInvoiceLineRequest{taxed, exempt},
	})
	s.Require().NoError(err)

	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Equal("USD", resp.Currency)
	s.Equal("INV-000001", lo.FromPtr(resp.InvoiceNumber))
	s.True(decimal.NewFromInt(110).Equal(resp.Subtotal), "subtotal %s", resp.Subtotal)
	s.True(decimal.NewFromInt(16).Equal(resp.TaxTotal), "tax %s", resp.TaxTotal)
	s.True(decimal.NewFromInt(126).Equal(resp.Total), "total %s", resp.Total)
	s.True(decimal.NewFromInt(126).Equal(resp.BalanceDue))
	s.Len(resp.Lines, 2)
	s.Nil(resp.IssuedAt)

	s.Equal([]types.NotificationEventName{types.NotificationEventInvoiceCreated}, s.GetNotificationNames())

	second, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID: s.testData.account.ID,
	})
	s.Require().NoError(err)
	s.Equal("INV-000002", lo.FromPtr(second.InvoiceNumber))
	s.True(second.Total.IsZero())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceIssued() {
	resp := s.createIssued("100")

	s.Equal(types.InvoiceStatusIssued, resp.InvoiceStatus)
	s.Require().NotNil(resp.IssuedAt)
	s.Require().NotNil(resp.DueAt)
	s.True(resp.IssuedAt.AddDate(0, 0, s.GetConfig().Billing.InvoiceDueDays).Equal(*resp.DueAt))
	s.Equal([]types.NotificationEventName{
		types.NotificationEventInvoiceCreated,
		types.NotificationEventInvoiceSent,
	}, s.GetNotificationNames())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceValidation() {
	tests := []struct {
		name  string
		req   dto.CreateInvoiceRequest
		check func(error) bool
	}{
		{
			name:  "unknown account",
			req:   dto.CreateInvoiceRequest{AccountID: "acct_missing"},
			check: ierr.IsNotFound,
		},
		{
			name: "derived status",
			req: dto.CreateInvoiceRequest{
				AccountID:     s.testData.account.ID,
				InvoiceStatus: lo.ToPtr(types.InvoiceStatusPaid),
			},
			check: ierr.IsValidation,
		},
		{
			name: "amount disagrees with quantity times price",
			req: dto.CreateInvoiceRequest{
				AccountID: s.testData.account.ID,
				Lines: []dto.CreateInvoiceLineRequest{{
					Description: "Fibre",
					Quantity:    decimal.NewFromInt(2),
					UnitPrice:   decimal.NewFromInt(10),
					Amount:      lo.ToPtr(decimal.NewFromInt(25)),
				}},
			},
			check: ierr.IsValidation,
		},
		{
			name: "unknown tax rate",
			req: dto.CreateInvoiceRequest{
				AccountID: s.testData.account.ID,
				Lines: []dto.CreateInvoiceLineRequest{{
					Description: "Fibre",
					Quantity:    decimal.NewFromInt(1),
					UnitPrice:   decimal.NewFromInt(10),
					TaxRateID:   lo.ToPtr("tax_missing"),
				}},
			},
			check: ierr.IsNotFound,
		},
		{
			name: "bad currency",
			req: dto.CreateInvoiceRequest{
				AccountID: s.testData.account.ID,
				Currency:  "dollars",
			},
			check: ierr.IsValidation,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			_, err := s.service.CreateInvoice(s.GetContext(), tc.req)
			s.Require().Error(err)
			s.True(tc.check(err), "unexpected error: %v", err)
		})
	}

	// nothing leaked from the failed attempts
	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(0, count)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceIdempotencyKey() {
	req := dto.CreateInvoiceRequest{
		AccountID:      s.testData.account.ID,
		IdempotencyKey: lo.ToPtr("run-1/acct"),
		Lines:          []dto.CreateInvoiceLineRequest{s.line("Fibre", "1", "30")},
	}

	first, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)
	again, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Require().NoError(err)

	s.Equal(first.ID, again.ID)
	count, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(1, count)
}

func (s *InvoiceServiceSuite) TestRecomputeTotalsIsIdempotent() {
	inv := s.createIssued("80")
	before, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		got, err := s.service.RecomputeTotals(s.GetContext(), inv.ID)
		s.Require().NoError(err)
		s.True(before.Total.Equal(got.Total))
		s.True(before.BalanceDue.Equal(got.BalanceDue))
		s.Equal(before.InvoiceStatus, got.InvoiceStatus)
	}

	after, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Equal(before.UpdatedAt, after.UpdatedAt)
}

func (s *InvoiceServiceSuite) TestInvoiceLines() {
	inv := s.createIssued("40")

	line, err := s.service.CreateInvoiceLine(s.GetContext(), inv.ID, s.line("Static IP", "1", "5"))
	s.Require().NoError(err)

	got, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(45).Equal(got.Total))

	_, err = s.service.UpdateInvoiceLine(s.GetContext(), line.ID, dto.UpdateInvoiceLineRequest{
		UnitPrice: lo.ToPtr(decimal.NewFromInt(7)),
		TaxRateID: lo.ToPtr(s.testData.vat.ID),
	})
	s.Require().NoError(err)

	got, err = s.service.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(47).Equal(got.Subtotal))
	s.True(decimal.RequireFromString("1.12").Equal(got.TaxTotal), "tax %s", got.TaxTotal)
	s.True(decimal.RequireFromString("48.12").Equal(got.Total))

	s.Require().NoError(s.service.DeleteInvoiceLine(s.GetContext(), line.ID))
	got, err = s.service.GetInvoice(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.Len(got.Lines, 1)
	s.True(decimal.NewFromInt(40).Equal(got.Total))
	s.True(decimal.NewFromInt(40).Equal(got.BalanceDue))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceStatus() {
	draft, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID: s.testData.account.ID,
		Lines:     []dto.CreateInvoiceLineRequest{s.line("Fibre", "1", "20")},
	})
	s.Require().NoError(err)

	issued, err := s.service.UpdateInvoice(s.GetContext(), draft.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
	})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusIssued, issued.InvoiceStatus)
	s.NotNil(issued.IssuedAt)

	overdue, err := s.service.UpdateInvoice(s.GetContext(), draft.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusOverdue),
	})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusOverdue, overdue.InvoiceStatus)

	_, err = s.service.UpdateInvoice(s.GetContext(), draft.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusPaid),
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.UpdateInvoice(s.GetContext(), draft.ID, dto.UpdateInvoiceRequest{
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
	})
	s.True(ierr.IsValidation(err), "overdue cannot go back to issued")

	s.Equal([]types.NotificationEventName{
		types.NotificationEventInvoiceCreated,
		types.NotificationEventInvoiceSent,
		types.NotificationEventInvoiceOverdue,
	}, s.GetNotificationNames())
}

func (s *InvoiceServiceSuite) TestVoidInvoice() {
	inv := s.createIssued("60")

	voided, err := s.service.VoidInvoice(s.GetContext(), inv.ID, dto.InvoiceActionRequest{Memo: lo.ToPtr("duplicate")})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, voided.InvoiceStatus)
	s.True(voided.BalanceDue.IsZero())
	s.NotNil(voided.VoidedAt)
	s.Equal("duplicate", lo.FromPtr(voided.Memo))

	again, err := s.service.VoidInvoice(s.GetContext(), inv.ID, dto.InvoiceActionRequest{})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, again.InvoiceStatus)

	// recompute never reopens a void invoice
	got, err := s.service.RecomputeTotals(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	s.True(got.BalanceDue.IsZero())

	_, err = s.service.UpdateInvoice(s.GetContext(), inv.ID, dto.UpdateInvoiceRequest{Memo: lo.ToPtr("x")})
	s.True(ierr.IsValidation(err))
	_, err = s.service.CreateInvoiceLine(s.GetContext(), inv.ID, s.line("Late fee", "1", "5"))
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestWriteOffInvoice() {
	inv := s.createIssued("75.50")

	resp, err := s.service.WriteOffInvoice(s.GetContext(), inv.ID, dto.InvoiceActionRequest{})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusVoid, resp.InvoiceStatus)
	s.True(resp.BalanceDue.IsZero())

	filter := types.NewLedgerEntryFilter()
	filter.InvoiceID = inv.ID
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(types.LedgerEntryTypeCredit, entries[0].EntryType)
	s.Equal(types.LedgerEntrySourceAdjustment, entries[0].Source)
	s.True(decimal.RequireFromString("75.50").Equal(entries[0].Amount))
	s.Equal("Invoice write-off", lo.FromPtr(entries[0].Memo))

	_, err = s.service.WriteOffInvoice(s.GetContext(), inv.ID, dto.InvoiceActionRequest{})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestBulkWriteOff() {
	a := s.createIssued("10")
	b := s.createIssued("20")

	_, err := s.service.BulkWriteOffInvoices(s.GetContext(), dto.BulkInvoiceActionRequest{
		InvoiceIDs: []string{a.ID, "inv_missing", b.ID},
	})
	s.True(ierr.IsNotFound(err))

	// the batch failed before touching anything
	got, err := s.service.GetInvoice(s.GetContext(), a.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusIssued, got.InvoiceStatus)

	out, err := s.service.BulkWriteOffInvoices(s.GetContext(), dto.BulkInvoiceActionRequest{
		InvoiceIDs: []string{a.ID, b.ID},
		Memo:       lo.ToPtr("bad debt"),
	})
	s.Require().NoError(err)
	s.Len(out, 2)
	for _, inv := range out {
		s.Equal(types.InvoiceStatusVoid, inv.InvoiceStatus)
	}

	filter := types.NewLedgerEntryFilter()
	filter.AccountID = s.testData.account.ID
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(entries, 2)
}

func (s *InvoiceServiceSuite) TestBulkVoid() {
	a := s.createIssued("10")
	b := s.createIssued("20")

	out, err := s.service.BulkVoidInvoices(s.GetContext(), dto.BulkInvoiceActionRequest{
		InvoiceIDs: []string{a.ID, b.ID, a.ID},
	})
	s.Require().NoError(err)
	s.Len(out, 2)

	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), types.NewLedgerEntryFilter())
	s.Require().NoError(err)
	s.Empty(entries, "void posts nothing to the ledger")
}

func (s *InvoiceServiceSuite) TestDeleteInvoice() {
	inv := s.createIssued("10")
	s.Require().NoError(s.service.DeleteInvoice(s.GetContext(), inv.ID))

	_, err := s.service.GetInvoice(s.GetContext(), inv.ID)
	s.True(ierr.IsNotFound(err))

	paid := s.createIssued("10")
	payments := NewPaymentService(newTestServiceParams(&s.BaseServiceTestSuite))
	_, err = payments.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID: s.testData.account.ID,
		Amount:    decimal.NewFromInt(4),
	})
	s.Require().NoError(err)

	err = s.service.DeleteInvoice(s.GetContext(), paid.ID)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	s.createIssued("10")
	s.createIssued("20")
	other := s.CreateAccount("Other ISP customer")
	_, err := s.service.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{AccountID: other.ID})
	s.Require().NoError(err)

	filter := types.NewInvoiceFilter()
	filter.AccountID = s.testData.account.ID
	resp, err := s.service.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 2)
	s.Equal(2, resp.Pagination.Total)

	filter = types.NewInvoiceFilter()
	filter.InvoiceStatus = []types.InvoiceStatus{types.InvoiceStatusDraft}
	resp, err = s.service.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 1)
}

func TestDeriveInvoiceStatus(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name     string
		current  types.InvoiceStatus
		total    string
		balance  string
		paid     string
		credited string
		want     types.InvoiceStatus
	}{
		{"untouched issued", types.InvoiceStatusIssued, "100", "100", "0", "0", types.InvoiceStatusIssued},
		{"part paid", types.InvoiceStatusIssued, "100", "60", "40", "0", types.InvoiceStatusPartiallyPaid},
		{"part credited", types.InvoiceStatusOverdue, "100", "90", "0", "10", types.InvoiceStatusPartiallyPaid},
		{"fully paid", types.InvoiceStatusPartiallyPaid, "100", "0", "60", "40", types.InvoiceStatusPaid},
		{"paid is sticky", types.InvoiceStatusPaid, "100", "40", "60", "0", types.InvoiceStatusPaid},
		{"void is sticky", types.InvoiceStatusVoid, "100", "0", "100", "0", types.InvoiceStatusVoid},
		{"empty draft stays draft", types.InvoiceStatusDraft, "0", "0", "0", "0", types.InvoiceStatusDraft},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := deriveInvoiceStatus(tc.current, d(tc.total), d(tc.balance), d(tc.paid), d(tc.credited))
			if got != tc.want {
				t.Fatalf("deriveInvoiceStatus() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestStampIssuedUsesDueDays(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Billing.InvoiceDueDays = 30
	svc := &invoiceService{ServiceParams: ServiceParams{Config: cfg}}

	issuedAt := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	inv := &invoice.Invoice{InvoiceStatus: types.InvoiceStatusIssued}
	svc.stampIssued(inv, issuedAt)

	if inv.IssuedAt == nil || !inv.IssuedAt.Equal(issuedAt) {
		t.Fatalf("issued_at = %v, want %v", inv.IssuedAt, issuedAt)
	}
	want := issuedAt.AddDate(0, 0, 30)
	if inv.DueAt == nil || !inv.DueAt.Equal(want) {
		t.Fatalf("due_at = %v, want %v", inv.DueAt, want)
	}
}
