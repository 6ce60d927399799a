package service

import (
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/domain/paymentchannel"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/testutil"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        PaymentService
	invoiceService InvoiceService
	testData       struct {
		account *account.Account
	}
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewPaymentService(params)
	s.invoiceService = NewInvoiceService(params)
	s.testData.account = s.CreateAccount("Mtaa Broadband")
}

func (s *PaymentServiceSuite) createInvoice(amount string, dueIn time.Duration) *dto.InvoiceResponse {
	resp, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     s.testData.account.ID,
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		DueAt:         lo.ToPtr(s.GetNow().Add(dueIn)),
		Lines: []dto.CreateInvoiceLineRequest{{
			Description: "Fibre 20 Mbps",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString(amount),
		}},
	})
	s.Require().NoError(err)
	return resp
}

func (s *PaymentServiceSuite) getInvoice(id string) *dto.InvoiceResponse {
	inv, err := s.invoiceService.GetInvoice(s.GetContext(), id)
	s.Require().NoError(err)
	return inv
}

func (s *PaymentServiceSuite) pay(amount string) *dto.PaymentResponse {
	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID: s.testData.account.ID,
		Amount:    decimal.RequireFromString(amount),
	})
	s.Require().NoError(err)
	return p
}

func (s *PaymentServiceSuite) ledger(paymentID string) []*ledger.Entry {
	filter := types.NewLedgerEntryFilter()
	filter.PaymentID = paymentID
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	return entries
}

func (s *PaymentServiceSuite) TestAutoAllocationOldestDueFirst() {
	later := s.createInvoice("50", 10*24*time.Hour)
	sooner := s.createInvoice("30", 2*24*time.Hour)

	p := s.pay("100")

	s.Equal(types.PaymentStatusSucceeded, p.PaymentStatus)
	s.Require().Len(p.Allocations, 2)
	s.Equal(sooner.ID, p.Allocations[0].InvoiceID)
	s.True(decimal.NewFromInt(30).Equal(p.Allocations[0].Amount))
	s.Equal(later.ID, p.Allocations[1].InvoiceID)
	s.True(decimal.NewFromInt(50).Equal(p.Allocations[1].Amount))

	for _, id := range []string{later.ID, sooner.ID} {
		inv := s.getInvoice(id)
		s.Equal(types.InvoiceStatusPaid, inv.InvoiceStatus)
		s.True(inv.BalanceDue.IsZero())
		s.NotNil(inv.PaidAt)
	}

	// the 20 left over stays on the account as unallocated credit
	filter := types.NewLedgerEntryFilter()
	filter.PaymentID = p.ID
	filter.Unallocated = true
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.True(decimal.NewFromInt(20).Equal(entries[0].Amount))
	s.Equal(types.LedgerEntryTypeCredit, entries[0].EntryType)
	s.Nil(entries[0].InvoiceID)

	names := s.GetNotificationNames()
	s.Contains(names, types.NotificationEventPaymentReceived)
	s.Contains(names, types.NotificationEventInvoicePaid)
}

func (s *PaymentServiceSuite) TestAutoAllocationPrefersOwnInvoice() {
	s.createInvoice("40", 24*time.Hour)
	own := s.createInvoice("40", 20*24*time.Hour)

	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID: s.testData.account.ID,
		InvoiceID: lo.ToPtr(own.ID),
		Amount:    decimal.NewFromInt(50),
	})
	s.Require().NoError(err)

	s.Require().Len(p.Allocations, 2)
	s.Equal(own.ID, p.Allocations[0].InvoiceID)
	s.True(decimal.NewFromInt(40).Equal(p.Allocations[0].Amount))
	s.True(decimal.NewFromInt(10).Equal(p.Allocations[1].Amount))
}

func (s *PaymentServiceSuite) TestAutoAllocationSkipsOtherCurrencies() {
	kes, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     s.testData.account.ID,
		Currency:      "KES",
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		Lines: []dto.CreateInvoiceLineRequest{{
			Description: "Fibre",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(3000),
		}},
	})
	s.Require().NoError(err)

	p := s.pay("10")
	s.Empty(p.Allocations)
	s.Equal(types.InvoiceStatusIssued, s.getInvoice(kes.ID).InvoiceStatus)
	s.Len(s.ledger(p.ID), 1)
}

func (s *PaymentServiceSuite) TestExplicitAllocations() {
	a := s.createInvoice("40", 24*time.Hour)
	b := s.createInvoice("40", 48*time.Hour)

	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID: s.testData.account.ID,
		Amount:    decimal.NewFromInt(40),
		Allocations: []dto.PaymentAllocationRequest{
			{InvoiceID: b.ID, Amount: decimal.NewFromInt(25)},
			{InvoiceID: a.ID, Amount: decimal.NewFromInt(15)},
		},
	})
	s.Require().NoError(err)
	s.Len(p.Allocations, 2)

	s.Equal(types.InvoiceStatusPartiallyPaid, s.getInvoice(a.ID).InvoiceStatus)
	s.True(decimal.NewFromInt(15).Equal(s.getInvoice(b.ID).BalanceDue))

	_, err = s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID: s.testData.account.ID,
		Amount:    decimal.NewFromInt(10),
		Allocations: []dto.PaymentAllocationRequest{
			{InvoiceID: a.ID, Amount: decimal.NewFromInt(11)},
		},
	})
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestCreatePaymentAllocation() {
	inv := s.createInvoice("100", 24*time.Hour)
	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID:      s.testData.account.ID,
		Amount:         decimal.NewFromInt(60),
		SkipAllocation: true,
	})
	s.Require().NoError(err)
	s.Empty(p.Allocations)

	alloc, err := s.service.CreatePaymentAllocation(s.GetContext(), dto.CreatePaymentAllocationRequest{
		PaymentID: p.ID,
		InvoiceID: inv.ID,
		Amount:    decimal.NewFromInt(60),
	})
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(40).Equal(s.getInvoice(inv.ID).BalanceDue))

	// the same pair returns the stored row
	again, err := s.service.CreatePaymentAllocation(s.GetContext(), dto.CreatePaymentAllocationRequest{
		PaymentID: p.ID,
		InvoiceID: inv.ID,
		Amount:    decimal.NewFromInt(5),
	})
	s.Require().NoError(err)
	s.Equal(alloc.ID, again.ID)
	s.Len(s.ledger(p.ID), 1)

	other := s.createInvoice("10", 48*time.Hour)
	_, err = s.service.CreatePaymentAllocation(s.GetContext(), dto.CreatePaymentAllocationRequest{
		PaymentID: p.ID,
		InvoiceID: other.ID,
		Amount:    decimal.NewFromInt(1),
	})
	s.True(ierr.IsValidation(err), "payment is fully allocated")
}

func (s *PaymentServiceSuite) TestAllocationRejectsForeignInvoice() {
	stranger := s.CreateAccount("Stranger")
	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     stranger.ID,
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		Lines: []dto.CreateInvoiceLineRequest{{
			Description: "Fibre",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(10),
		}},
	})
	s.Require().NoError(err)

	p := s.pay("10")
	_, err = s.service.CreatePaymentAllocation(s.GetContext(), dto.CreatePaymentAllocationRequest{
		PaymentID: p.ID,
		InvoiceID: inv.ID,
		Amount:    decimal.NewFromInt(1),
	})
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestPendingPaymentSettles() {
	inv := s.createInvoice("80", 24*time.Hour)

	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID:     s.testData.account.ID,
		Amount:        decimal.NewFromInt(80),
		PaymentStatus: lo.ToPtr(types.PaymentStatusPending),
	})
	s.Require().NoError(err)
	s.Empty(p.Allocations)
	s.Empty(s.ledger(p.ID))
	s.Nil(p.PaidAt)

	// pending money does not pay the invoice yet
	got := s.getInvoice(inv.ID)
	s.Equal(types.InvoiceStatusIssued, got.InvoiceStatus)
	s.True(got.AmountPaid.IsZero())

	settled, err := s.service.MarkPaymentStatus(s.GetContext(), p.ID, dto.MarkPaymentStatusRequest{
		PaymentStatus: types.PaymentStatusSucceeded,
	})
	s.Require().NoError(err)
	s.NotNil(settled.PaidAt)
	s.Require().Len(settled.Allocations, 1)
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)

	entries := s.ledger(p.ID)
	s.Require().Len(entries, 1)
	s.Equal(types.LedgerEntryTypeCredit, entries[0].EntryType)
	s.Equal(inv.ID, lo.FromPtr(entries[0].InvoiceID))

	_, err = s.service.MarkPaymentStatus(s.GetContext(), p.ID, dto.MarkPaymentStatusRequest{
		PaymentStatus: types.PaymentStatusPending,
	})
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestSucceededWithoutAllocationsAutoAllocates() {
	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID:      s.testData.account.ID,
		Amount:         decimal.NewFromInt(25),
		PaymentStatus:  lo.ToPtr(types.PaymentStatusPending),
		SkipAllocation: true,
	})
	s.Require().NoError(err)

	inv := s.createInvoice("25", 24*time.Hour)
	settled, err := s.service.MarkPaymentStatus(s.GetContext(), p.ID, dto.MarkPaymentStatusRequest{
		PaymentStatus: types.PaymentStatusSucceeded,
	})
	s.Require().NoError(err)
	s.Require().Len(settled.Allocations, 1)
	s.Equal(inv.ID, settled.Allocations[0].InvoiceID)
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)
}

func (s *PaymentServiceSuite) TestPendingAllocationPostedOnSettle() {
	inv := s.createInvoice("60", 24*time.Hour)

	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID:     s.testData.account.ID,
		Amount:        decimal.NewFromInt(60),
		PaymentStatus: lo.ToPtr(types.PaymentStatusPending),
		Allocations: []dto.PaymentAllocationRequest{
			{InvoiceID: inv.ID, Amount: decimal.NewFromInt(60)},
		},
	})
	s.Require().NoError(err)
	s.Len(p.Allocations, 1)
	s.Empty(s.ledger(p.ID))

	_, err = s.service.MarkPaymentStatus(s.GetContext(), p.ID, dto.MarkPaymentStatusRequest{
		PaymentStatus: types.PaymentStatusSucceeded,
	})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)

	entries := s.ledger(p.ID)
	s.Require().Len(entries, 1)
	s.True(decimal.NewFromInt(60).Equal(entries[0].Amount))
	s.Equal(inv.ID, lo.FromPtr(entries[0].InvoiceID))
}

func (s *PaymentServiceSuite) TestPendingPaymentThatFailsLeavesNoCredit() {
	tests := []struct {
		name   string
		status types.PaymentStatus
	}{
		{"failed", types.PaymentStatusFailed},
		{"canceled", types.PaymentStatusCanceled},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
				AccountID:     s.testData.account.ID,
				Amount:        decimal.NewFromInt(25),
				PaymentStatus: lo.ToPtr(types.PaymentStatusPending),
			})
			s.Require().NoError(err)
			s.Empty(s.ledger(p.ID))

			_, err = s.service.MarkPaymentStatus(s.GetContext(), p.ID, dto.MarkPaymentStatusRequest{
				PaymentStatus: tc.status,
			})
			s.Require().NoError(err)
			s.Empty(s.ledger(p.ID))
		})
	}
}

func (s *PaymentServiceSuite) TestAllocationsAreCheckedAfterRounding() {
	a := s.createInvoice("20", 24*time.Hour)
	b := s.createInvoice("20", 2*24*time.Hour)

	_, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID: s.testData.account.ID,
		Amount:    decimal.RequireFromString("10.00"),
		Allocations: []dto.PaymentAllocationRequest{
			{InvoiceID: a.ID, Amount: decimal.RequireFromString("5.005")},
			{InvoiceID: b.ID, Amount: decimal.RequireFromString("4.995")},
		},
	})
	s.True(ierr.IsValidation(err))

	allocations, err := s.service.ListPaymentAllocations(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Empty(allocations.Items)

	// rounded amounts that fit are stored rounded
	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID: s.testData.account.ID,
		Amount:    decimal.RequireFromString("10.00"),
		Allocations: []dto.PaymentAllocationRequest{
			{InvoiceID: a.ID, Amount: decimal.RequireFromString("5.004")},
			{InvoiceID: b.ID, Amount: decimal.RequireFromString("4.995")},
		},
	})
	s.Require().NoError(err)
	total := decimal.Zero
	for _, alloc := range p.Allocations {
		total = total.Add(alloc.Amount)
	}
	s.True(decimal.RequireFromString("10.00").Equal(total))
}

func (s *PaymentServiceSuite) TestFailedPaymentNotifies() {
	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID:     s.testData.account.ID,
		Amount:        decimal.NewFromInt(25),
		PaymentStatus: lo.ToPtr(types.PaymentStatusPending),
	})
	s.Require().NoError(err)

	failed, err := s.service.MarkPaymentStatus(s.GetContext(), p.ID, dto.MarkPaymentStatusRequest{
		PaymentStatus: types.PaymentStatusFailed,
	})
	s.Require().NoError(err)
	s.NotNil(failed.FailedAt)
	s.Equal([]types.NotificationEventName{types.NotificationEventPaymentFailed}, s.GetNotificationNames())
}

func (s *PaymentServiceSuite) TestRefund() {
	inv := s.createInvoice("100", 24*time.Hour)
	p := s.pay("100")

	resp, err := s.service.ProcessRefund(s.GetContext(), p.ID, dto.RefundPaymentRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(40)),
	})
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPartiallyRefunded, resp.Payment.PaymentStatus)
	s.True(decimal.NewFromInt(40).Equal(resp.Payment.RefundedAmount))
	s.Equal(types.LedgerEntryTypeDebit, resp.LedgerEntry.EntryType)
	s.Equal(types.LedgerEntrySourceRefund, resp.LedgerEntry.Source)
	s.True(decimal.NewFromInt(40).Equal(resp.LedgerEntry.Amount))
	s.Nil(resp.CreditNote)

	_, err = s.service.ProcessRefund(s.GetContext(), p.ID, dto.RefundPaymentRequest{
		Amount: lo.ToPtr(decimal.NewFromInt(70)),
	})
	s.True(ierr.IsValidation(err))

	full, err := s.service.ProcessRefund(s.GetContext(), p.ID, dto.RefundPaymentRequest{})
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusRefunded, full.Payment.PaymentStatus)
	s.True(decimal.NewFromInt(60).Equal(full.LedgerEntry.Amount))
	s.Empty(full.Payment.Allocations)
	s.Empty(s.getInvoice(inv.ID).Allocations)

	_, err = s.service.ProcessRefund(s.GetContext(), p.ID, dto.RefundPaymentRequest{})
	s.True(ierr.IsValidation(err))

	refunds := lo.Filter(s.GetNotificationNames(), func(n types.NotificationEventName, _ int) bool {
		return n == types.NotificationEventPaymentRefunded
	})
	s.Len(refunds, 2)
}

func (s *PaymentServiceSuite) TestRefundWithCreditNote() {
	p := s.pay("30")

	resp, err := s.service.ProcessRefund(s.GetContext(), p.ID, dto.RefundPaymentRequest{
		Amount:           lo.ToPtr(decimal.NewFromInt(10)),
		CreateCreditNote: lo.ToPtr(true),
	})
	s.Require().NoError(err)
	s.Require().NotNil(resp.CreditNote)
	s.Equal(types.CreditNoteStatusIssued, resp.CreditNote.CreditNoteStatus)
	s.Equal(p.ID, lo.FromPtr(resp.CreditNote.PaymentID))
	s.True(decimal.NewFromInt(10).Equal(resp.CreditNote.Total))
	s.Len(resp.CreditNote.Lines, 1)
}

func (s *PaymentServiceSuite) TestRefundRequiresSettledPayment() {
	p, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID:     s.testData.account.ID,
		Amount:        decimal.NewFromInt(25),
		PaymentStatus: lo.ToPtr(types.PaymentStatusPending),
	})
	s.Require().NoError(err)

	_, err = s.service.ProcessRefund(s.GetContext(), p.ID, dto.RefundPaymentRequest{})
	s.True(ierr.IsValidation(err))
	s.Empty(s.ledger(p.ID))
}

func (s *PaymentServiceSuite) TestReversePayment() {
	inv := s.createInvoice("50", 24*time.Hour)
	p := s.pay("50")
	s.Equal(types.InvoiceStatusPaid, s.getInvoice(inv.ID).InvoiceStatus)

	reversed, err := s.service.ReversePayment(s.GetContext(), p.ID, dto.ReversePaymentRequest{
		Memo: lo.ToPtr("chargeback"),
	})
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusFailed, reversed.PaymentStatus)
	s.Equal("chargeback", lo.FromPtr(reversed.Memo))

	filter := types.NewLedgerEntryFilter()
	filter.PaymentID = p.ID
	filter.Sources = []types.LedgerEntrySource{types.LedgerEntrySourceAdjustment}
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(types.LedgerEntryTypeDebit, entries[0].EntryType)
	s.True(decimal.NewFromInt(50).Equal(entries[0].Amount))

	// paid invoices do not reopen
	got := s.getInvoice(inv.ID)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
	s.True(got.AmountPaid.IsZero())

	_, err = s.service.ReversePayment(s.GetContext(), p.ID, dto.ReversePaymentRequest{})
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestDeletePayment() {
	inv := s.createInvoice("50", 24*time.Hour)
	p := s.pay("20")
	s.Equal(types.InvoiceStatusPartiallyPaid, s.getInvoice(inv.ID).InvoiceStatus)

	s.Require().NoError(s.service.DeletePayment(s.GetContext(), p.ID))
	_, err := s.service.GetPayment(s.GetContext(), p.ID)
	s.True(ierr.IsNotFound(err))

	got := s.getInvoice(inv.ID)
	s.True(got.AmountPaid.IsZero())
	s.True(decimal.NewFromInt(50).Equal(got.BalanceDue))
}

func (s *PaymentServiceSuite) TestDeletePaymentAllocationKeepsLedger() {
	inv := s.createInvoice("50", 24*time.Hour)
	p := s.pay("50")
	s.Require().Len(p.Allocations, 1)

	s.Require().NoError(s.service.DeletePaymentAllocation(s.GetContext(), p.Allocations[0].ID))
	s.Empty(s.getInvoice(inv.ID).Allocations)
	s.Len(s.ledger(p.ID), 1)
}

func (s *PaymentServiceSuite) TestPaymentRouting() {
	mpesa := s.CreateProvider("mpesa")
	ctx := s.GetContext()
	repo := s.GetStores().PaymentChannelRepo

	usdAccount := &paymentchannel.CollectionAccount{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COLLECTION_ACCOUNT),
		Name:      "USD collections",
		Currency:  lo.ToPtr("USD"),
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	fallback := &paymentchannel.CollectionAccount{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COLLECTION_ACCOUNT),
		Name:      "Operating",
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	s.Require().NoError(repo.CreateCollectionAccount(ctx, usdAccount))
	s.Require().NoError(repo.CreateCollectionAccount(ctx, fallback))

	paybill := &paymentchannel.Channel{
		ID:                         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_CHANNEL),
		ProviderID:                 lo.ToPtr(mpesa.ID),
		Name:                       "Paybill",
		DefaultCollectionAccountID: lo.ToPtr(fallback.ID),
		BaseModel:                  types.GetDefaultBaseModel(ctx),
	}
	s.Require().NoError(repo.CreateChannel(ctx, paybill))
	s.Require().NoError(repo.CreateChannelAccount(ctx, &paymentchannel.ChannelAccount{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHANNEL_ACCOUNT),
		PaymentChannelID:    paybill.ID,
		CollectionAccountID: usdAccount.ID,
		Currency:            lo.ToPtr("USD"),
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}))

	p, err := s.service.CreatePayment(ctx, dto.CreatePaymentRequest{
		AccountID:  s.testData.account.ID,
		ProviderID: lo.ToPtr(mpesa.ID),
		Amount:     decimal.NewFromInt(5),
	})
	s.Require().NoError(err)
	s.Equal(paybill.ID, lo.FromPtr(p.PaymentChannelID))
	s.Equal(usdAccount.ID, lo.FromPtr(p.CollectionAccountID))

	kes, err := s.service.CreatePayment(ctx, dto.CreatePaymentRequest{
		AccountID:  s.testData.account.ID,
		ProviderID: lo.ToPtr(mpesa.ID),
		Amount:     decimal.NewFromInt(500),
		Currency:   "KES",
	})
	s.Require().NoError(err)
	s.Equal(fallback.ID, lo.FromPtr(kes.CollectionAccountID))

	// a second non-default channel makes the provider ambiguous
	s.Require().NoError(repo.CreateChannel(ctx, &paymentchannel.Channel{
		ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_CHANNEL),
		ProviderID: lo.ToPtr(mpesa.ID),
		Name:       "Till",
		BaseModel:  types.GetDefaultBaseModel(ctx),
	}))
	_, err = s.service.CreatePayment(ctx, dto.CreatePaymentRequest{
		AccountID:  s.testData.account.ID,
		ProviderID: lo.ToPtr(mpesa.ID),
		Amount:     decimal.NewFromInt(5),
	})
	s.True(ierr.IsValidation(err))

	// an explicit channel still works
	explicit, err := s.service.CreatePayment(ctx, dto.CreatePaymentRequest{
		AccountID:        s.testData.account.ID,
		ProviderID:       lo.ToPtr(mpesa.ID),
		PaymentChannelID: lo.ToPtr(paybill.ID),
		Amount:           decimal.NewFromInt(5),
	})
	s.Require().NoError(err)
	s.Equal(paybill.ID, lo.FromPtr(explicit.PaymentChannelID))
}

func (s *PaymentServiceSuite) TestPaymentMethodOwnership() {
	stranger := s.CreateAccount("Stranger")
	method := &paymentchannel.Method{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
		AccountID: stranger.ID,
		Kind:      "mobile_money",
		Label:     "0700 000 000",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.GetStores().PaymentChannelRepo.CreateMethod(s.GetContext(), method))

	_, err := s.service.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		AccountID:       s.testData.account.ID,
		PaymentMethodID: lo.ToPtr(method.ID),
		Amount:          decimal.NewFromInt(5),
	})
	s.True(ierr.IsValidation(err))
}

func TestPickProviderChannel(t *testing.T) {
	ch := func(id string, isDefault bool) *paymentchannel.Channel {
		return &paymentchannel.Channel{ID: id, IsDefault: isDefault}
	}
	tests := []struct {
		name     string
		channels []*paymentchannel.Channel
		want     string
		wantErr  bool
	}{
		{name: "none", channels: nil, want: ""},
		{name: "single", channels: []*paymentchannel.Channel{ch("a", false)}, want: "a"},
		{name: "one default", channels: []*paymentchannel.Channel{ch("a", true), ch("b", false)}, want: "a"},
		{name: "no default", channels: []*paymentchannel.Channel{ch("a", false), ch("b", false)}, wantErr: true},
		{name: "two defaults", channels: []*paymentchannel.Channel{ch("a", true), ch("b", true)}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pickProviderChannel("prov_1", tc.channels)
			if tc.wantErr {
				if !ierr.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			gotID := ""
			if got != nil {
				gotID = got.ID
			}
			if gotID != tc.want {
				t.Fatalf("pickProviderChannel() = %q, want %q", gotID, tc.want)
			}
		})
	}
}

func TestPickChannelAccount(t *testing.T) {
	m := func(id string, currency *string) *paymentchannel.ChannelAccount {
		return &paymentchannel.ChannelAccount{ID: id, Currency: currency}
	}
	mappings := []*paymentchannel.ChannelAccount{
		m("any", nil),
		m("usd", lo.ToPtr("USD")),
		m("kes", lo.ToPtr("KES")),
	}

	tests := []struct {
		name     string
		mappings []*paymentchannel.ChannelAccount
		currency string
		want     string
	}{
		{"currency match wins over agnostic", mappings, "usd", "usd"},
		{"agnostic fallback", mappings, "EUR", "any"},
		{"nothing", []*paymentchannel.ChannelAccount{m("kes", lo.ToPtr("KES"))}, "USD", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pickChannelAccount(tc.mappings, tc.currency)
			gotID := ""
			if got != nil {
				gotID = got.ID
			}
			if gotID != tc.want {
				t.Fatalf("pickChannelAccount() = %q, want %q", gotID, tc.want)
			}
		})
	}
}
