package service

import (
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/domain/subscription"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/testutil"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestProrateAmount(t *testing.T) {
	price := decimal.NewFromInt(30)
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		subStart time.Time
		subEnd   *time.Time
		want     string
	}{
		{
			name:     "whole period",
			start:    date(2025, 3, 1),
			end:      date(2025, 4, 1),
			subStart: date(2025, 2, 1),
			want:     "30",
		},
		{
			name:     "starts mid period",
			start:    date(2025, 3, 1),
			end:      date(2025, 4, 1),
			subStart: date(2025, 3, 17),
			want:     "14.52",
		},
		{
			name:     "half of february",
			start:    date(2025, 2, 1),
			end:      date(2025, 3, 1),
			subStart: date(2025, 2, 15),
			want:     "15",
		},
		{
			name:     "ends mid period",
			start:    date(2025, 3, 1),
			end:      date(2025, 4, 1),
			subStart: date(2025, 1, 1),
			subEnd:   lo.ToPtr(date(2025, 3, 11)),
			want:     "9.68",
		},
		{
			name:     "ended before the period",
			start:    date(2025, 3, 1),
			end:      date(2025, 4, 1),
			subStart: date(2025, 1, 1),
			subEnd:   lo.ToPtr(date(2025, 2, 20)),
			want:     "0",
		},
		{
			name:     "empty period",
			start:    date(2025, 3, 1),
			end:      date(2025, 3, 1),
			subStart: date(2025, 1, 1),
			want:     "0",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ProrateAmount(price, tc.start, tc.end, tc.subStart, tc.subEnd)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s want %s", got, tc.want)
		})
	}
}

func TestNaturalPeriod(t *testing.T) {
	tests := []struct {
		name       string
		cycle      types.BillingCycle
		next       *time.Time
		activation time.Time
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{
			name:       "next billing date after activation",
			cycle:      types.BillingCycleMonthly,
			next:       lo.ToPtr(date(2025, 4, 10)),
			activation: date(2025, 3, 20),
			wantStart:  date(2025, 3, 10),
			wantEnd:    date(2025, 4, 10),
		},
		{
			name:       "no next billing date uses the calendar month",
			cycle:      types.BillingCycleMonthly,
			activation: time.Date(2025, 3, 17, 10, 30, 0, 0, time.UTC),
			wantStart:  date(2025, 3, 1),
			wantEnd:    date(2025, 4, 1),
		},
		{
			name:       "stale next billing date is ignored",
			cycle:      types.BillingCycleMonthly,
			next:       lo.ToPtr(date(2025, 3, 1)),
			activation: date(2025, 3, 17),
			wantStart:  date(2025, 3, 1),
			wantEnd:    date(2025, 4, 1),
		},
		{
			name:       "weeks start on monday",
			cycle:      types.BillingCycleWeekly,
			activation: date(2025, 3, 12),
			wantStart:  date(2025, 3, 10),
			wantEnd:    date(2025, 3, 17),
		},
		{
			name:       "month end clamps",
			cycle:      types.BillingCycleMonthly,
			next:       lo.ToPtr(date(2025, 3, 31)),
			activation: date(2025, 3, 5),
			wantStart:  date(2025, 2, 28),
			wantEnd:    date(2025, 3, 31),
		},
		{
			name:       "annual",
			cycle:      types.BillingCycleAnnual,
			activation: date(2025, 7, 4),
			wantStart:  date(2025, 1, 1),
			wantEnd:    date(2026, 1, 1),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end := naturalPeriod(tc.cycle, tc.next, tc.activation)
			assert.True(t, tc.wantStart.Equal(start), "start %s want %s", start, tc.wantStart)
			assert.True(t, tc.wantEnd.Equal(end), "end %s want %s", end, tc.wantEnd)
		})
	}
}

type ProratedInvoiceSuite struct {
	testutil.BaseServiceTestSuite
	service        BillingAutomationService
	invoiceService InvoiceService
	testData       struct {
		account *account.Account
		offer   *subscription.Offer
	}
}

func TestProratedInvoice(t *testing.T) {
	suite.Run(t, new(ProratedInvoiceSuite))
}

func (s *ProratedInvoiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewBillingAutomationService(params)
	s.invoiceService = NewInvoiceService(params)
	s.testData.account = s.CreateAccount("Lavington Villas")
	s.testData.offer = s.CreateOffer("Fibre 30", lo.ToPtr(decimal.NewFromInt(30)), types.BillingCycleMonthly)
}

func (s *ProratedInvoiceSuite) prorate(subID string) *dto.ProratedInvoiceResponse {
	resp, err := s.service.GenerateProratedInvoice(s.GetContext(), dto.GenerateProratedInvoiceRequest{
		SubscriptionID: subID,
	})
	s.Require().NoError(err)
	return resp
}

func (s *ProratedInvoiceSuite) TestMidMonthActivation() {
	sub := s.CreateSubscription(s.testData.account.ID, s.testData.offer.ID, types.SubscriptionStatusActive, date(2025, 3, 17))

	resp := s.prorate(sub.ID)
	s.False(resp.Skipped)
	s.Require().NotNil(resp.Invoice)
	s.True(decimal.RequireFromString("14.52").Equal(resp.Invoice.Total), resp.Invoice.Total.String())
	s.True(date(2025, 3, 1).Equal(lo.FromPtr(resp.Invoice.BillingPeriodStart)))
	s.True(date(2025, 4, 1).Equal(lo.FromPtr(resp.Invoice.BillingPeriodEnd)))
	s.Require().Len(resp.Invoice.Lines, 1)
	s.Contains(resp.Invoice.Lines[0].Description, "(prorated)")
	s.Equal(sub.ID, lo.FromPtr(resp.Invoice.Lines[0].SubscriptionID))

	stored, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), sub.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.NextBillingAt)
	s.True(date(2025, 4, 1).Equal(*stored.NextBillingAt))

	again := s.prorate(sub.ID)
	s.True(again.Skipped)
	s.Equal("period already billed", again.SkipReason)

	// the regular run continues with the following full period
	summary, err := s.service.RunInvoiceCycle(s.GetContext(), dto.RunInvoiceCycleRequest{
		RunAt: lo.ToPtr(date(2025, 4, 2)),
	})
	s.Require().NoError(err)
	s.Require().Len(summary.InvoiceIDs, 1)
	inv, err := s.invoiceService.GetInvoice(s.GetContext(), summary.InvoiceIDs[0])
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(30).Equal(inv.Total))
	s.True(date(2025, 4, 1).Equal(lo.FromPtr(inv.BillingPeriodStart)))
}

func (s *ProratedInvoiceSuite) TestActivationDateOverride() {
	sub := s.CreateSubscription(s.testData.account.ID, s.testData.offer.ID, types.SubscriptionStatusActive, date(2025, 3, 1))

	resp, err := s.service.GenerateProratedInvoice(s.GetContext(), dto.GenerateProratedInvoiceRequest{
		SubscriptionID: sub.ID,
		ActivationDate: lo.ToPtr(date(2025, 2, 15)),
	})
	s.Require().NoError(err)
	s.False(resp.Skipped)
	s.True(decimal.NewFromInt(15).Equal(resp.Invoice.Total))
}

func (s *ProratedInvoiceSuite) TestSkips() {
	boundary := s.CreateSubscription(s.testData.account.ID, s.testData.offer.ID, types.SubscriptionStatusActive, date(2025, 3, 1))
	resp := s.prorate(boundary.ID)
	s.True(resp.Skipped)
	s.Equal("activation is on a period boundary", resp.SkipReason)
	s.Nil(resp.Invoice)

	unpriced := s.CreateOffer("Legacy", nil, types.BillingCycleMonthly)
	legacy := s.CreateSubscription(s.testData.account.ID, unpriced.ID, types.SubscriptionStatusActive, date(2025, 3, 17))
	resp = s.prorate(legacy.ID)
	s.True(resp.Skipped)
	s.Equal("subscription has no price", resp.SkipReason)

	instant := s.CreateSubscription(s.testData.account.ID, s.testData.offer.ID, types.SubscriptionStatusActive, date(2025, 3, 17))
	instant.EndAt = lo.ToPtr(date(2025, 3, 17))
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(s.GetContext(), instant))
	resp = s.prorate(instant.ID)
	s.True(resp.Skipped)
	s.Equal("prorated amount is zero", resp.SkipReason)

	invoices, err := s.GetStores().InvoiceRepo.List(s.GetContext(), types.NewNoLimitInvoiceFilter())
	s.Require().NoError(err)
	s.Empty(invoices)
}

func (s *ProratedInvoiceSuite) TestUnknownSubscription() {
	_, err := s.service.GenerateProratedInvoice(s.GetContext(), dto.GenerateProratedInvoiceRequest{
		SubscriptionID: "sub_missing",
	})
	s.True(ierr.IsNotFound(err))

	_, err = s.service.GenerateProratedInvoice(s.GetContext(), dto.GenerateProratedInvoiceRequest{})
	s.True(ierr.IsValidation(err))
}
