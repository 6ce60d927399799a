package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/domain/provider"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/testutil"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ProviderEventServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        ProviderEventService
	paymentService PaymentService
	invoiceService InvoiceService
	testData       struct {
		account  *account.Account
		provider *provider.Provider
		invoice  *dto.InvoiceResponse
	}
}

func TestProviderEventService(t *testing.T) {
	suite.Run(t, new(ProviderEventServiceSuite))
}

func (s *ProviderEventServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	s.service = NewProviderEventService(params)
	s.paymentService = NewPaymentService(params)
	s.invoiceService = NewInvoiceService(params)

	s.testData.account = s.CreateAccount("Kilimani Towers")
	s.testData.provider = s.CreateProvider("mpesa")

	inv, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		AccountID:     s.testData.account.ID,
		InvoiceStatus: lo.ToPtr(types.InvoiceStatusIssued),
		DueAt:         lo.ToPtr(s.GetNow().Add(7 * 24 * time.Hour)),
		Lines: []dto.CreateInvoiceLineRequest{{
			Description: "Fibre 50 Mbps",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(45),
		}},
	})
	s.Require().NoError(err)
	s.testData.invoice = inv
}

func (s *ProviderEventServiceSuite) event(key string, eventType types.ProviderEventType) dto.IngestProviderEventRequest {
	return dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: key,
		EventType:      eventType,
		AccountID:      lo.ToPtr(s.testData.account.ID),
		InvoiceID:      lo.ToPtr(s.testData.invoice.ID),
		ExternalID:     lo.ToPtr("QK71XYZ"),
		Amount:         lo.ToPtr(decimal.NewFromInt(45)),
		Currency:       lo.ToPtr("usd"),
		Payload:        json.RawMessage(`{"receipt":"QK71XYZ"}`),
	}
}

func (s *ProviderEventServiceSuite) invoiceStatus() types.InvoiceStatus {
	inv, err := s.invoiceService.GetInvoice(s.GetContext(), s.testData.invoice.ID)
	s.Require().NoError(err)
	return inv.InvoiceStatus
}

func (s *ProviderEventServiceSuite) TestSucceededEventCreatesAndSettlesPayment() {
	resp, err := s.service.Ingest(s.GetContext(), s.event("evt-1", types.ProviderEventTypePaymentSucceeded))
	s.Require().NoError(err)
	s.False(resp.Replayed)
	s.Equal(types.ProviderEventStatusProcessed, resp.ProcessingStatus)
	s.NotNil(resp.ProcessedAt)
	s.Require().NotNil(resp.PaymentID)
	s.Equal("USD", lo.FromPtr(resp.Currency))

	p, err := s.paymentService.GetPayment(s.GetContext(), *resp.PaymentID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusSucceeded, p.PaymentStatus)
	s.Equal("QK71XYZ", lo.FromPtr(p.ExternalID))
	s.Equal(s.testData.provider.ID, lo.FromPtr(p.ProviderID))
	s.Require().Len(p.Allocations, 1)
	s.Equal(s.testData.invoice.ID, p.Allocations[0].InvoiceID)

	s.Equal(types.InvoiceStatusPaid, s.invoiceStatus())
	s.Contains(s.GetNotificationNames(), types.NotificationEventPaymentReceived)
}

func (s *ProviderEventServiceSuite) TestReplayHasNoSideEffects() {
	first, err := s.service.Ingest(s.GetContext(), s.event("evt-1", types.ProviderEventTypePaymentSucceeded))
	s.Require().NoError(err)
	notified := len(s.GetNotifications())

	again, err := s.service.Ingest(s.GetContext(), s.event("evt-1", types.ProviderEventTypePaymentSucceeded))
	s.Require().NoError(err)
	s.True(again.Replayed)
	s.Equal(first.ID, again.ID)

	payments, err := s.paymentService.ListPayments(s.GetContext(), types.NewNoLimitPaymentFilter())
	s.Require().NoError(err)
	s.Len(payments.Items, 1)
	s.Len(s.GetNotifications(), notified)
}

func (s *ProviderEventServiceSuite) TestDerivedIdempotencyKey() {
	req := s.event("", types.ProviderEventTypePaymentPending)
	first, err := s.service.Ingest(s.GetContext(), req)
	s.Require().NoError(err)
	s.NotEmpty(first.IdempotencyKey)

	again, err := s.service.Ingest(s.GetContext(), req)
	s.Require().NoError(err)
	s.True(again.Replayed)
	s.Equal(first.IdempotencyKey, again.IdempotencyKey)

	req.ExternalID = nil
	_, err = s.service.Ingest(s.GetContext(), req)
	s.True(ierr.IsValidation(err))
}

func (s *ProviderEventServiceSuite) TestLifecycleAcrossEvents() {
	pending, err := s.service.Ingest(s.GetContext(), s.event("evt-1", types.ProviderEventTypePaymentPending))
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusProcessed, pending.ProcessingStatus)
	s.Require().NotNil(pending.PaymentID)
	s.Equal(types.InvoiceStatusIssued, s.invoiceStatus())

	// the follow-up only carries the gateway reference
	succeeded, err := s.service.Ingest(s.GetContext(), dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: "evt-2",
		EventType:      types.ProviderEventTypePaymentSucceeded,
		ExternalID:     lo.ToPtr("QK71XYZ"),
	})
	s.Require().NoError(err)
	s.Equal(*pending.PaymentID, lo.FromPtr(succeeded.PaymentID))
	s.Equal(s.testData.account.ID, lo.FromPtr(succeeded.AccountID))
	s.Equal(types.InvoiceStatusPaid, s.invoiceStatus())

	refunded, err := s.service.Ingest(s.GetContext(), dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: "evt-3",
		EventType:      types.ProviderEventTypePaymentRefunded,
		PaymentID:      pending.PaymentID,
		Amount:         lo.ToPtr(decimal.NewFromInt(15)),
	})
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusProcessed, refunded.ProcessingStatus)

	p, err := s.paymentService.GetPayment(s.GetContext(), *pending.PaymentID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusPartiallyRefunded, p.PaymentStatus)
	s.True(decimal.NewFromInt(15).Equal(p.RefundedAmount))
}

func (s *ProviderEventServiceSuite) TestPendingEventPostsNoCreditUntilSettled() {
	pending, err := s.service.Ingest(s.GetContext(), s.event("evt-1", types.ProviderEventTypePaymentPending))
	s.Require().NoError(err)
	s.Require().NotNil(pending.PaymentID)

	filter := types.NewLedgerEntryFilter()
	filter.PaymentID = *pending.PaymentID
	entries, err := s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Empty(entries)

	failed, err := s.service.Ingest(s.GetContext(), dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: "evt-2",
		EventType:      types.ProviderEventTypePaymentFailed,
		ExternalID:     lo.ToPtr("QK71XYZ"),
	})
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusProcessed, failed.ProcessingStatus)

	entries, err = s.GetStores().LedgerRepo.List(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Empty(entries)
	s.Equal(types.InvoiceStatusIssued, s.invoiceStatus())
}

func (s *ProviderEventServiceSuite) TestUnresolvableTerminalEventFails() {
	resp, err := s.service.Ingest(s.GetContext(), dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: "evt-9",
		EventType:      types.ProviderEventTypePaymentSucceeded,
		ExternalID:     lo.ToPtr("UNKNOWN"),
	})
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusFailed, resp.ProcessingStatus)
	s.Equal("no payment could be resolved for event", lo.FromPtr(resp.Error))

	stored, err := s.service.GetEvent(s.GetContext(), resp.ID)
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusFailed, stored.ProcessingStatus)
}

func (s *ProviderEventServiceSuite) TestUnresolvableInformationalEventIsProcessed() {
	resp, err := s.service.Ingest(s.GetContext(), dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: "evt-10",
		EventType:      types.ProviderEventTypePaymentUpdated,
	})
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusProcessed, resp.ProcessingStatus)
	s.Nil(resp.PaymentID)
}

func (s *ProviderEventServiceSuite) TestInvalidTransitionIsRecordedOnEvent() {
	first, err := s.service.Ingest(s.GetContext(), s.event("evt-1", types.ProviderEventTypePaymentFailed))
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusProcessed, first.ProcessingStatus)

	// failed payments cannot succeed later
	late, err := s.service.Ingest(s.GetContext(), dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: "evt-2",
		EventType:      types.ProviderEventTypePaymentSucceeded,
		PaymentID:      first.PaymentID,
	})
	s.Require().NoError(err)
	s.Equal(types.ProviderEventStatusFailed, late.ProcessingStatus)
	s.NotEmpty(lo.FromPtr(late.Error))

	p, err := s.paymentService.GetPayment(s.GetContext(), *first.PaymentID)
	s.Require().NoError(err)
	s.Equal(types.PaymentStatusFailed, p.PaymentStatus)
}

func (s *ProviderEventServiceSuite) TestUnknownProvider() {
	req := s.event("evt-1", types.ProviderEventTypePaymentSucceeded)
	req.ProviderID = "pprov_missing"
	_, err := s.service.Ingest(s.GetContext(), req)
	s.True(ierr.IsNotFound(err))

	events, err := s.service.ListEvents(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *ProviderEventServiceSuite) TestListEventsByStatus() {
	_, err := s.service.Ingest(s.GetContext(), s.event("evt-1", types.ProviderEventTypePaymentSucceeded))
	s.Require().NoError(err)
	_, err = s.service.Ingest(s.GetContext(), dto.IngestProviderEventRequest{
		ProviderID:     s.testData.provider.ID,
		IdempotencyKey: "evt-2",
		EventType:      types.ProviderEventTypePaymentFailed,
		ExternalID:     lo.ToPtr("NOPE"),
	})
	s.Require().NoError(err)

	filter := types.NewProviderEventFilter()
	filter.Statuses = []types.ProviderEventStatus{types.ProviderEventStatusFailed}
	failed, err := s.service.ListEvents(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(failed, 1)
	s.Equal("evt-2", failed[0].IdempotencyKey)
}
