package service

import (
	"context"
	"errors"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	"github.com/flexprice/ispbilling/internal/domain/provider"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/idempotency"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ProviderEventService turns inbound gateway events into payment changes
type ProviderEventService interface {
	// Ingest records the event once per (provider, idempotency key) and applies it.
	// Replays return the stored event without side effects.
	Ingest(ctx context.Context, req dto.IngestProviderEventRequest) (*dto.ProviderEventResponse, error)
	GetEvent(ctx context.Context, id string) (*dto.ProviderEventResponse, error)
	ListEvents(ctx context.Context, filter *types.ProviderEventFilter) ([]*dto.ProviderEventResponse, error)
}

type providerEventService struct {
	ServiceParams
	paymentService *paymentService
	idempGen       *idempotency.Generator
}

var errEventReplayed = errors.New("provider event already ingested")

func NewProviderEventService(params ServiceParams) ProviderEventService {
	return &providerEventService{
		ServiceParams:  params,
		paymentService: newPaymentService(params),
		idempGen:       idempotency.NewGenerator(),
	}
}

func (s *providerEventService) Ingest(ctx context.Context, req dto.IngestProviderEventRequest) (*dto.ProviderEventResponse, error) {
	if req.IdempotencyKey == "" && req.ExternalID != nil {
		req.IdempotencyKey = s.idempGen.GenerateKey(idempotency.ScopeProviderEvent, map[string]interface{}{
			"provider_id": req.ProviderID,
			"event_type":  req.EventType,
			"external_id": *req.ExternalID,
		})
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.ProviderRepo.Get(ctx, req.ProviderID); err != nil {
		return nil, err
	}

	if existing, err := s.replay(ctx, req.ProviderID, req.IdempotencyKey); err != nil || existing != nil {
		return existing, err
	}

	var event *provider.Event
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		event = req.ToEvent(ctx)
		if err := event.Validate(); err != nil {
			return err
		}
		if err := s.ProviderEventRepo.Create(ctx, event); err != nil {
			if ierr.IsAlreadyExists(err) {
				return errEventReplayed
			}
			return err
		}
		return s.apply(ctx, event)
	})
	if errors.Is(err, errEventReplayed) {
		// lost the race against a concurrent delivery of the same event
		return s.replay(ctx, req.ProviderID, req.IdempotencyKey)
	}
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("ingested provider event",
		"provider_event_id", event.ID,
		"provider_id", event.ProviderID,
		"event_type", event.EventType,
		"payment_id", lo.FromPtr(event.PaymentID),
		"processing_status", event.ProcessingStatus,
	)
	return dto.NewProviderEventResponse(event, false), nil
}

func (s *providerEventService) replay(ctx context.Context, providerID, key string) (*dto.ProviderEventResponse, error) {
	existing, err := s.ProviderEventRepo.GetByIdempotencyKey(ctx, providerID, key)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	s.Logger.Debugw("provider event replayed",
		"provider_event_id", existing.ID,
		"provider_id", providerID,
		"idempotency_key", key,
	)
	return dto.NewProviderEventResponse(existing, true), nil
}

// apply resolves the payment behind the event and drives its status. Rule
// violations on the payment are recorded on the event instead of failing ingestion.
func (s *providerEventService) apply(ctx context.Context, event *provider.Event) error {
	p, err := s.resolvePayment(ctx, event)
	if err != nil {
		return err
	}

	status, terminal := event.EventType.TerminalPaymentStatus()
	switch {
	case p == nil && terminal:
		s.finish(event, errors.New("no payment could be resolved for event"))
	case p == nil:
		s.finish(event, nil)
	default:
		event.PaymentID = lo.ToPtr(p.ID)
		event.AccountID = lo.ToPtr(p.AccountID)

		err := s.allocateToInvoice(ctx, p, event.InvoiceID)
		if err == nil && terminal {
			err = s.driveStatus(ctx, p, status, event)
		}
		if err != nil && !ierr.IsValidation(err) {
			return err
		}
		s.finish(event, err)
	}

	event.UpdatedAt = time.Now().UTC()
	return s.ProviderEventRepo.Update(ctx, event)
}

func (s *providerEventService) finish(event *provider.Event, cause error) {
	now := time.Now().UTC()
	event.ProcessedAt = &now
	if cause != nil {
		event.ProcessingStatus = types.ProviderEventStatusFailed
		event.Error = lo.ToPtr(cause.Error())
		return
	}
	event.ProcessingStatus = types.ProviderEventStatusProcessed
	event.Error = nil
}

// resolvePayment finds the payment by id, then by the gateway's external id,
// and finally creates a pending one when the event carries account, amount and currency.
func (s *providerEventService) resolvePayment(ctx context.Context, event *provider.Event) (*payment.Payment, error) {
	if event.PaymentID != nil {
		return s.PaymentRepo.Get(ctx, *event.PaymentID)
	}

	if event.ExternalID != nil {
		p, err := s.PaymentRepo.GetByExternalID(ctx, event.ProviderID, *event.ExternalID)
		if err == nil {
			return p, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	if event.AccountID == nil || event.Amount == nil {
		return nil, nil
	}

	req := dto.CreatePaymentRequest{
		AccountID:      *event.AccountID,
		InvoiceID:      event.InvoiceID,
		ProviderID:     lo.ToPtr(event.ProviderID),
		Amount:         *event.Amount,
		Currency:       lo.FromPtr(event.Currency),
		PaymentStatus:  lo.ToPtr(types.PaymentStatusPending),
		ExternalID:     event.ExternalID,
		SkipAllocation: true,
	}
	resp, err := s.paymentService.CreatePayment(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Payment, nil
}

// allocateToInvoice creates the single allocation an event may name, once
func (s *providerEventService) allocateToInvoice(ctx context.Context, p *payment.Payment, invoiceID *string) error {
	if invoiceID == nil {
		return nil
	}

	_, err := s.PaymentAllocationRepo.GetByPaymentAndInvoice(ctx, p.ID, *invoiceID)
	if err == nil {
		return nil
	}
	if !ierr.IsNotFound(err) {
		return err
	}
	if !p.PaymentStatus.IsAllocatable() {
		return nil
	}

	allocations, err := s.paymentService.paymentAllocations(ctx, p.ID)
	if err != nil {
		return err
	}
	inv, err := s.InvoiceRepo.Get(ctx, *invoiceID)
	if err != nil {
		return err
	}
	amount := decimal.Min(types.RoundMoney(p.Amount.Sub(sumAllocations(allocations))), inv.BalanceDue)
	if !amount.IsPositive() {
		return nil
	}

	_, err = s.paymentService.CreatePaymentAllocation(ctx, dto.CreatePaymentAllocationRequest{
		PaymentID: p.ID,
		InvoiceID: inv.ID,
		Amount:    amount,
	})
	return err
}

// driveStatus moves the payment to the status the event reports. Refunds of a
// settled payment go through the refund flow so the ledger sees them.
func (s *providerEventService) driveStatus(ctx context.Context, p *payment.Payment, status types.PaymentStatus, event *provider.Event) error {
	if status == types.PaymentStatusRefunded &&
		(p.PaymentStatus == types.PaymentStatusSucceeded || p.PaymentStatus == types.PaymentStatusPartiallyRefunded) {
		_, err := s.paymentService.ProcessRefund(ctx, p.ID, dto.RefundPaymentRequest{
			Amount: event.Amount,
			Memo:   lo.ToPtr("refund reported by provider"),
		})
		return err
	}

	_, err := s.paymentService.markStatus(ctx, p.ID, status, nil)
	return err
}

func (s *providerEventService) GetEvent(ctx context.Context, id string) (*dto.ProviderEventResponse, error) {
	event, err := s.ProviderEventRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewProviderEventResponse(event, false), nil
}

func (s *providerEventService) ListEvents(ctx context.Context, filter *types.ProviderEventFilter) ([]*dto.ProviderEventResponse, error) {
	if filter == nil {
		filter = types.NewProviderEventFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	events, err := s.ProviderEventRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return lo.Map(events, func(e *provider.Event, _ int) *dto.ProviderEventResponse {
		return dto.NewProviderEventResponse(e, false)
	}), nil
}
