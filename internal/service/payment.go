package service

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	"github.com/flexprice/ispbilling/internal/domain/paymentchannel"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// PaymentService defines the interface for payment operations
type PaymentService interface {
	// Core payment operations
	CreatePayment(ctx context.Context, req dto.CreatePaymentRequest) (*dto.PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	UpdatePayment(ctx context.Context, id string, req dto.UpdatePaymentRequest) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
	DeletePayment(ctx context.Context, id string) error
	MarkPaymentStatus(ctx context.Context, id string, req dto.MarkPaymentStatusRequest) (*dto.PaymentResponse, error)

	// Allocations
	CreatePaymentAllocation(ctx context.Context, req dto.CreatePaymentAllocationRequest) (*dto.PaymentAllocationResponse, error)
	ListPaymentAllocations(ctx context.Context, filter *types.PaymentAllocationFilter) (*dto.ListPaymentAllocationsResponse, error)
	DeletePaymentAllocation(ctx context.Context, id string) error

	// Refunds and reversals
	ProcessRefund(ctx context.Context, id string, req dto.RefundPaymentRequest) (*dto.RefundResponse, error)
	ReversePayment(ctx context.Context, id string, req dto.ReversePaymentRequest) (*dto.PaymentResponse, error)
}

type paymentService struct {
	ServiceParams
	invoiceService    InvoiceService
	creditNoteService *creditNoteService
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return newPaymentService(params)
}

func newPaymentService(params ServiceParams) *paymentService {
	return &paymentService{
		ServiceParams:     params,
		invoiceService:    NewInvoiceService(params),
		creditNoteService: newCreditNoteService(params),
	}
}

// CreatePayment records a payment and, unless told otherwise, spreads it over
// the account's invoices in the same transaction.
func (s *paymentService) CreatePayment(ctx context.Context, req dto.CreatePaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var p *payment.Payment
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		acct, err := s.AccountRepo.Get(ctx, req.AccountID)
		if err != nil {
			return err
		}

		p = req.ToPayment(ctx)

		if p.InvoiceID != nil {
			inv, err := s.InvoiceRepo.Get(ctx, *p.InvoiceID)
			if err != nil {
				return err
			}
			if p.Currency == "" {
				p.Currency = inv.Currency
			}
			if err := validateInvoiceForPayment(p, inv); err != nil {
				return err
			}
		}
		if p.Currency == "" {
			p.Currency = types.NormalizeCurrency(acct.Currency)
		}
		if p.Currency == "" {
			p.Currency = s.Config.Billing.DefaultCurrency
		}

		var method *paymentchannel.Method
		if p.PaymentMethodID != nil {
			method, err = s.PaymentChannelRepo.GetMethod(ctx, *p.PaymentMethodID)
			if err != nil {
				return err
			}
			if method.AccountID != p.AccountID {
				return ierr.NewError("payment method belongs to a different account").
					WithHint("The payment method must belong to the paying account").
					WithReportableDetails(map[string]any{
						"payment_method_id": method.ID,
						"account_id":        p.AccountID,
					}).
					Mark(ierr.ErrValidation)
			}
			if p.ProviderID == nil {
				p.ProviderID = copyString(method.ProviderID)
			}
		}
		if p.ProviderID != nil {
			if _, err := s.ProviderRepo.Get(ctx, *p.ProviderID); err != nil {
				return err
			}
		}

		if err := s.resolveRouting(ctx, p, method); err != nil {
			return err
		}

		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.PaymentRepo.Create(ctx, p); err != nil {
			return err
		}

		// pending payments only keep the allocations they were given; auto
		// allocation waits for the money to arrive
		if !req.SkipAllocation && p.PaymentStatus.IsAllocatable() {
			if len(req.Allocations) > 0 {
				err = s.allocateExplicit(ctx, p, req.Allocations)
			} else if p.PaymentStatus == types.PaymentStatusSucceeded {
				err = s.autoAllocate(ctx, p)
			}
			if err != nil {
				return err
			}
		}

		s.notifyPaymentStatus(ctx, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created payment",
		"payment_id", p.ID,
		"account_id", p.AccountID,
		"amount", p.Amount,
		"currency", p.Currency,
		"payment_status", p.PaymentStatus,
		"payment_channel_id", lo.FromPtr(p.PaymentChannelID),
		"collection_account_id", lo.FromPtr(p.CollectionAccountID),
	)
	return s.GetPayment(ctx, p.ID)
}

// GetPayment gets a payment by ID
func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allocations, err := s.paymentAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Allocations = allocations

	return dto.NewPaymentResponse(p), nil
}

// UpdatePayment updates a payment
func (s *paymentService) UpdatePayment(ctx context.Context, id string, req dto.UpdatePaymentRequest) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ExternalID != nil {
		p.ExternalID = req.ExternalID
	}
	if req.Memo != nil {
		p.Memo = req.Memo
	}
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)

	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.GetPayment(ctx, id)
}

// ListPayments lists payments based on filter
func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	count, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = dto.NewPaymentResponse(p)
	}

	return &dto.ListPaymentsResponse{
		Items: items,
		Pagination: types.NewPaginationResponse(
			count,
			filter.GetLimit(),
			filter.GetOffset(),
		),
	}, nil
}

// DeletePayment soft deletes a payment. The invoices it paid lose that money on recompute.
func (s *paymentService) DeletePayment(ctx context.Context, id string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.PaymentRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		allocations, err := s.paymentAllocations(ctx, id)
		if err != nil {
			return err
		}

		if err := s.PaymentRepo.Delete(ctx, id); err != nil {
			return err
		}
		if err := s.recomputeAllocatedInvoices(ctx, allocations); err != nil {
			return err
		}

		s.Logger.Infow("deleted payment", "payment_id", id, "account_id", p.AccountID)
		return nil
	})
}

// MarkPaymentStatus moves a payment through its state machine and recomputes
// every invoice it is allocated to. A payment that settles without any
// allocation is spread over the open invoices first.
func (s *paymentService) MarkPaymentStatus(ctx context.Context, id string, req dto.MarkPaymentStatusRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.markStatus(ctx, id, req.PaymentStatus, req.At)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetPayment(ctx, id)
}

func (s *paymentService) markStatus(ctx context.Context, id string, next types.PaymentStatus, at *time.Time) (*payment.Payment, error) {
	p, err := s.PaymentRepo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PaymentStatus == next {
		return p, nil
	}
	if err := p.PaymentStatus.ValidateTransition(next); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if at != nil {
		now = at.UTC()
	}

	previous := p.PaymentStatus
	p.PaymentStatus = next
	switch next {
	case types.PaymentStatusSucceeded:
		if p.PaidAt == nil {
			p.PaidAt = &now
		}
	case types.PaymentStatusFailed, types.PaymentStatusCanceled:
		p.FailedAt = &now
	}
	p.UpdatedAt = time.Now().UTC()
	p.UpdatedBy = types.GetUserID(ctx)
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	allocations, err := s.paymentAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case next == types.PaymentStatusSucceeded && len(allocations) == 0:
		if err := s.autoAllocate(ctx, p); err != nil {
			return nil, err
		}
	case next == types.PaymentStatusSucceeded:
		if err := s.postSettledCredits(ctx, p, allocations); err != nil {
			return nil, err
		}
		fallthrough
	default:
		if err := s.recomputeAllocatedInvoices(ctx, allocations); err != nil {
			return nil, err
		}
	}

	s.Logger.Infow("payment status changed",
		"payment_id", p.ID,
		"account_id", p.AccountID,
		"from", previous,
		"to", next,
	)
	s.notifyPaymentStatus(ctx, p)
	return p, nil
}

// notifyPaymentStatus queues the notification matching the payment's current status
func (s *paymentService) notifyPaymentStatus(ctx context.Context, p *payment.Payment) {
	payload := paymentPayload(p)
	switch p.PaymentStatus {
	case types.PaymentStatusSucceeded:
		s.notifyAfterCommit(ctx, types.NotificationEventPaymentReceived, p.AccountID, p.InvoiceID, lo.ToPtr(p.ID), payload)
	case types.PaymentStatusFailed:
		s.notifyAfterCommit(ctx, types.NotificationEventPaymentFailed, p.AccountID, p.InvoiceID, lo.ToPtr(p.ID), payload)
	}
}

func (s *paymentService) paymentAllocations(ctx context.Context, paymentID string) ([]*payment.Allocation, error) {
	filter := types.NewPaymentAllocationFilter()
	filter.PaymentIDs = []string{paymentID}
	return s.PaymentAllocationRepo.List(ctx, filter)
}

func (s *paymentService) recomputeAllocatedInvoices(ctx context.Context, allocations []*payment.Allocation) error {
	invoiceIDs := lo.Uniq(lo.Map(allocations, func(a *payment.Allocation, _ int) string {
		return a.InvoiceID
	}))
	return s.recomputeInvoices(ctx, invoiceIDs)
}

func (s *paymentService) recomputeInvoices(ctx context.Context, invoiceIDs []string) error {
	for _, id := range invoiceIDs {
		if _, err := s.invoiceService.RecomputeTotals(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func paymentPayload(p *payment.Payment) map[string]interface{} {
	return map[string]interface{}{
		"payment_id":      p.ID,
		"amount":          p.Amount.String(),
		"refunded_amount": p.RefundedAmount.String(),
		"currency":        p.Currency,
		"payment_status":  p.PaymentStatus,
		"external_id":     lo.FromPtr(p.ExternalID),
	}
}
