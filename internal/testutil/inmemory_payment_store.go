package testutil

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/payment"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

// NewInMemoryPaymentStore creates a new in-memory payment repository
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment]("payment"),
	}
}

// allocations live in their own table
func copyPayment(p *payment.Payment) *payment.Payment {
	if p == nil {
		return nil
	}
	c := *p
	c.Allocations = nil
	return &c
}

// Create stores a new payment
func (m *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p == nil || p.ID == "" {
		return ierr.NewError("payment ID cannot be empty").
			WithHint("Payment ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return m.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (m *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, p.BaseModel) {
		return nil, m.notFound(id)
	}
	return copyPayment(p), nil
}

// GetForUpdate has nothing to lock in memory
func (m *InMemoryPaymentStore) GetForUpdate(ctx context.Context, id string) (*payment.Payment, error) {
	return m.Get(ctx, id)
}

func (m *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	if _, err := m.Get(ctx, p.ID); err != nil {
		return err
	}
	return m.InMemoryStore.Update(ctx, p.ID, copyPayment(p))
}

func (m *InMemoryPaymentStore) Delete(ctx context.Context, id string) error {
	p, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Status = types.StatusDeleted
	p.UpdatedAt = time.Now().UTC()
	return m.InMemoryStore.Update(ctx, id, p)
}

func (m *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	items, err := m.InMemoryStore.List(ctx, filter.QueryFilter, paymentFilterFn(filter), func(a, b *payment.Payment) bool {
		return createdByOrder(filter.QueryFilter, a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(p *payment.Payment, _ int) *payment.Payment { return copyPayment(p) }), nil
}

func (m *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	return m.InMemoryStore.Count(ctx, paymentFilterFn(filter))
}

func (m *InMemoryPaymentStore) GetByExternalID(ctx context.Context, providerID, externalID string) (*payment.Payment, error) {
	p, err := m.InMemoryStore.Find(ctx, externalID, func(ctx context.Context, p *payment.Payment) bool {
		return visible(ctx, p.BaseModel) && ptrEqual(p.ProviderID, providerID) && ptrEqual(p.ExternalID, externalID)
	}, func(a, b *payment.Payment) bool {
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return copyPayment(p), nil
}

func paymentFilterFn(filter *types.PaymentFilter) FilterFunc[*payment.Payment] {
	return func(ctx context.Context, p *payment.Payment) bool {
		if !matchesStatus(ctx, p.BaseModel, filter.QueryFilter) {
			return false
		}
		if len(filter.PaymentIDs) > 0 && !lo.Contains(filter.PaymentIDs, p.ID) {
			return false
		}
		if filter.AccountID != "" && p.AccountID != filter.AccountID {
			return false
		}
		if filter.InvoiceID != "" && !ptrEqual(p.InvoiceID, filter.InvoiceID) {
			return false
		}
		if filter.ProviderID != "" && !ptrEqual(p.ProviderID, filter.ProviderID) {
			return false
		}
		if filter.ExternalID != "" && !ptrEqual(p.ExternalID, filter.ExternalID) {
			return false
		}
		if len(filter.PaymentStatus) > 0 && !lo.Contains(filter.PaymentStatus, p.PaymentStatus) {
			return false
		}
		if filter.Currency != "" && p.Currency != types.NormalizeCurrency(filter.Currency) {
			return false
		}
		return inTimeRange(p.CreatedAt, filter.TimeRangeFilter)
	}
}

// InMemoryPaymentAllocationStore implements payment.AllocationRepository
type InMemoryPaymentAllocationStore struct {
	*InMemoryStore[*payment.Allocation]
}

func NewInMemoryPaymentAllocationStore() *InMemoryPaymentAllocationStore {
	return &InMemoryPaymentAllocationStore{
		InMemoryStore: NewInMemoryStore[*payment.Allocation]("payment allocation"),
	}
}

func copyAllocation(a *payment.Allocation) *payment.Allocation {
	c := *a
	return &c
}

// Create enforces the one allocation per (payment, invoice) unique index
func (m *InMemoryPaymentAllocationStore) Create(ctx context.Context, a *payment.Allocation) error {
	if _, err := m.GetByPaymentAndInvoice(ctx, a.PaymentID, a.InvoiceID); err == nil {
		return ierr.NewError("payment allocation already exists").
			WithHintf("Payment %s is already allocated to invoice %s", a.PaymentID, a.InvoiceID).
			Mark(ierr.ErrAlreadyExists)
	}
	return m.InMemoryStore.Create(ctx, a.ID, copyAllocation(a))
}

func (m *InMemoryPaymentAllocationStore) Get(ctx context.Context, id string) (*payment.Allocation, error) {
	a, err := m.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, a.BaseModel) {
		return nil, m.notFound(id)
	}
	return copyAllocation(a), nil
}

func (m *InMemoryPaymentAllocationStore) GetByPaymentAndInvoice(ctx context.Context, paymentID, invoiceID string) (*payment.Allocation, error) {
	a, err := m.InMemoryStore.Find(ctx, paymentID+"/"+invoiceID, func(ctx context.Context, a *payment.Allocation) bool {
		return visible(ctx, a.BaseModel) && a.PaymentID == paymentID && a.InvoiceID == invoiceID
	}, nil)
	if err != nil {
		return nil, err
	}
	return copyAllocation(a), nil
}

func (m *InMemoryPaymentAllocationStore) List(ctx context.Context, filter *types.PaymentAllocationFilter) ([]*payment.Allocation, error) {
	if filter == nil {
		filter = types.NewPaymentAllocationFilter()
	}
	items, err := m.InMemoryStore.List(ctx, filter.QueryFilter, func(ctx context.Context, a *payment.Allocation) bool {
		if !matchesStatus(ctx, a.BaseModel, filter.QueryFilter) {
			return false
		}
		if len(filter.PaymentIDs) > 0 && !lo.Contains(filter.PaymentIDs, a.PaymentID) {
			return false
		}
		return len(filter.InvoiceIDs) == 0 || lo.Contains(filter.InvoiceIDs, a.InvoiceID)
	}, func(a, b *payment.Allocation) bool {
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(a *payment.Allocation, _ int) *payment.Allocation { return copyAllocation(a) }), nil
}

// Delete removes the row outright; allocations are not soft deleted
func (m *InMemoryPaymentAllocationStore) Delete(ctx context.Context, id string) error {
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	return m.InMemoryStore.Delete(ctx, id)
}
