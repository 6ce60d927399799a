package testutil

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/invoice"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice]("invoice"),
	}
}

// lines live in their own table
func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.Lines = nil
	return &c
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").Mark(ierr.ErrValidation)
	}
	if inv.IdempotencyKey != nil {
		if _, err := s.GetByIdempotencyKey(ctx, *inv.IdempotencyKey); err == nil {
			return ierr.NewError("invoice already exists").
				WithHintf("An invoice with idempotency key %s already exists", *inv.IdempotencyKey).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, inv.BaseModel) {
		return nil, s.notFound(id)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if _, err := s.Get(ctx, inv.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Delete(ctx context.Context, id string) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	inv.Status = types.StatusDeleted
	inv.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, inv)
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter.QueryFilter, invoiceFilterFn(filter), func(a, b *invoice.Invoice) bool {
		return createdByOrder(filter.QueryFilter, a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice { return copyInvoice(inv) }), nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	return s.InMemoryStore.Count(ctx, invoiceFilterFn(filter))
}

func (s *InMemoryInvoiceStore) ListOpenForAccount(ctx context.Context, accountID string) ([]*invoice.Invoice, error) {
	items, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, inv *invoice.Invoice) bool {
		return visible(ctx, inv.BaseModel) &&
			inv.AccountID == accountID &&
			lo.Contains(types.OpenInvoiceStatuses, inv.InvoiceStatus) &&
			inv.BalanceDue.IsPositive()
	}, dueDateAsc)
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(inv *invoice.Invoice, _ int) *invoice.Invoice { return copyInvoice(inv) }), nil
}

func (s *InMemoryInvoiceStore) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Find(ctx, key, func(ctx context.Context, inv *invoice.Invoice) bool {
		return visible(ctx, inv.BaseModel) && ptrEqual(inv.IdempotencyKey, key)
	}, nil)
	if err != nil {
		return nil, err
	}
	return copyInvoice(inv), nil
}

func invoiceFilterFn(filter *types.InvoiceFilter) FilterFunc[*invoice.Invoice] {
	return func(ctx context.Context, inv *invoice.Invoice) bool {
		if !matchesStatus(ctx, inv.BaseModel, filter.QueryFilter) {
			return false
		}
		if len(filter.InvoiceIDs) > 0 && !lo.Contains(filter.InvoiceIDs, inv.ID) {
			return false
		}
		if filter.AccountID != "" && inv.AccountID != filter.AccountID {
			return false
		}
		if len(filter.InvoiceStatus) > 0 && !lo.Contains(filter.InvoiceStatus, inv.InvoiceStatus) {
			return false
		}
		if filter.Currency != "" && inv.Currency != types.NormalizeCurrency(filter.Currency) {
			return false
		}
		if filter.BillingRunID != "" && !ptrEqual(inv.BillingRunID, filter.BillingRunID) {
			return false
		}
		if filter.Outstanding && !inv.BalanceDue.IsPositive() {
			return false
		}
		return inTimeRange(inv.CreatedAt, filter.TimeRangeFilter)
	}
}

// due_at ascending with nulls last, then created_at, then id
func dueDateAsc(a, b *invoice.Invoice) bool {
	switch {
	case a.DueAt == nil && b.DueAt != nil:
		return false
	case a.DueAt != nil && b.DueAt == nil:
		return true
	case a.DueAt != nil && b.DueAt != nil && !a.DueAt.Equal(*b.DueAt):
		return a.DueAt.Before(*b.DueAt)
	}
	return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
}

// InMemoryInvoiceLineStore implements invoice.LineRepository
type InMemoryInvoiceLineStore struct {
	*InMemoryStore[*invoice.InvoiceLine]
}

func NewInMemoryInvoiceLineStore() *InMemoryInvoiceLineStore {
	return &InMemoryInvoiceLineStore{
		InMemoryStore: NewInMemoryStore[*invoice.InvoiceLine]("invoice line"),
	}
}

func copyInvoiceLine(line *invoice.InvoiceLine) *invoice.InvoiceLine {
	if line == nil {
		return nil
	}
	c := *line
	return &c
}

func (s *InMemoryInvoiceLineStore) Create(ctx context.Context, line *invoice.InvoiceLine) error {
	return s.InMemoryStore.Create(ctx, line.ID, copyInvoiceLine(line))
}

func (s *InMemoryInvoiceLineStore) Get(ctx context.Context, id string) (*invoice.InvoiceLine, error) {
	line, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, line.BaseModel) {
		return nil, s.notFound(id)
	}
	return copyInvoiceLine(line), nil
}

func (s *InMemoryInvoiceLineStore) Update(ctx context.Context, line *invoice.InvoiceLine) error {
	if _, err := s.Get(ctx, line.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, line.ID, copyInvoiceLine(line))
}

func (s *InMemoryInvoiceLineStore) Delete(ctx context.Context, id string) error {
	line, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	line.Status = types.StatusDeleted
	line.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, line)
}

func (s *InMemoryInvoiceLineStore) List(ctx context.Context, filter *types.InvoiceLineFilter) ([]*invoice.InvoiceLine, error) {
	if filter == nil {
		filter = types.NewInvoiceLineFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter.QueryFilter, func(ctx context.Context, line *invoice.InvoiceLine) bool {
		if !matchesStatus(ctx, line.BaseModel, filter.QueryFilter) {
			return false
		}
		if len(filter.InvoiceIDs) > 0 && !lo.Contains(filter.InvoiceIDs, line.InvoiceID) {
			return false
		}
		if filter.SubscriptionID != "" && !ptrEqual(line.SubscriptionID, filter.SubscriptionID) {
			return false
		}
		if filter.PeriodStart != nil && (line.PeriodStart == nil || !line.PeriodStart.Equal(*filter.PeriodStart)) {
			return false
		}
		if filter.PeriodEnd != nil && (line.PeriodEnd == nil || !line.PeriodEnd.Equal(*filter.PeriodEnd)) {
			return false
		}
		return true
	}, func(a, b *invoice.InvoiceLine) bool {
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(line *invoice.InvoiceLine, _ int) *invoice.InvoiceLine { return copyInvoiceLine(line) }), nil
}

func (s *InMemoryInvoiceLineStore) FindForSubscriptionPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*invoice.InvoiceLine, error) {
	line, err := s.InMemoryStore.Find(ctx, subscriptionID, func(ctx context.Context, line *invoice.InvoiceLine) bool {
		return visible(ctx, line.BaseModel) &&
			ptrEqual(line.SubscriptionID, subscriptionID) &&
			line.PeriodStart != nil && line.PeriodStart.Equal(periodStart) &&
			line.PeriodEnd != nil && line.PeriodEnd.Equal(periodEnd)
	}, nil)
	if err != nil {
		return nil, err
	}
	return copyInvoiceLine(line), nil
}
