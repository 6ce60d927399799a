package testutil

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryLedgerStore implements ledger.Repository. Like the table, it only appends.
type InMemoryLedgerStore struct {
	*InMemoryStore[*ledger.Entry]
}

func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		InMemoryStore: NewInMemoryStore[*ledger.Entry]("ledger entry"),
	}
}

func (s *InMemoryLedgerStore) Create(ctx context.Context, entry *ledger.Entry) error {
	c := *entry
	return s.InMemoryStore.Create(ctx, entry.ID, &c)
}

func (s *InMemoryLedgerStore) List(ctx context.Context, filter *types.LedgerEntryFilter) ([]*ledger.Entry, error) {
	if filter == nil {
		filter = types.NewLedgerEntryFilter()
	}
	items, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, e *ledger.Entry) bool {
		if !matchesStatus(ctx, e.BaseModel, filter.QueryFilter) {
			return false
		}
		if filter.AccountID != "" && e.AccountID != filter.AccountID {
			return false
		}
		if filter.PaymentID != "" && !ptrEqual(e.PaymentID, filter.PaymentID) {
			return false
		}
		if filter.InvoiceID != "" && !ptrEqual(e.InvoiceID, filter.InvoiceID) {
			return false
		}
		if filter.CreditNoteID != "" && !ptrEqual(e.CreditNoteID, filter.CreditNoteID) {
			return false
		}
		if filter.EntryType != nil && e.EntryType != *filter.EntryType {
			return false
		}
		if len(filter.Sources) > 0 && !lo.Contains(filter.Sources, e.Source) {
			return false
		}
		return !filter.Unallocated || e.InvoiceID == nil
	}, func(a, b *ledger.Entry) bool {
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(e *ledger.Entry, _ int) *ledger.Entry {
		c := *e
		return &c
	}), nil
}

func (s *InMemoryLedgerStore) FindPosting(ctx context.Context, paymentID, invoiceID string, source types.LedgerEntrySource) (*ledger.Entry, error) {
	e, err := s.InMemoryStore.Find(ctx, paymentID+"/"+invoiceID, func(ctx context.Context, e *ledger.Entry) bool {
		return visible(ctx, e.BaseModel) &&
			ptrEqual(e.PaymentID, paymentID) &&
			ptrEqual(e.InvoiceID, invoiceID) &&
			e.Source == source
	}, func(a, b *ledger.Entry) bool {
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	c := *e
	return &c, nil
}
