package testutil

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/creditnote"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// InMemoryCreditNoteStore implements creditnote.Repository
type InMemoryCreditNoteStore struct {
	*InMemoryStore[*creditnote.CreditNote]
}

func NewInMemoryCreditNoteStore() *InMemoryCreditNoteStore {
	return &InMemoryCreditNoteStore{
		InMemoryStore: NewInMemoryStore[*creditnote.CreditNote]("credit note"),
	}
}

func copyCreditNote(cn *creditnote.CreditNote) *creditnote.CreditNote {
	if cn == nil {
		return nil
	}
	c := *cn
	c.Lines = nil
	return &c
}

func (s *InMemoryCreditNoteStore) Create(ctx context.Context, cn *creditnote.CreditNote) error {
	return s.InMemoryStore.Create(ctx, cn.ID, copyCreditNote(cn))
}

func (s *InMemoryCreditNoteStore) Get(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	cn, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, cn.BaseModel) {
		return nil, s.notFound(id)
	}
	return copyCreditNote(cn), nil
}

func (s *InMemoryCreditNoteStore) Update(ctx context.Context, cn *creditnote.CreditNote) error {
	if _, err := s.Get(ctx, cn.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, cn.ID, copyCreditNote(cn))
}

func (s *InMemoryCreditNoteStore) Delete(ctx context.Context, id string) error {
	cn, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	cn.Status = types.StatusDeleted
	cn.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, cn)
}

func (s *InMemoryCreditNoteStore) List(ctx context.Context, filter *types.CreditNoteFilter) ([]*creditnote.CreditNote, error) {
	if filter == nil {
		filter = types.NewNoLimitCreditNoteFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter.QueryFilter, creditNoteFilterFn(filter), func(a, b *creditnote.CreditNote) bool {
		return createdByOrder(filter.QueryFilter, a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(cn *creditnote.CreditNote, _ int) *creditnote.CreditNote { return copyCreditNote(cn) }), nil
}

func (s *InMemoryCreditNoteStore) Count(ctx context.Context, filter *types.CreditNoteFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitCreditNoteFilter()
	}
	return s.InMemoryStore.Count(ctx, creditNoteFilterFn(filter))
}

func creditNoteFilterFn(filter *types.CreditNoteFilter) FilterFunc[*creditnote.CreditNote] {
	return func(ctx context.Context, cn *creditnote.CreditNote) bool {
		if !matchesStatus(ctx, cn.BaseModel, filter.QueryFilter) {
			return false
		}
		if len(filter.CreditNoteIDs) > 0 && !lo.Contains(filter.CreditNoteIDs, cn.ID) {
			return false
		}
		if filter.AccountID != "" && cn.AccountID != filter.AccountID {
			return false
		}
		if filter.InvoiceID != "" && !ptrEqual(cn.InvoiceID, filter.InvoiceID) {
			return false
		}
		if len(filter.CreditNoteStatus) > 0 && !lo.Contains(filter.CreditNoteStatus, cn.CreditNoteStatus) {
			return false
		}
		return inTimeRange(cn.CreatedAt, filter.TimeRangeFilter)
	}
}

// InMemoryCreditNoteLineStore implements creditnote.LineRepository
type InMemoryCreditNoteLineStore struct {
	*InMemoryStore[*creditnote.CreditNoteLine]
}

func NewInMemoryCreditNoteLineStore() *InMemoryCreditNoteLineStore {
	return &InMemoryCreditNoteLineStore{
		InMemoryStore: NewInMemoryStore[*creditnote.CreditNoteLine]("credit note line"),
	}
}

func copyCreditNoteLine(line *creditnote.CreditNoteLine) *creditnote.CreditNoteLine {
	c := *line
	return &c
}

func (s *InMemoryCreditNoteLineStore) Create(ctx context.Context, line *creditnote.CreditNoteLine) error {
	return s.InMemoryStore.Create(ctx, line.ID, copyCreditNoteLine(line))
}

func (s *InMemoryCreditNoteLineStore) Get(ctx context.Context, id string) (*creditnote.CreditNoteLine, error) {
	line, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(ctx, line.BaseModel) {
		return nil, s.notFound(id)
	}
	return copyCreditNoteLine(line), nil
}

func (s *InMemoryCreditNoteLineStore) Update(ctx context.Context, line *creditnote.CreditNoteLine) error {
	if _, err := s.Get(ctx, line.ID); err != nil {
		return err
	}
	return s.InMemoryStore.Update(ctx, line.ID, copyCreditNoteLine(line))
}

func (s *InMemoryCreditNoteLineStore) Delete(ctx context.Context, id string) error {
	line, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	line.Status = types.StatusDeleted
	line.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, line)
}

func (s *InMemoryCreditNoteLineStore) List(ctx context.Context, filter *types.CreditNoteLineFilter) ([]*creditnote.CreditNoteLine, error) {
	if filter == nil {
		filter = types.NewCreditNoteLineFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter.QueryFilter, func(ctx context.Context, line *creditnote.CreditNoteLine) bool {
		if !matchesStatus(ctx, line.BaseModel, filter.QueryFilter) {
			return false
		}
		return len(filter.CreditNoteIDs) == 0 || lo.Contains(filter.CreditNoteIDs, line.CreditNoteID)
	}, func(a, b *creditnote.CreditNoteLine) bool {
		return createdAsc(a.BaseModel, b.BaseModel, a.ID, b.ID)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(line *creditnote.CreditNoteLine, _ int) *creditnote.CreditNoteLine {
		return copyCreditNoteLine(line)
	}), nil
}

// InMemoryCreditNoteApplicationStore implements creditnote.ApplicationRepository
type InMemoryCreditNoteApplicationStore struct {
	*InMemoryStore[*creditnote.Application]
}

func NewInMemoryCreditNoteApplicationStore() *InMemoryCreditNoteApplicationStore {
	return &InMemoryCreditNoteApplicationStore{
		InMemoryStore: NewInMemoryStore[*creditnote.Application]("credit note application"),
	}
}

func (s *InMemoryCreditNoteApplicationStore) Create(ctx context.Context, app *creditnote.Application) error {
	c := *app
	return s.InMemoryStore.Create(ctx, app.ID, &c)
}

func (s *InMemoryCreditNoteApplicationStore) List(ctx context.Context, filter *types.CreditNoteApplicationFilter) ([]*creditnote.Application, error) {
	if filter == nil {
		filter = types.NewCreditNoteApplicationFilter()
	}
	items, err := s.InMemoryStore.List(ctx, filter.QueryFilter, func(ctx context.Context, app *creditnote.Application) bool {
		if !matchesStatus(ctx, app.BaseModel, filter.QueryFilter) {
			return false
		}
		if filter.CreditNoteID != "" && app.CreditNoteID != filter.CreditNoteID {
			return false
		}
		return filter.InvoiceID == "" || app.InvoiceID == filter.InvoiceID
	}, func(a, b *creditnote.Application) bool {
		if !a.AppliedAt.Equal(b.AppliedAt) {
			return a.AppliedAt.Before(b.AppliedAt)
		}
		return a.ID < b.ID
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(app *creditnote.Application, _ int) *creditnote.Application {
		c := *app
		return &c
	}), nil
}
