package creditnote

import (
	"context"

	"github.com/flexprice/ispbilling/internal/types"
)

type Repository interface {
	Create(ctx context.Context, note *CreditNote) error
	Get(ctx context.Context, id string) (*CreditNote, error)
	Update(ctx context.Context, note *CreditNote) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.CreditNoteFilter) ([]*CreditNote, error)
	Count(ctx context.Context, filter *types.CreditNoteFilter) (int, error)
}

type LineRepository interface {
	Create(ctx context.Context, line *CreditNoteLine) error
	Get(ctx context.Context, id string) (*CreditNoteLine, error)
	Update(ctx context.Context, line *CreditNoteLine) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.CreditNoteLineFilter) ([]*CreditNoteLine, error)
}

// ApplicationRepository is append-only: there is no update or delete
type ApplicationRepository interface {
	Create(ctx context.Context, app *Application) error
	List(ctx context.Context, filter *types.CreditNoteApplicationFilter) ([]*Application, error)
}
