package billingrun

import (
	"context"

	"github.com/flexprice/ispbilling/internal/types"
)

type Repository interface {
	Create(ctx context.Context, run *BillingRun) error
	Get(ctx context.Context, id string) (*BillingRun, error)
	Update(ctx context.Context, run *BillingRun) error
	List(ctx context.Context, filter *types.BillingRunFilter) ([]*BillingRun, error)
}
