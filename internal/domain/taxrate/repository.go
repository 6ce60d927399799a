package taxrate

import "context"

type Repository interface {
	Create(ctx context.Context, rate *TaxRate) error
	Get(ctx context.Context, id string) (*TaxRate, error)
}
