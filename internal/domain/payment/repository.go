package payment

import (
	"context"

	"github.com/flexprice/ispbilling/internal/types"
)

// Repository defines the interface for payment persistence operations
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)

	// GetForUpdate retrieves the payment and holds a row lock on it until
	// the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*Payment, error)

	Update(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)

	// GetByExternalID finds the payment a gateway knows by externalID
	GetByExternalID(ctx context.Context, providerID, externalID string) (*Payment, error)
}

// AllocationRepository defines persistence for payment allocations
type AllocationRepository interface {
	Create(ctx context.Context, allocation *Allocation) error
	Get(ctx context.Context, id string) (*Allocation, error)
	GetByPaymentAndInvoice(ctx context.Context, paymentID, invoiceID string) (*Allocation, error)
	List(ctx context.Context, filter *types.PaymentAllocationFilter) ([]*Allocation, error)
	Delete(ctx context.Context, id string) error
}
