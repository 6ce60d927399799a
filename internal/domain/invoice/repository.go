package invoice

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/types"
)

// Repository defines the interface for invoice persistence operations
type Repository interface {
	// Create creates a new invoice
	Create(ctx context.Context, invoice *Invoice) error

	// Get retrieves an active invoice by ID
	Get(ctx context.Context, id string) (*Invoice, error)

	// Update updates an existing invoice
	Update(ctx context.Context, invoice *Invoice) error

	// Delete soft deletes an invoice
	Delete(ctx context.Context, id string) error

	// List retrieves invoices based on filter criteria
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)

	// Count returns the total count of invoices based on filter criteria
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// ListOpenForAccount returns the account's active invoices that are issued, partially paid
	// or overdue with a positive balance, ordered by due_at ascending (nulls last) then created_at.
	ListOpenForAccount(ctx context.Context, accountID string) ([]*Invoice, error)

	// GetByIdempotencyKey retrieves an invoice by its idempotency key
	GetByIdempotencyKey(ctx context.Context, key string) (*Invoice, error)
}

// LineRepository defines persistence for invoice lines
type LineRepository interface {
	Create(ctx context.Context, line *InvoiceLine) error
	Get(ctx context.Context, id string) (*InvoiceLine, error)
	Update(ctx context.Context, line *InvoiceLine) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.InvoiceLineFilter) ([]*InvoiceLine, error)

	// FindForSubscriptionPeriod returns the active line billed for exactly this
	// subscription period, or a NotFound error.
	FindForSubscriptionPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*InvoiceLine, error)
}
