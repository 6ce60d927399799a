package ledger

import (
	"context"

	"github.com/flexprice/ispbilling/internal/types"
)

// Repository is append-only
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter *types.LedgerEntryFilter) ([]*Entry, error)

	// FindPosting returns the entry already posted for (payment, invoice, source), or NotFound.
	// It backs the no-duplicate-posting rule for payment allocations.
	FindPosting(ctx context.Context, paymentID, invoiceID string, source types.LedgerEntrySource) (*Entry, error)
}
