package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const ledgerColumns = `id, tenant_id, account_id, invoice_id, payment_id, credit_note_id,
	entry_type, source, amount, currency, memo, status, created_at, updated_at, created_by, updated_by`

type ledgerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return &ledgerRepository{db: db, logger: logger}
}

func (r *ledgerRepository) Create(ctx context.Context, e *ledger.Entry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `) VALUES (
		:id, :tenant_id, :account_id, :invoice_id, :payment_id, :credit_note_id,
		:entry_type, :source, :amount, :currency, :memo, :status, :created_at, :updated_at, :created_by, :updated_by)`

	r.logger.Debugw("posting ledger entry",
		"entry_id", e.ID,
		"account_id", e.AccountID,
		"entry_type", e.EntryType,
		"source", e.Source,
		"amount", e.Amount,
	)

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return postgres.ClassifyError(err, "Failed to post ledger entry")
	}
	return nil
}

func (r *ledgerRepository) List(ctx context.Context, filter *types.LedgerEntryFilter) ([]*ledger.Entry, error) {
	if filter == nil {
		filter = types.NewLedgerEntryFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if filter.AccountID != "" {
		q.and("account_id = :account_id", "account_id", filter.AccountID)
	}
	if filter.PaymentID != "" {
		q.and("payment_id = :payment_id", "payment_id", filter.PaymentID)
	}
	if filter.InvoiceID != "" {
		q.and("invoice_id = :invoice_id", "invoice_id", filter.InvoiceID)
	}
	if filter.CreditNoteID != "" {
		q.and("credit_note_id = :credit_note_id", "credit_note_id", filter.CreditNoteID)
	}
	if filter.EntryType != nil {
		q.and("entry_type = :entry_type", "entry_type", *filter.EntryType)
	}
	if len(filter.Sources) > 0 {
		q.and("source = ANY(:sources)", "sources", pq.Array(stringsOf(filter.Sources)))
	}
	if filter.Unallocated {
		q.and("invoice_id IS NULL", "", nil)
	}

	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries` + q.whereClause() + ` ORDER BY created_at ASC, id ASC`

	var entries []*ledger.Entry
	if err := r.db.NamedSelectContext(ctx, &entries, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list ledger entries")
	}
	return entries, nil
}

func (r *ledgerRepository) FindPosting(ctx context.Context, paymentID, invoiceID string, source types.LedgerEntrySource) (*ledger.Entry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE tenant_id = :tenant_id
		AND payment_id = :payment_id
		AND invoice_id = :invoice_id
		AND source = :source
		AND status = :status
		LIMIT 1`

	params := map[string]interface{}{
		"tenant_id":  types.GetTenantID(ctx),
		"payment_id": paymentID,
		"invoice_id": invoiceID,
		"source":     source,
		"status":     types.StatusPublished,
	}

	var e ledger.Entry
	if err := r.db.NamedGetContext(ctx, &e, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("ledger entry", paymentID+"/"+invoiceID)
		}
		return nil, postgres.ClassifyError(err, "Failed to look up ledger posting")
	}
	return &e, nil
}
