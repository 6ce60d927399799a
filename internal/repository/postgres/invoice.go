package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/invoice"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const invoiceColumns = `id, tenant_id, account_id, invoice_number, invoice_status, currency,
	subtotal, tax_total, total, amount_paid, amount_credited, balance_due,
	billing_period_start, billing_period_end, issued_at, due_at, paid_at, voided_at,
	memo, idempotency_key, billing_run_id, status, created_at, updated_at, created_by, updated_by`

var invoiceSortable = []string{"created_at", "updated_at", "due_at", "issued_at", "total", "balance_due", "invoice_number"}

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewInvoiceRepository creates a new instance of invoice repository
func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `INSERT INTO invoices (` + invoiceColumns + `) VALUES (
		:id, :tenant_id, :account_id, :invoice_number, :invoice_status, :currency,
		:subtotal, :tax_total, :total, :amount_paid, :amount_credited, :balance_due,
		:billing_period_start, :billing_period_end, :issued_at, :due_at, :paid_at, :voided_at,
		:memo, :idempotency_key, :billing_run_id, :status, :created_at, :updated_at, :created_by, :updated_by)`

	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID,
		"account_id", inv.AccountID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return postgres.ClassifyError(err, "Failed to create invoice")
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var inv invoice.Invoice
	if err := r.db.NamedGetContext(ctx, &inv, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("invoice", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get invoice")
	}
	return &inv, nil
}

func (r *invoiceRepository) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE idempotency_key = :idempotency_key AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"idempotency_key": key,
		"tenant_id":       types.GetTenantID(ctx),
		"status":          types.StatusPublished,
	}

	var inv invoice.Invoice
	if err := r.db.NamedGetContext(ctx, &inv, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("invoice", key)
		}
		return nil, postgres.ClassifyError(err, "Failed to get invoice by idempotency key")
	}
	return &inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	query := `UPDATE invoices SET
			invoice_number = :invoice_number,
			invoice_status = :invoice_status,
			currency = :currency,
			subtotal = :subtotal,
			tax_total = :tax_total,
			total = :total,
			amount_paid = :amount_paid,
			amount_credited = :amount_credited,
			balance_due = :balance_due,
			billing_period_start = :billing_period_start,
			billing_period_end = :billing_period_end,
			issued_at = :issued_at,
			due_at = :due_at,
			paid_at = :paid_at,
			voided_at = :voided_at,
			memo = :memo,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	inv.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, inv)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update invoice")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("invoice", inv.ID)
	}
	return nil
}

func (r *invoiceRepository) Delete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "invoices", "invoice", id)
}

func (r *invoiceRepository) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	q := r.filterQuery(ctx, filter)
	query := `SELECT ` + invoiceColumns + ` FROM invoices` + q.whereClause() + q.page(filter.QueryFilter, invoiceSortable)

	var invoices []*invoice.Invoice
	if err := r.db.NamedSelectContext(ctx, &invoices, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list invoices")
	}
	return invoices, nil
}

func (r *invoiceRepository) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitInvoiceFilter()
	}
	q := r.filterQuery(ctx, filter)

	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM invoices`+q.whereClause(), q.params); err != nil {
		return 0, postgres.ClassifyError(err, "Failed to count invoices")
	}
	return count, nil
}

func (r *invoiceRepository) filterQuery(ctx context.Context, filter *types.InvoiceFilter) *listQuery {
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.InvoiceIDs) > 0 {
		q.and("id = ANY(:invoice_ids)", "invoice_ids", pq.Array(filter.InvoiceIDs))
	}
	if filter.AccountID != "" {
		q.and("account_id = :account_id", "account_id", filter.AccountID)
	}
	if len(filter.InvoiceStatus) > 0 {
		q.and("invoice_status = ANY(:invoice_status)", "invoice_status", pq.Array(stringsOf(filter.InvoiceStatus)))
	}
	if filter.Currency != "" {
		q.and("currency = :currency", "currency", types.NormalizeCurrency(filter.Currency))
	}
	if filter.BillingRunID != "" {
		q.and("billing_run_id = :billing_run_id", "billing_run_id", filter.BillingRunID)
	}
	if filter.Outstanding {
		q.and("balance_due > 0", "", nil)
	}
	if filter.TimeRangeFilter != nil {
		if filter.StartTime != nil {
			q.and("created_at >= :start_time", "start_time", *filter.StartTime)
		}
		if filter.EndTime != nil {
			q.and("created_at < :end_time", "end_time", *filter.EndTime)
		}
	}
	return q
}

func (r *invoiceRepository) ListOpenForAccount(ctx context.Context, accountID string) ([]*invoice.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE tenant_id = :tenant_id
		AND account_id = :account_id
		AND status = :status
		AND invoice_status = ANY(:invoice_status)
		AND balance_due > 0
		ORDER BY due_at ASC NULLS LAST, created_at ASC, id ASC`

	params := map[string]interface{}{
		"tenant_id":      types.GetTenantID(ctx),
		"account_id":     accountID,
		"status":         types.StatusPublished,
		"invoice_status": pq.Array(stringsOf(types.OpenInvoiceStatuses)),
	}

	var invoices []*invoice.Invoice
	if err := r.db.NamedSelectContext(ctx, &invoices, query, params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list open invoices")
	}
	return invoices, nil
}

// softDelete flips the status column of a published row to deleted
func softDelete(ctx context.Context, db *postgres.DB, table, entity, id string) error {
	query := `UPDATE ` + table + ` SET status = :deleted, updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":         id,
		"tenant_id":  types.GetTenantID(ctx),
		"status":     types.StatusPublished,
		"deleted":    types.StatusDeleted,
		"updated_at": time.Now().UTC(),
		"updated_by": types.GetUserID(ctx),
	}

	result, err := db.NamedExecContext(ctx, query, params)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to delete "+entity)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read affected rows").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return notFound(entity, id)
	}
	return nil
}
