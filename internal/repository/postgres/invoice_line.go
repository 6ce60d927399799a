package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const invoiceLineColumns = `id, tenant_id, invoice_id, subscription_id, description, quantity, unit_price,
	amount, tax_rate_id, tax_application, period_start, period_end,
	status, created_at, updated_at, created_by, updated_by`

type invoiceLineRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewInvoiceLineRepository(db *postgres.DB, logger *logger.Logger) invoice.LineRepository {
	return &invoiceLineRepository{db: db, logger: logger}
}

func (r *invoiceLineRepository) Create(ctx context.Context, line *invoice.InvoiceLine) error {
	query := `INSERT INTO invoice_lines (` + invoiceLineColumns + `) VALUES (
		:id, :tenant_id, :invoice_id, :subscription_id, :description, :quantity, :unit_price,
		:amount, :tax_rate_id, :tax_application, :period_start, :period_end,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, line); err != nil {
		return postgres.ClassifyError(err, "Failed to create invoice line")
	}
	return nil
}

func (r *invoiceLineRepository) Get(ctx context.Context, id string) (*invoice.InvoiceLine, error) {
	query := `SELECT ` + invoiceLineColumns + ` FROM invoice_lines
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var line invoice.InvoiceLine
	if err := r.db.NamedGetContext(ctx, &line, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("invoice line", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get invoice line")
	}
	return &line, nil
}

func (r *invoiceLineRepository) Update(ctx context.Context, line *invoice.InvoiceLine) error {
	query := `UPDATE invoice_lines SET
			description = :description,
			quantity = :quantity,
			unit_price = :unit_price,
			amount = :amount,
			tax_rate_id = :tax_rate_id,
			tax_application = :tax_application,
			period_start = :period_start,
			period_end = :period_end,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	line.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, line)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update invoice line")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("invoice line", line.ID)
	}
	return nil
}

func (r *invoiceLineRepository) Delete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "invoice_lines", "invoice line", id)
}

func (r *invoiceLineRepository) List(ctx context.Context, filter *types.InvoiceLineFilter) ([]*invoice.InvoiceLine, error) {
	if filter == nil {
		filter = types.NewInvoiceLineFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.InvoiceIDs) > 0 {
		q.and("invoice_id = ANY(:invoice_ids)", "invoice_ids", pq.Array(filter.InvoiceIDs))
	}
	if filter.SubscriptionID != "" {
		q.and("subscription_id = :subscription_id", "subscription_id", filter.SubscriptionID)
	}
	if filter.PeriodStart != nil {
		q.and("period_start = :period_start", "period_start", *filter.PeriodStart)
	}
	if filter.PeriodEnd != nil {
		q.and("period_end = :period_end", "period_end", *filter.PeriodEnd)
	}

	query := `SELECT ` + invoiceLineColumns + ` FROM invoice_lines` + q.whereClause() +
		` ORDER BY created_at ASC, id ASC`

	var lines []*invoice.InvoiceLine
	if err := r.db.NamedSelectContext(ctx, &lines, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list invoice lines")
	}
	return lines, nil
}

func (r *invoiceLineRepository) FindForSubscriptionPeriod(ctx context.Context, subscriptionID string, periodStart, periodEnd time.Time) (*invoice.InvoiceLine, error) {
	query := `SELECT ` + invoiceLineColumns + ` FROM invoice_lines
		WHERE tenant_id = :tenant_id
		AND subscription_id = :subscription_id
		AND period_start = :period_start
		AND period_end = :period_end
		AND status = :status
		LIMIT 1`

	params := map[string]interface{}{
		"tenant_id":       types.GetTenantID(ctx),
		"subscription_id": subscriptionID,
		"period_start":    periodStart,
		"period_end":      periodEnd,
		"status":          types.StatusPublished,
	}

	var line invoice.InvoiceLine
	if err := r.db.NamedGetContext(ctx, &line, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("invoice line", subscriptionID)
		}
		return nil, postgres.ClassifyError(err, "Failed to look up billed subscription period")
	}
	return &line, nil
}
