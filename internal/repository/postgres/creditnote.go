package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/creditnote"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const creditNoteColumns = `id, tenant_id, account_id, invoice_id, payment_id, credit_note_number,
	credit_note_status, currency, subtotal, tax_total, total, applied_total, memo, issued_at, voided_at,
	status, created_at, updated_at, created_by, updated_by`

const creditNoteLineColumns = `id, tenant_id, credit_note_id, description, quantity, unit_price, amount,
	tax_rate_id, tax_application, status, created_at, updated_at, created_by, updated_by`

const creditNoteApplicationColumns = `id, tenant_id, credit_note_id, invoice_id, amount, currency, applied_at,
	status, created_at, updated_at, created_by, updated_by`

var creditNoteSortable = []string{"created_at", "updated_at", "issued_at", "total", "credit_note_number"}

type creditNoteRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCreditNoteRepository(db *postgres.DB, logger *logger.Logger) creditnote.Repository {
	return &creditNoteRepository{db: db, logger: logger}
}

func (r *creditNoteRepository) Create(ctx context.Context, note *creditnote.CreditNote) error {
	query := `INSERT INTO credit_notes (` + creditNoteColumns + `) VALUES (
		:id, :tenant_id, :account_id, :invoice_id, :payment_id, :credit_note_number,
		:credit_note_status, :currency, :subtotal, :tax_total, :total, :applied_total, :memo, :issued_at, :voided_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	r.logger.Debugw("creating credit note",
		"credit_note_id", note.ID,
		"account_id", note.AccountID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return postgres.ClassifyError(err, "Failed to create credit note")
	}
	return nil
}

func (r *creditNoteRepository) Get(ctx context.Context, id string) (*creditnote.CreditNote, error) {
	query := `SELECT ` + creditNoteColumns + ` FROM credit_notes
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var note creditnote.CreditNote
	if err := r.db.NamedGetContext(ctx, &note, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("credit note", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get credit note")
	}
	return &note, nil
}

func (r *creditNoteRepository) Update(ctx context.Context, note *creditnote.CreditNote) error {
	query := `UPDATE credit_notes SET
			invoice_id = :invoice_id,
			credit_note_number = :credit_note_number,
			credit_note_status = :credit_note_status,
			subtotal = :subtotal,
			tax_total = :tax_total,
			total = :total,
			applied_total = :applied_total,
			memo = :memo,
			issued_at = :issued_at,
			voided_at = :voided_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	note.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, note)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update credit note")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("credit note", note.ID)
	}
	return nil
}

func (r *creditNoteRepository) Delete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "credit_notes", "credit note", id)
}

func (r *creditNoteRepository) List(ctx context.Context, filter *types.CreditNoteFilter) ([]*creditnote.CreditNote, error) {
	if filter == nil {
		filter = types.NewNoLimitCreditNoteFilter()
	}
	q := r.filterQuery(ctx, filter)
	query := `SELECT ` + creditNoteColumns + ` FROM credit_notes` + q.whereClause() + q.page(filter.QueryFilter, creditNoteSortable)

	var notes []*creditnote.CreditNote
	if err := r.db.NamedSelectContext(ctx, &notes, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list credit notes")
	}
	return notes, nil
}

func (r *creditNoteRepository) Count(ctx context.Context, filter *types.CreditNoteFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitCreditNoteFilter()
	}
	q := r.filterQuery(ctx, filter)

	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM credit_notes`+q.whereClause(), q.params); err != nil {
		return 0, postgres.ClassifyError(err, "Failed to count credit notes")
	}
	return count, nil
}

func (r *creditNoteRepository) filterQuery(ctx context.Context, filter *types.CreditNoteFilter) *listQuery {
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.CreditNoteIDs) > 0 {
		q.and("id = ANY(:credit_note_ids)", "credit_note_ids", pq.Array(filter.CreditNoteIDs))
	}
	if filter.AccountID != "" {
		q.and("account_id = :account_id", "account_id", filter.AccountID)
	}
	if filter.InvoiceID != "" {
		q.and("invoice_id = :invoice_id", "invoice_id", filter.InvoiceID)
	}
	if len(filter.CreditNoteStatus) > 0 {
		q.and("credit_note_status = ANY(:credit_note_status)", "credit_note_status", pq.Array(stringsOf(filter.CreditNoteStatus)))
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

type creditNoteLineRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCreditNoteLineRepository(db *postgres.DB, logger *logger.Logger) creditnote.LineRepository {
	return &creditNoteLineRepository{db: db, logger: logger}
}

func (r *creditNoteLineRepository) Create(ctx context.Context, line *creditnote.CreditNoteLine) error {
	query := `INSERT INTO credit_note_lines (` + creditNoteLineColumns + `) VALUES (
		:id, :tenant_id, :credit_note_id, :description, :quantity, :unit_price, :amount,
		:tax_rate_id, :tax_application, :status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, line); err != nil {
		return postgres.ClassifyError(err, "Failed to create credit note line")
	}
	return nil
}

func (r *creditNoteLineRepository) Get(ctx context.Context, id string) (*creditnote.CreditNoteLine, error) {
	query := `SELECT ` + creditNoteLineColumns + ` FROM credit_note_lines
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var line creditnote.CreditNoteLine
	if err := r.db.NamedGetContext(ctx, &line, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("credit note line", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get credit note line")
	}
	return &line, nil
}

func (r *creditNoteLineRepository) Update(ctx context.Context, line *creditnote.CreditNoteLine) error {
	query := `UPDATE credit_note_lines SET
			description = :description,
			quantity = :quantity,
			unit_price = :unit_price,
			amount = :amount,
			tax_rate_id = :tax_rate_id,
			tax_application = :tax_application,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	line.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, line)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update credit note line")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("credit note line", line.ID)
	}
	return nil
}

func (r *creditNoteLineRepository) Delete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "credit_note_lines", "credit note line", id)
}

func (r *creditNoteLineRepository) List(ctx context.Context, filter *types.CreditNoteLineFilter) ([]*creditnote.CreditNoteLine, error) {
	if filter == nil {
		filter = types.NewCreditNoteLineFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.CreditNoteIDs) > 0 {
		q.and("credit_note_id = ANY(:credit_note_ids)", "credit_note_ids", pq.Array(filter.CreditNoteIDs))
	}

	query := `SELECT ` + creditNoteLineColumns + ` FROM credit_note_lines` + q.whereClause() + ` ORDER BY created_at ASC, id ASC`

	var lines []*creditnote.CreditNoteLine
	if err := r.db.NamedSelectContext(ctx, &lines, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list credit note lines")
	}
	return lines, nil
}

type creditNoteApplicationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCreditNoteApplicationRepository(db *postgres.DB, logger *logger.Logger) creditnote.ApplicationRepository {
	return &creditNoteApplicationRepository{db: db, logger: logger}
}

func (r *creditNoteApplicationRepository) Create(ctx context.Context, app *creditnote.Application) error {
	query := `INSERT INTO credit_note_applications (` + creditNoteApplicationColumns + `) VALUES (
		:id, :tenant_id, :credit_note_id, :invoice_id, :amount, :currency, :applied_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, app); err != nil {
		return postgres.ClassifyError(err, "Failed to record credit note application")
	}
	return nil
}

func (r *creditNoteApplicationRepository) List(ctx context.Context, filter *types.CreditNoteApplicationFilter) ([]*creditnote.Application, error) {
	if filter == nil {
		filter = types.NewCreditNoteApplicationFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if filter.CreditNoteID != "" {
		q.and("credit_note_id = :credit_note_id", "credit_note_id", filter.CreditNoteID)
	}
	if filter.InvoiceID != "" {
		q.and("invoice_id = :invoice_id", "invoice_id", filter.InvoiceID)
	}

	query := `SELECT ` + creditNoteApplicationColumns + ` FROM credit_note_applications` + q.whereClause() + ` ORDER BY applied_at ASC, id ASC`

	var apps []*creditnote.Application
	if err := r.db.NamedSelectContext(ctx, &apps, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list credit note applications")
	}
	return apps, nil
}
