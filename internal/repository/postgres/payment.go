package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/payment"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const paymentColumns = `id, tenant_id, account_id, invoice_id, payment_method_id, payment_channel_id,
	collection_account_id, provider_id, amount, refunded_amount, currency, payment_status,
	paid_at, failed_at, external_id, memo, status, created_at, updated_at, created_by, updated_by`

const allocationColumns = `id, tenant_id, payment_id, invoice_id, amount, currency,
	status, created_at, updated_at, created_by, updated_by`

var paymentSortable = []string{"created_at", "updated_at", "paid_at", "amount"}

type paymentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewPaymentRepository creates a new instance of payment repository
func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return &paymentRepository{db: db, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `INSERT INTO payments (` + paymentColumns + `) VALUES (
		:id, :tenant_id, :account_id, :invoice_id, :payment_method_id, :payment_channel_id,
		:collection_account_id, :provider_id, :amount, :refunded_amount, :currency, :payment_status,
		:paid_at, :failed_at, :external_id, :memo, :status, :created_at, :updated_at, :created_by, :updated_by)`

	r.logger.Debugw("creating payment",
		"payment_id", p.ID,
		"account_id", p.AccountID,
		"amount", p.Amount,
	)

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return postgres.ClassifyError(err, "Failed to create payment")
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return r.get(ctx, id, false)
}

func (r *paymentRepository) GetForUpdate(ctx context.Context, id string) (*payment.Payment, error) {
	if _, ok := postgres.GetTx(ctx); !ok {
		return nil, ierr.NewError("payment lock requires a transaction").
			WithHint("Payment rows can only be locked inside a transaction").
			Mark(ierr.ErrSystem)
	}
	return r.get(ctx, id, true)
}

func (r *paymentRepository) get(ctx context.Context, id string, lock bool) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`
	if lock {
		query += ` FOR UPDATE`
	}

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var p payment.Payment
	if err := r.db.NamedGetContext(ctx, &p, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("payment", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get payment")
	}
	return &p, nil
}

func (r *paymentRepository) GetByExternalID(ctx context.Context, providerID, externalID string) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE tenant_id = :tenant_id
		AND provider_id = :provider_id
		AND external_id = :external_id
		AND status = :status
		ORDER BY created_at ASC
		LIMIT 1`

	params := map[string]interface{}{
		"tenant_id":   types.GetTenantID(ctx),
		"provider_id": providerID,
		"external_id": externalID,
		"status":      types.StatusPublished,
	}

	var p payment.Payment
	if err := r.db.NamedGetContext(ctx, &p, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("payment", externalID)
		}
		return nil, postgres.ClassifyError(err, "Failed to get payment by external id")
	}
	return &p, nil
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	query := `UPDATE payments SET
			invoice_id = :invoice_id,
			payment_method_id = :payment_method_id,
			payment_channel_id = :payment_channel_id,
			collection_account_id = :collection_account_id,
			refunded_amount = :refunded_amount,
			payment_status = :payment_status,
			paid_at = :paid_at,
			failed_at = :failed_at,
			external_id = :external_id,
			memo = :memo,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	p.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update payment")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("payment", p.ID)
	}
	return nil
}

func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	return softDelete(ctx, r.db, "payments", "payment", id)
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	q := r.filterQuery(ctx, filter)
	query := `SELECT ` + paymentColumns + ` FROM payments` + q.whereClause() + q.page(filter.QueryFilter, paymentSortable)

	var payments []*payment.Payment
	if err := r.db.NamedSelectContext(ctx, &payments, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list payments")
	}
	return payments, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	if filter == nil {
		filter = types.NewNoLimitPaymentFilter()
	}
	q := r.filterQuery(ctx, filter)

	var count int
	if err := r.db.NamedGetContext(ctx, &count, `SELECT COUNT(*) FROM payments`+q.whereClause(), q.params); err != nil {
		return 0, postgres.ClassifyError(err, "Failed to count payments")
	}
	return count, nil
}

func (r *paymentRepository) filterQuery(ctx context.Context, filter *types.PaymentFilter) *listQuery {
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.PaymentIDs) > 0 {
		q.and("id = ANY(:payment_ids)", "payment_ids", pq.Array(filter.PaymentIDs))
	}
	if filter.AccountID != "" {
		q.and("account_id = :account_id", "account_id", filter.AccountID)
	}
	if filter.InvoiceID != "" {
		q.and("invoice_id = :invoice_id", "invoice_id", filter.InvoiceID)
	}
	if filter.ProviderID != "" {
		q.and("provider_id = :provider_id", "provider_id", filter.ProviderID)
	}
	if filter.ExternalID != "" {
		q.and("external_id = :external_id", "external_id", filter.ExternalID)
	}
	if len(filter.PaymentStatus) > 0 {
		q.and("payment_status = ANY(:payment_status)", "payment_status", pq.Array(stringsOf(filter.PaymentStatus)))
	}
	if filter.Currency != "" {
		q.and("currency = :currency", "currency", types.NormalizeCurrency(filter.Currency))
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

type paymentAllocationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPaymentAllocationRepository(db *postgres.DB, logger *logger.Logger) payment.AllocationRepository {
	return &paymentAllocationRepository{db: db, logger: logger}
}

func (r *paymentAllocationRepository) Create(ctx context.Context, a *payment.Allocation) error {
	query := `INSERT INTO payment_allocations (` + allocationColumns + `) VALUES (
		:id, :tenant_id, :payment_id, :invoice_id, :amount, :currency,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return postgres.ClassifyError(err, "Failed to create payment allocation")
	}
	return nil
}

func (r *paymentAllocationRepository) Get(ctx context.Context, id string) (*payment.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM payment_allocations
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var a payment.Allocation
	if err := r.db.NamedGetContext(ctx, &a, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("payment allocation", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get payment allocation")
	}
	return &a, nil
}

func (r *paymentAllocationRepository) GetByPaymentAndInvoice(ctx context.Context, paymentID, invoiceID string) (*payment.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM payment_allocations
		WHERE tenant_id = :tenant_id AND payment_id = :payment_id AND invoice_id = :invoice_id AND status = :status`

	params := map[string]interface{}{
		"tenant_id":  types.GetTenantID(ctx),
		"payment_id": paymentID,
		"invoice_id": invoiceID,
		"status":     types.StatusPublished,
	}

	var a payment.Allocation
	if err := r.db.NamedGetContext(ctx, &a, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("payment allocation", paymentID+"/"+invoiceID)
		}
		return nil, postgres.ClassifyError(err, "Failed to get payment allocation")
	}
	return &a, nil
}

func (r *paymentAllocationRepository) List(ctx context.Context, filter *types.PaymentAllocationFilter) ([]*payment.Allocation, error) {
	if filter == nil {
		filter = types.NewPaymentAllocationFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.PaymentIDs) > 0 {
		q.and("payment_id = ANY(:payment_ids)", "payment_ids", pq.Array(filter.PaymentIDs))
	}
	if len(filter.InvoiceIDs) > 0 {
		q.and("invoice_id = ANY(:invoice_ids)", "invoice_ids", pq.Array(filter.InvoiceIDs))
	}

	query := `SELECT ` + allocationColumns + ` FROM payment_allocations` + q.whereClause() + ` ORDER BY created_at ASC, id ASC`

	var allocations []*payment.Allocation
	if err := r.db.NamedSelectContext(ctx, &allocations, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list payment allocations")
	}
	return allocations, nil
}

// Delete removes the allocation row so the (payment, invoice) pair can be allocated again
func (r *paymentAllocationRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM payment_allocations WHERE id = :id AND tenant_id = :tenant_id`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
	}

	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to delete payment allocation")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("payment allocation", id)
	}
	return nil
}
