package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/provider"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const providerEventColumns = `id, tenant_id, provider_id, payment_id, invoice_id, account_id, event_type,
	external_id, idempotency_key, amount, currency, payload, processing_status, error, processed_at,
	status, created_at, updated_at, created_by, updated_by`

type providerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewProviderRepository(db *postgres.DB, logger *logger.Logger) provider.Repository {
	return &providerRepository{db: db, logger: logger}
}

func (r *providerRepository) Create(ctx context.Context, p *provider.Provider) error {
	query := `INSERT INTO payment_providers (id, tenant_id, name, code, status, created_at, updated_at, created_by, updated_by)
		VALUES (:id, :tenant_id, :name, :code, :status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return postgres.ClassifyError(err, "Failed to create payment provider")
	}
	return nil
}

func (r *providerRepository) Get(ctx context.Context, id string) (*provider.Provider, error) {
	query := `SELECT id, tenant_id, name, code, status, created_at, updated_at, created_by, updated_by
		FROM payment_providers
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var p provider.Provider
	if err := r.db.NamedGetContext(ctx, &p, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("payment provider", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get payment provider")
	}
	return &p, nil
}

type providerEventRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewProviderEventRepository(db *postgres.DB, logger *logger.Logger) provider.EventRepository {
	return &providerEventRepository{db: db, logger: logger}
}

func (r *providerEventRepository) Create(ctx context.Context, e *provider.Event) error {
	query := `INSERT INTO payment_provider_events (` + providerEventColumns + `) VALUES (
		:id, :tenant_id, :provider_id, :payment_id, :invoice_id, :account_id, :event_type,
		:external_id, :idempotency_key, :amount, :currency, :payload, :processing_status, :error, :processed_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return postgres.ClassifyError(err, "Failed to record provider event")
	}
	return nil
}

func (r *providerEventRepository) Get(ctx context.Context, id string) (*provider.Event, error) {
	query := `SELECT ` + providerEventColumns + ` FROM payment_provider_events
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var e provider.Event
	if err := r.db.NamedGetContext(ctx, &e, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("provider event", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get provider event")
	}
	return &e, nil
}

func (r *providerEventRepository) GetByIdempotencyKey(ctx context.Context, providerID, key string) (*provider.Event, error) {
	query := `SELECT ` + providerEventColumns + ` FROM payment_provider_events
		WHERE tenant_id = :tenant_id AND provider_id = :provider_id AND idempotency_key = :idempotency_key`

	params := map[string]interface{}{
		"tenant_id":       types.GetTenantID(ctx),
		"provider_id":     providerID,
		"idempotency_key": key,
	}

	var e provider.Event
	if err := r.db.NamedGetContext(ctx, &e, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("provider event", key)
		}
		return nil, postgres.ClassifyError(err, "Failed to get provider event")
	}
	return &e, nil
}

func (r *providerEventRepository) Update(ctx context.Context, e *provider.Event) error {
	query := `UPDATE payment_provider_events SET
			payment_id = :payment_id,
			invoice_id = :invoice_id,
			account_id = :account_id,
			processing_status = :processing_status,
			error = :error,
			processed_at = :processed_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	e.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update provider event")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("provider event", e.ID)
	}
	return nil
}

func (r *providerEventRepository) List(ctx context.Context, filter *types.ProviderEventFilter) ([]*provider.Event, error) {
	if filter == nil {
		filter = types.NewProviderEventFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if filter.ProviderID != "" {
		q.and("provider_id = :provider_id", "provider_id", filter.ProviderID)
	}
	if filter.PaymentID != "" {
		q.and("payment_id = :payment_id", "payment_id", filter.PaymentID)
	}
	if len(filter.Statuses) > 0 {
		q.and("processing_status = ANY(:statuses)", "statuses", pq.Array(stringsOf(filter.Statuses)))
	}

	query := `SELECT ` + providerEventColumns + ` FROM payment_provider_events` + q.whereClause() +
		q.page(filter.QueryFilter, []string{"created_at", "processed_at"})

	var events []*provider.Event
	if err := r.db.NamedSelectContext(ctx, &events, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list provider events")
	}
	return events, nil
}
