package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/billingrun"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const billingRunColumns = `id, tenant_id, run_status, run_at, billing_cycle, dry_run, include_pending,
	auto_activate_pending, subscriptions_scanned, subscriptions_billed, subscriptions_skipped,
	invoices_created, attempt, started_at, finished_at, error,
	status, created_at, updated_at, created_by, updated_by`

type billingRunRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewBillingRunRepository(db *postgres.DB, logger *logger.Logger) billingrun.Repository {
	return &billingRunRepository{db: db, logger: logger}
}

func (r *billingRunRepository) Create(ctx context.Context, run *billingrun.BillingRun) error {
	query := `INSERT INTO billing_runs (` + billingRunColumns + `) VALUES (
		:id, :tenant_id, :run_status, :run_at, :billing_cycle, :dry_run, :include_pending,
		:auto_activate_pending, :subscriptions_scanned, :subscriptions_billed, :subscriptions_skipped,
		:invoices_created, :attempt, :started_at, :finished_at, :error,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return postgres.ClassifyError(err, "Failed to create billing run")
	}
	return nil
}

func (r *billingRunRepository) Get(ctx context.Context, id string) (*billingrun.BillingRun, error) {
	query := `SELECT ` + billingRunColumns + ` FROM billing_runs
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var run billingrun.BillingRun
	if err := r.db.NamedGetContext(ctx, &run, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("billing run", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get billing run")
	}
	return &run, nil
}

func (r *billingRunRepository) Update(ctx context.Context, run *billingrun.BillingRun) error {
	query := `UPDATE billing_runs SET
			run_status = :run_status,
			subscriptions_scanned = :subscriptions_scanned,
			subscriptions_billed = :subscriptions_billed,
			subscriptions_skipped = :subscriptions_skipped,
			invoices_created = :invoices_created,
			attempt = :attempt,
			finished_at = :finished_at,
			error = :error,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	run.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update billing run")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("billing run", run.ID)
	}
	return nil
}

func (r *billingRunRepository) List(ctx context.Context, filter *types.BillingRunFilter) ([]*billingrun.BillingRun, error) {
	if filter == nil {
		filter = types.NewBillingRunFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.RunStatus) > 0 {
		q.and("run_status = ANY(:run_status)", "run_status", pq.Array(stringsOf(filter.RunStatus)))
	}

	query := `SELECT ` + billingRunColumns + ` FROM billing_runs` + q.whereClause() +
		q.page(filter.QueryFilter, []string{"created_at", "run_at", "started_at"})

	var runs []*billingrun.BillingRun
	if err := r.db.NamedSelectContext(ctx, &runs, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list billing runs")
	}
	return runs, nil
}
