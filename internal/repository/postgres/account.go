package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/domain/taxrate"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
)

type accountRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewAccountRepository reads subscriber accounts owned by the subscriber module
func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return &accountRepository{db: db, logger: logger}
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	query := `INSERT INTO accounts (id, tenant_id, name, email, account_status, currency, status, created_at, updated_at, created_by, updated_by)
		VALUES (:id, :tenant_id, :name, :email, :account_status, :currency, :status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return postgres.ClassifyError(err, "Failed to create account")
	}
	return nil
}

func (r *accountRepository) Get(ctx context.Context, id string) (*account.Account, error) {
	query := `SELECT id, tenant_id, name, email, account_status, currency, status, created_at, updated_at, created_by, updated_by
		FROM accounts
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var a account.Account
	if err := r.db.NamedGetContext(ctx, &a, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("account", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get account")
	}
	return &a, nil
}

type taxRateRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewTaxRateRepository(db *postgres.DB, logger *logger.Logger) taxrate.Repository {
	return &taxRateRepository{db: db, logger: logger}
}

func (r *taxRateRepository) Create(ctx context.Context, t *taxrate.TaxRate) error {
	query := `INSERT INTO tax_rates (id, tenant_id, name, code, rate, status, created_at, updated_at, created_by, updated_by)
		VALUES (:id, :tenant_id, :name, :code, :rate, :status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return postgres.ClassifyError(err, "Failed to create tax rate")
	}
	return nil
}

func (r *taxRateRepository) Get(ctx context.Context, id string) (*taxrate.TaxRate, error) {
	query := `SELECT id, tenant_id, name, code, rate, status, created_at, updated_at, created_by, updated_by
		FROM tax_rates
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var t taxrate.TaxRate
	if err := r.db.NamedGetContext(ctx, &t, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("tax rate", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get tax rate")
	}
	return &t, nil
}
