package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/subscription"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/lib/pq"
)

const subscriptionColumns = `id, tenant_id, account_id, offer_id, offer_version_id, subscription_status,
	price_override, currency, billing_cycle, start_at, end_at, next_billing_at, activated_at,
	status, created_at, updated_at, created_by, updated_by`

const offerColumns = `id, tenant_id, name, price, currency, billing_cycle,
	status, created_at, updated_at, created_by, updated_by`

const offerVersionColumns = `id, tenant_id, offer_id, version, price, currency, billing_cycle,
	status, created_at, updated_at, created_by, updated_by`

type subscriptionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{db: db, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	query := `INSERT INTO subscriptions (` + subscriptionColumns + `) VALUES (
		:id, :tenant_id, :account_id, :offer_id, :offer_version_id, :subscription_status,
		:price_override, :currency, :billing_cycle, :start_at, :end_at, :next_billing_at, :activated_at,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return postgres.ClassifyError(err, "Failed to create subscription")
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var sub subscription.Subscription
	if err := r.db.NamedGetContext(ctx, &sub, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("subscription", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get subscription")
	}
	return &sub, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	query := `UPDATE subscriptions SET
			subscription_status = :subscription_status,
			end_at = :end_at,
			next_billing_at = :next_billing_at,
			activated_at = :activated_at,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	sub.Touch(ctx)

	result, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return postgres.ClassifyError(err, "Failed to update subscription")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return notFound("subscription", sub.ID)
	}
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	if filter == nil {
		filter = types.NewNoLimitSubscriptionFilter()
	}
	q := newListQuery(ctx)
	q.status(filter.QueryFilter)
	if len(filter.SubscriptionIDs) > 0 {
		q.and("id = ANY(:subscription_ids)", "subscription_ids", pq.Array(filter.SubscriptionIDs))
	}
	if filter.AccountID != "" {
		q.and("account_id = :account_id", "account_id", filter.AccountID)
	}
	if len(filter.SubscriptionStatus) > 0 {
		q.and("subscription_status = ANY(:subscription_status)", "subscription_status", pq.Array(stringsOf(filter.SubscriptionStatus)))
	}

	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions` + q.whereClause() +
		` ORDER BY account_id ASC, start_at ASC, id ASC`

	var subs []*subscription.Subscription
	if err := r.db.NamedSelectContext(ctx, &subs, query, q.params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list subscriptions")
	}
	return subs, nil
}

type offerRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewOfferRepository(db *postgres.DB, logger *logger.Logger) subscription.OfferRepository {
	return &offerRepository{db: db, logger: logger}
}

func (r *offerRepository) Create(ctx context.Context, offer *subscription.Offer) error {
	query := `INSERT INTO offers (` + offerColumns + `) VALUES (
		:id, :tenant_id, :name, :price, :currency, :billing_cycle,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, offer); err != nil {
		return postgres.ClassifyError(err, "Failed to create offer")
	}
	return nil
}

func (r *offerRepository) Get(ctx context.Context, id string) (*subscription.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var offer subscription.Offer
	if err := r.db.NamedGetContext(ctx, &offer, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("offer", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get offer")
	}
	return &offer, nil
}

func (r *offerRepository) CreateVersion(ctx context.Context, v *subscription.OfferVersion) error {
	query := `INSERT INTO offer_versions (` + offerVersionColumns + `) VALUES (
		:id, :tenant_id, :offer_id, :version, :price, :currency, :billing_cycle,
		:status, :created_at, :updated_at, :created_by, :updated_by)`

	if _, err := r.db.NamedExecContext(ctx, query, v); err != nil {
		return postgres.ClassifyError(err, "Failed to create offer version")
	}
	return nil
}

func (r *offerRepository) GetVersion(ctx context.Context, id string) (*subscription.OfferVersion, error) {
	query := `SELECT ` + offerVersionColumns + ` FROM offer_versions
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	var v subscription.OfferVersion
	if err := r.db.NamedGetContext(ctx, &v, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("offer version", id)
		}
		return nil, postgres.ClassifyError(err, "Failed to get offer version")
	}
	return &v, nil
}
