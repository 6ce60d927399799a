package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/flexprice/ispbilling/internal/domain/paymentchannel"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
)

const (
	paymentMethodColumns = `id, tenant_id, account_id, provider_id, payment_channel_id, kind, label,
		status, created_at, updated_at, created_by, updated_by`
	paymentChannelColumns = `id, tenant_id, provider_id, name, is_default, default_collection_account_id,
		status, created_at, updated_at, created_by, updated_by`
	collectionAccountColumns = `id, tenant_id, name, bank_name, account_number, currency,
		status, created_at, updated_at, created_by, updated_by`
	channelAccountColumns = `id, tenant_id, payment_channel_id, collection_account_id, currency, is_default, priority,
		status, created_at, updated_at, created_by, updated_by`
)

type paymentChannelRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewPaymentChannelRepository serves payment routing metadata
func NewPaymentChannelRepository(db *postgres.DB, logger *logger.Logger) paymentchannel.Repository {
	return &paymentChannelRepository{db: db, logger: logger}
}

func (r *paymentChannelRepository) byID(ctx context.Context, dest interface{}, table, columns, entity, id string) error {
	query := `SELECT ` + columns + ` FROM ` + table + `
		WHERE id = :id AND tenant_id = :tenant_id AND status = :status`

	params := map[string]interface{}{
		"id":        id,
		"tenant_id": types.GetTenantID(ctx),
		"status":    types.StatusPublished,
	}

	if err := r.db.NamedGetContext(ctx, dest, query, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(entity, id)
		}
		return postgres.ClassifyError(err, "Failed to get "+entity)
	}
	return nil
}

func (r *paymentChannelRepository) insert(ctx context.Context, table, columns, values, entity string, arg interface{}) error {
	query := `INSERT INTO ` + table + ` (` + columns + `) VALUES (` + values + `)`
	if _, err := r.db.NamedExecContext(ctx, query, arg); err != nil {
		return postgres.ClassifyError(err, "Failed to create "+entity)
	}
	return nil
}

func (r *paymentChannelRepository) CreateMethod(ctx context.Context, m *paymentchannel.Method) error {
	return r.insert(ctx, "payment_methods", paymentMethodColumns,
		`:id, :tenant_id, :account_id, :provider_id, :payment_channel_id, :kind, :label,
		:status, :created_at, :updated_at, :created_by, :updated_by`, "payment method", m)
}

func (r *paymentChannelRepository) GetMethod(ctx context.Context, id string) (*paymentchannel.Method, error) {
	var m paymentchannel.Method
	if err := r.byID(ctx, &m, "payment_methods", paymentMethodColumns, "payment method", id); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *paymentChannelRepository) CreateChannel(ctx context.Context, c *paymentchannel.Channel) error {
	return r.insert(ctx, "payment_channels", paymentChannelColumns,
		`:id, :tenant_id, :provider_id, :name, :is_default, :default_collection_account_id,
		:status, :created_at, :updated_at, :created_by, :updated_by`, "payment channel", c)
}

func (r *paymentChannelRepository) GetChannel(ctx context.Context, id string) (*paymentchannel.Channel, error) {
	var c paymentchannel.Channel
	if err := r.byID(ctx, &c, "payment_channels", paymentChannelColumns, "payment channel", id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *paymentChannelRepository) ListChannelsByProvider(ctx context.Context, providerID string) ([]*paymentchannel.Channel, error) {
	query := `SELECT ` + paymentChannelColumns + ` FROM payment_channels
		WHERE tenant_id = :tenant_id AND provider_id = :provider_id AND status = :status
		ORDER BY is_default DESC, created_at ASC, id ASC`

	params := map[string]interface{}{
		"tenant_id":   types.GetTenantID(ctx),
		"provider_id": providerID,
		"status":      types.StatusPublished,
	}

	var channels []*paymentchannel.Channel
	if err := r.db.NamedSelectContext(ctx, &channels, query, params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list payment channels")
	}
	return channels, nil
}

func (r *paymentChannelRepository) CreateCollectionAccount(ctx context.Context, a *paymentchannel.CollectionAccount) error {
	return r.insert(ctx, "collection_accounts", collectionAccountColumns,
		`:id, :tenant_id, :name, :bank_name, :account_number, :currency,
		:status, :created_at, :updated_at, :created_by, :updated_by`, "collection account", a)
}

func (r *paymentChannelRepository) GetCollectionAccount(ctx context.Context, id string) (*paymentchannel.CollectionAccount, error) {
	var a paymentchannel.CollectionAccount
	if err := r.byID(ctx, &a, "collection_accounts", collectionAccountColumns, "collection account", id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *paymentChannelRepository) CreateChannelAccount(ctx context.Context, ca *paymentchannel.ChannelAccount) error {
	return r.insert(ctx, "payment_channel_accounts", channelAccountColumns,
		`:id, :tenant_id, :payment_channel_id, :collection_account_id, :currency, :is_default, :priority,
		:status, :created_at, :updated_at, :created_by, :updated_by`, "payment channel account", ca)
}

func (r *paymentChannelRepository) ListChannelAccounts(ctx context.Context, channelID string) ([]*paymentchannel.ChannelAccount, error) {
	query := `SELECT ` + channelAccountColumns + ` FROM payment_channel_accounts
		WHERE tenant_id = :tenant_id AND payment_channel_id = :payment_channel_id AND status = :status
		ORDER BY is_default DESC, priority ASC, created_at ASC, id ASC`

	params := map[string]interface{}{
		"tenant_id":          types.GetTenantID(ctx),
		"payment_channel_id": channelID,
		"status":             types.StatusPublished,
	}

	var mappings []*paymentchannel.ChannelAccount
	if err := r.db.NamedSelectContext(ctx, &mappings, query, params); err != nil {
		return nil, postgres.ClassifyError(err, "Failed to list payment channel accounts")
	}
	return mappings, nil
}
