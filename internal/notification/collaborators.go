package notification

import (
	"context"
	"encoding/json"

	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
)

// ServiceRestorer re-enables network service for an account once an invoice is paid.
// It is owned by the dunning module.
type ServiceRestorer interface {
	RestoreAccountServices(ctx context.Context, accountID, invoiceID string) error
}

// DunningResolver closes open collection cases when a payment succeeds
type DunningResolver interface {
	ResolveCasesForAccount(ctx context.Context, accountID string, invoiceID *string) error
}

// EventSink receives every billing notification, e.g. for email or webhook fan-out
type EventSink interface {
	Emit(ctx context.Context, eventName types.NotificationEventName, payload json.RawMessage, accountID string, invoiceID *string) error
}

// loggingCollaborator is the default wiring when no external module is plugged in.
// It records the call so operators can see what would have been triggered.
type loggingCollaborator struct {
	logger *logger.Logger
}

func NewLoggingServiceRestorer(logger *logger.Logger) ServiceRestorer {
	return &loggingCollaborator{logger: logger}
}

func NewLoggingDunningResolver(logger *logger.Logger) DunningResolver {
	return &loggingCollaborator{logger: logger}
}

func NewLoggingEventSink(logger *logger.Logger) EventSink {
	return &loggingCollaborator{logger: logger}
}

func (c *loggingCollaborator) RestoreAccountServices(ctx context.Context, accountID, invoiceID string) error {
	c.logger.Infow("restore account services requested",
		"tenant_id", types.GetTenantID(ctx),
		"account_id", accountID,
		"invoice_id", invoiceID,
	)
	return nil
}

func (c *loggingCollaborator) ResolveCasesForAccount(ctx context.Context, accountID string, invoiceID *string) error {
	c.logger.Infow("resolve dunning cases requested",
		"tenant_id", types.GetTenantID(ctx),
		"account_id", accountID,
		"invoice_id", invoiceID,
	)
	return nil
}

func (c *loggingCollaborator) Emit(ctx context.Context, eventName types.NotificationEventName, payload json.RawMessage, accountID string, invoiceID *string) error {
	c.logger.Infow("billing event emitted",
		"tenant_id", types.GetTenantID(ctx),
		"event_name", eventName,
		"account_id", accountID,
		"invoice_id", invoiceID,
		"payload", string(payload),
	)
	return nil
}
