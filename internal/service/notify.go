package service

import (
	"context"
	"encoding/json"

	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
)

// notifyAfterCommit queues a notification that is published once the
// surrounding transaction commits. Publish failures are logged and never
// affect the billing outcome.
func (s *ServiceParams) notifyAfterCommit(
	ctx context.Context,
	eventName types.NotificationEventName,
	accountID string,
	invoiceID, paymentID *string,
	payload map[string]interface{},
) {
	if s.NotificationPublisher == nil {
		return
	}

	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.Logger.Errorw("failed to marshal notification payload",
				"event_name", eventName,
				"account_id", accountID,
				"error", err,
			)
			return
		}
		raw = b
	}

	event := &types.NotificationEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION),
		EventName: eventName,
		TenantID:  types.GetTenantID(ctx),
		UserID:    types.GetUserID(ctx),
		AccountID: accountID,
		InvoiceID: copyString(invoiceID),
		PaymentID: copyString(paymentID),
		Payload:   raw,
	}

	postgres.RunAfterCommit(ctx, func(ctx context.Context) {
		if err := s.NotificationPublisher.Publish(ctx, event); err != nil {
			s.Logger.Errorw("failed to publish notification",
				"event_id", event.ID,
				"event_name", eventName,
				"account_id", accountID,
				"error", err,
			)
			s.Sentry.CaptureExceptionWithTags(err, map[string]string{
				"event_name": string(eventName),
			})
		}
	})
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	return lo.ToPtr(*v)
}
