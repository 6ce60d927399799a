package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/pubsub"
	"github.com/flexprice/ispbilling/internal/types"
)

// Publisher puts billing notifications on the outbox topic
type Publisher interface {
	Publish(ctx context.Context, event *types.NotificationEvent) error
	Close() error
}

type publisher struct {
	pubSub pubsub.PubSub
	config *config.NotificationConfig
	logger *logger.Logger
}

func NewPublisher(pubSub pubsub.PubSub, cfg *config.Configuration, logger *logger.Logger) Publisher {
	return &publisher{
		pubSub: pubSub,
		config: &cfg.Notification,
		logger: logger,
	}
}

func (p *publisher) Publish(ctx context.Context, event *types.NotificationEvent) error {
	if !p.config.Enabled {
		p.logger.Debugw("notifications disabled, dropping event",
			"event_name", event.EventName,
			"account_id", event.AccountID,
		)
		return nil
	}

	if event.ID == "" {
		event.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NOTIFICATION)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.TenantID == "" {
		event.TenantID = types.GetTenantID(ctx)
	}
	if event.UserID == "" {
		event.UserID = types.GetUserID(ctx)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to marshal notification event").
			Mark(ierr.ErrSystem)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("tenant_id", event.TenantID)
	msg.Metadata.Set("event_name", string(event.EventName))

	p.logger.Debugw("publishing notification",
		"event_id", event.ID,
		"event_name", event.EventName,
		"tenant_id", event.TenantID,
		"account_id", event.AccountID,
		"topic", p.config.Topic,
	)

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish notification",
			"error", err,
			"event_id", event.ID,
			"event_name", event.EventName,
			"tenant_id", event.TenantID,
		)
		return ierr.WithError(err).
			WithHint("Failed to publish notification").
			Mark(ierr.ErrTransient)
	}
	return nil
}

func (p *publisher) Close() error {
	return p.pubSub.Close()
}
