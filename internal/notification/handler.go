package notification

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/pubsub"
	pubsubRouter "github.com/flexprice/ispbilling/internal/pubsub/router"
	"github.com/flexprice/ispbilling/internal/sentry"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// Handler consumes billing notifications and calls the collaborators
type Handler interface {
	RegisterHandler(router *pubsubRouter.Router)
	// Handle processes one outbox message; an error sends it back for retry
	Handle(msg *message.Message) error
}

type handler struct {
	pubSub   pubsub.PubSub
	config   *config.NotificationConfig
	restorer ServiceRestorer
	dunning  DunningResolver
	sink     EventSink
	logger   *logger.Logger
	sentry   *sentry.Service
}

func NewHandler(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	restorer ServiceRestorer,
	dunning DunningResolver,
	sink EventSink,
	logger *logger.Logger,
	sentry *sentry.Service,
) Handler {
	return &handler{
		pubSub:   pubSub,
		config:   &cfg.Notification,
		restorer: restorer,
		dunning:  dunning,
		sink:     sink,
		logger:   logger,
		sentry:   sentry,
	}
}

func (h *handler) RegisterHandler(router *pubsubRouter.Router) {
	router.AddNoPublishHandler(
		"billing_notification_handler",
		h.config.Topic,
		h.pubSub,
		h.Handle,
	)
}

func (h *handler) Handle(msg *message.Message) error {
	var event types.NotificationEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal notification",
			"error", err,
			"message_uuid", msg.UUID,
		)
		// a malformed message never becomes valid
		return nil
	}

	ctx := msg.Context()
	ctx = types.SetTenantID(ctx, event.TenantID)
	ctx = types.SetUserID(ctx, event.UserID)
	ctx = types.SetRequestID(ctx, event.ID)

	span, ctx := h.sentry.StartNotificationSpan(ctx, string(event.EventName), event.Timestamp)
	if span != nil {
		defer span.Finish()
	}

	return h.dispatch(ctx, &event)
}

// dispatch calls the collaborators for one event concurrently. A failing
// collaborator does not stop the others; the joined error triggers a redelivery.
func (h *handler) dispatch(ctx context.Context, event *types.NotificationEvent) error {
	p := pool.New().WithContext(ctx)

	switch event.EventName {
	case types.NotificationEventInvoicePaid:
		if event.InvoiceID != nil {
			invoiceID := *event.InvoiceID
			p.Go(func(ctx context.Context) error {
				return h.call(ctx, event, "restore_account_services", func(ctx context.Context) error {
					return h.restorer.RestoreAccountServices(ctx, event.AccountID, invoiceID)
				})
			})
		}
	case types.NotificationEventPaymentReceived:
		p.Go(func(ctx context.Context) error {
			return h.call(ctx, event, "resolve_dunning_cases", func(ctx context.Context) error {
				return h.dunning.ResolveCasesForAccount(ctx, event.AccountID, event.InvoiceID)
			})
		})
	}

	p.Go(func(ctx context.Context) error {
		return h.call(ctx, event, "emit", func(ctx context.Context) error {
			return h.sink.Emit(ctx, event.EventName, event.Payload, event.AccountID, event.InvoiceID)
		})
	})

	return p.Wait()
}

func (h *handler) call(ctx context.Context, event *types.NotificationEvent, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		h.logger.Errorw("notification collaborator failed",
			"collaborator", name,
			"event_id", event.ID,
			"event_name", event.EventName,
			"account_id", event.AccountID,
			"error", err,
		)
		h.sentry.CaptureExceptionWithTags(err, map[string]string{
			"collaborator": name,
			"event_name":   string(event.EventName),
		})
		return ierr.WithError(err).
			WithHintf("Collaborator %s failed", name).
			Mark(ierr.ErrTransient)
	}
	return nil
}
