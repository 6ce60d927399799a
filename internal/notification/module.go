package notification

import (
	"context"

	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/email"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/pubsub"
	"github.com/flexprice/ispbilling/internal/pubsub/kafka"
	"github.com/flexprice/ispbilling/internal/pubsub/memory"
	pubsubRouter "github.com/flexprice/ispbilling/internal/pubsub/router"
	"github.com/flexprice/ispbilling/internal/types"
	"go.uber.org/fx"
)

// Module provides the notification outbox: transport, publisher, consumer and default collaborators
var Module = fx.Options(
	fx.Provide(
		providePubSub,
		NewPublisher,
		NewHandler,
		pubsubRouter.NewRouter,
		provideHTTPClient,
		NewServiceRestorer,
		NewDunningResolver,
		NewEventSink,
	),
)

// ConsumerModule starts the router that delivers notifications to the collaborators
var ConsumerModule = fx.Options(
	fx.Invoke(StartConsumer),
)

func providePubSub(cfg *config.Configuration, logger *logger.Logger) (pubsub.PubSub, error) {
	switch cfg.Notification.PubSub {
	case types.MemoryPubSub:
		return memory.NewPubSub(logger), nil
	case types.KafkaPubSub:
		return kafka.NewPubSub(cfg, logger)
	}
	return nil, ierr.NewErrorf("unsupported pubsub type %q", cfg.Notification.PubSub).
		WithHint("notification.pubsub must be memory or kafka").
		Mark(ierr.ErrValidation)
}

// NewEventSink logs every event and, with email configured, mails receipts to the subscriber
func NewEventSink(cfg *config.Configuration, accounts account.Repository, logger *logger.Logger) EventSink {
	sink := NewLoggingEventSink(logger)
	client := email.NewClient(cfg.Email)
	if client == nil {
		return sink
	}
	return email.NewReceiptSink(client, accounts, sink, logger)
}

// StartConsumer registers the notification handler and runs the router for the app lifetime
func StartConsumer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *pubsubRouter.Router,
	h Handler,
	pub Publisher,
	logger *logger.Logger,
) {
	if !cfg.Notification.Enabled {
		logger.Info("notification consumer disabled")
		return
	}

	h.RegisterHandler(router)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := router.Run(ctx); err != nil {
					logger.Errorw("notification router stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if err := router.Close(); err != nil {
				logger.Errorw("failed to close notification router", "error", err)
			}
			return pub.Close()
		},
	})
}
