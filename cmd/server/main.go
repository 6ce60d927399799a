package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flexprice/ispbilling/internal/api"
	"github.com/flexprice/ispbilling/internal/api/cron"
	v1 "github.com/flexprice/ispbilling/internal/api/v1"
	"github.com/flexprice/ispbilling/internal/app"
	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/integration/stripe"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/notification"
	pubsubRouter "github.com/flexprice/ispbilling/internal/pubsub/router"
	"github.com/flexprice/ispbilling/internal/service"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		app.Module,
		fx.Provide(
			stripe.NewWebhookParser,
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(startServer),
	).Run()
}

func provideHandlers(
	logger *logger.Logger,
	parser *stripe.WebhookParser,
	providerEventService service.ProviderEventService,
	billingService service.BillingAutomationService,
) api.Handlers {
	return api.Handlers{
		Health:        v1.NewHealthHandler(logger),
		ProviderEvent: v1.NewProviderEventHandler(providerEventService, logger),
		StripeWebhook: v1.NewStripeWebhookHandler(parser, providerEventService, logger),
		CronBilling:   cron.NewBillingHandler(billingService, logger),
	}
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	router *pubsubRouter.Router,
	handler notification.Handler,
	publisher notification.Publisher,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		notification.StartConsumer(lc, cfg, router, handler, publisher, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeConsumer:
		notification.StartConsumer(lc, cfg, router, handler, publisher, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down API server")
			return srv.Shutdown(ctx)
		},
	})
}
