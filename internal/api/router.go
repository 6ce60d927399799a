package api

import (
	"github.com/flexprice/ispbilling/internal/api/cron"
	v1 "github.com/flexprice/ispbilling/internal/api/v1"
	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/rest/middleware"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health        *v1.HealthHandler
	ProviderEvent *v1.ProviderEventHandler
	StripeWebhook *v1.StripeWebhookHandler
	CronBilling   *cron.BillingHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(logger),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.TenantMiddleware, middleware.SentryTagsMiddleware)
	{
		providers := v1Group.Group("/providers/:provider_id")
		{
			providers.POST("/events", handlers.ProviderEvent.IngestEvent)
			providers.GET("/events", handlers.ProviderEvent.ListEvents)
		}

		v1Group.GET("/provider-events/:id", handlers.ProviderEvent.GetEvent)

		webhooks := v1Group.Group("/webhooks")
		{
			webhooks.POST("/stripe/:provider_id", handlers.StripeWebhook.HandleWebhook)
		}
	}

	cronGroup := router.Group("/cron")
	cronGroup.Use(middleware.CronAuthMiddleware(cfg, logger), middleware.TenantMiddleware)
	{
		billing := cronGroup.Group("/billing")
		{
			billing.POST("/run", handlers.CronBilling.RunInvoiceCycle)
			billing.POST("/prorate", handlers.CronBilling.GenerateProratedInvoice)
		}
	}

	return router
}
