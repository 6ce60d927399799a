// Package app assembles the dependency graph shared by the server and the billing CLI.
package app

import (
	"time"

	"github.com/flexprice/ispbilling/internal/cache"
	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/notification"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/repository"
	"github.com/flexprice/ispbilling/internal/sentry"
	"github.com/flexprice/ispbilling/internal/service"
	"github.com/flexprice/ispbilling/internal/validator"
	govalidator "github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

func init() {
	// every billing date is computed in UTC
	time.Local = time.UTC
}

// Module wires config, logging, storage, the notification outbox and every billing service
var Module = fx.Options(
	fx.Provide(
		config.NewConfig,
		logger.NewLogger,
		cache.NewInMemoryCache,
		validator.NewValidator,
	),
	// request DTOs validate through the package level validator
	fx.Invoke(func(*govalidator.Validate) {}),
	fx.WithLogger(func(log *logger.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Desugar()}
	}),
	sentry.Module(),
	postgres.Module(),
	repository.Module(),
	notification.Module,
	service.Module(),
)
