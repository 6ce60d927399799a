package config

import (
	"time"

	"github.com/flexprice/ispbilling/internal/types"
)

// NotificationConfig represents the configuration for the post-commit notification outbox
type NotificationConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Topic   string           `mapstructure:"topic" validate:"required"`
	PubSub  types.PubSubType `mapstructure:"pubsub" validate:"required,oneof=memory kafka"`
	// MaxRetries is how many times a failed consumer delivery is retried before it goes to the poison queue
	MaxRetries int `mapstructure:"max_retries"`
	// InitialInterval is the first retry delay; it doubles on each attempt up to MaxInterval
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// EmailConfig enables payment and invoice receipts through Resend
type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address" validate:"omitempty,email"`
	ReplyTo     string `mapstructure:"reply_to" validate:"omitempty,email"`
}

// ProvisioningConfig points the notification consumer at the network
// provisioning and dunning services. An empty URL keeps the logging fallback.
type ProvisioningConfig struct {
	ServiceRestoreURL string        `mapstructure:"service_restore_url" validate:"omitempty,url"`
	DunningResolveURL string        `mapstructure:"dunning_resolve_url" validate:"omitempty,url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
}
