package config

import (
	"time"

	"github.com/flexprice/ispbilling/internal/types"
)

// Documented fallbacks for every billing setting left empty in the configuration.
const (
	DefaultCurrency               = "USD"
	DefaultInvoiceStatus          = types.InvoiceStatusDraft
	DefaultInvoiceDueDays         = 14
	DefaultInvoiceNumberPrefix    = "INV-"
	DefaultCreditNoteNumberPrefix = "CN-"
	DefaultNumberPadding          = 6
	DefaultNumberStart            = 1
	DefaultRetryAttempts          = 3
	DefaultRetryDelay             = 2 * time.Second
)

// BillingConfig holds the billing defaults injected into the ledger services
type BillingConfig struct {
	DefaultCurrency        string              `mapstructure:"default_currency"`
	DefaultInvoiceStatus   types.InvoiceStatus `mapstructure:"default_invoice_status"`
	InvoiceDueDays         int                 `mapstructure:"invoice_due_days" validate:"gte=0"`
	InvoiceNumberPrefix    string              `mapstructure:"invoice_number_prefix"`
	CreditNoteNumberPrefix string              `mapstructure:"credit_note_number_prefix"`
	NumberPadding          int                 `mapstructure:"number_padding" validate:"gte=0,lte=18"`
	NumberStart            int64               `mapstructure:"number_start" validate:"gte=0"`
	AutoActivatePending    bool                `mapstructure:"auto_activate_pending"`
	IncludePending         bool                `mapstructure:"include_pending"`
	RetryAttempts          int                 `mapstructure:"retry_attempts" validate:"gte=0"`
	RetryDelay             time.Duration       `mapstructure:"retry_delay"`
	// CreateRefundCreditNote issues a mirror credit note for every processed refund
	CreateRefundCreditNote bool `mapstructure:"create_refund_credit_note"`
}

// SetDefaults fills every unset field with its documented fallback
func (c *BillingConfig) SetDefaults() {
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = DefaultCurrency
	}
	c.DefaultCurrency = types.NormalizeCurrency(c.DefaultCurrency)
	if c.DefaultInvoiceStatus == "" {
		c.DefaultInvoiceStatus = DefaultInvoiceStatus
	}
	if c.InvoiceDueDays == 0 {
		c.InvoiceDueDays = DefaultInvoiceDueDays
	}
	if c.InvoiceNumberPrefix == "" {
		c.InvoiceNumberPrefix = DefaultInvoiceNumberPrefix
	}
	if c.CreditNoteNumberPrefix == "" {
		c.CreditNoteNumberPrefix = DefaultCreditNoteNumberPrefix
	}
	if c.NumberPadding == 0 {
		c.NumberPadding = DefaultNumberPadding
	}
	if c.NumberStart == 0 {
		c.NumberStart = DefaultNumberStart
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = DefaultRetryDelay
	}
}

// NewDefaultBillingConfig returns a BillingConfig with every fallback applied
func NewDefaultBillingConfig() BillingConfig {
	c := BillingConfig{}
	c.SetDefaults()
	return c
}
