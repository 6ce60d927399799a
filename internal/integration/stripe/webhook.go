package stripe

import (
	"encoding/json"
	"strings"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Stripe event types we turn into provider events
const (
	EventPaymentIntentSucceeded  = "payment_intent.succeeded"
	EventPaymentIntentFailed     = "payment_intent.payment_failed"
	EventPaymentIntentCanceled   = "payment_intent.canceled"
	EventPaymentIntentProcessing = "payment_intent.processing"
	EventChargeRefunded          = "charge.refunded"
)

// Metadata keys callers set on the payment intent to link it to billing records
const (
	MetadataAccountID = "account_id"
	MetadataInvoiceID = "invoice_id"
	MetadataPaymentID = "payment_id"
)

// currencies Stripe sends in whole units instead of cents
var zeroDecimalCurrencies = []string{
	"BIF", "CLP", "DJF", "GNF", "JPY", "KMF", "KRW", "MGA",
	"PYG", "RWF", "UGX", "VND", "VUV", "XAF", "XOF", "XPF",
}

// WebhookParser verifies Stripe webhook signatures and maps the events we
// understand onto provider event ingestion requests.
type WebhookParser struct {
	secret string
	logger *logger.Logger
}

func NewWebhookParser(cfg *config.Configuration, logger *logger.Logger) *WebhookParser {
	return &WebhookParser{
		secret: cfg.Stripe.WebhookSecret,
		logger: logger,
	}
}

// Parse checks the Stripe-Signature header against the raw body
func (p *WebhookParser) Parse(payload []byte, signature string) (*stripe.Event, error) {
	if p.secret == "" {
		return nil, ierr.NewError("stripe webhook secret not configured").
			WithHint("Webhook secret not configured").
			Mark(ierr.ErrValidation)
	}
	if signature == "" {
		return nil, ierr.NewError("missing Stripe-Signature header").
			WithHint("Missing Stripe-Signature header").
			Mark(ierr.ErrValidation)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		p.logger.Errorw("stripe webhook verification failed", "error", err)
		return nil, ierr.NewError("failed to verify webhook signature").
			WithHint("Invalid webhook signature or payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

// ToIngestRequest maps a verified event. ok is false for event types that do
// not affect payments; those are acknowledged and dropped.
func (p *WebhookParser) ToIngestRequest(providerID string, event *stripe.Event) (req *dto.IngestProviderEventRequest, ok bool, err error) {
	if event.Data == nil {
		return nil, false, ierr.NewError("stripe event has no data").
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation)
	}

	eventType := string(event.Type)
	switch eventType {
	case EventPaymentIntentSucceeded, EventPaymentIntentFailed, EventPaymentIntentCanceled, EventPaymentIntentProcessing:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, false, parseError(eventType, err)
		}
		req = newIngestRequest(providerID, event, paymentIntentEventType(eventType), pi.ID, pi.Metadata)
		amount := pi.AmountReceived
		if amount == 0 {
			amount = pi.Amount
		}
		setAmount(req, amount, string(pi.Currency))

	case EventChargeRefunded:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, false, parseError(eventType, err)
		}
		externalID := ch.ID
		if ch.PaymentIntent != nil && ch.PaymentIntent.ID != "" {
			externalID = ch.PaymentIntent.ID
		}
		req = newIngestRequest(providerID, event, types.ProviderEventTypePaymentRefunded, externalID, ch.Metadata)
		// the latest refund is the one this event reports; a charge fully
		// refunded in one go refunds whatever is left
		if !ch.Refunded && ch.Refunds != nil && len(ch.Refunds.Data) > 0 {
			setAmount(req, ch.Refunds.Data[0].Amount, string(ch.Currency))
		} else if req.Currency == nil && ch.Currency != "" {
			req.Currency = lo.ToPtr(strings.ToUpper(string(ch.Currency)))
		}

	default:
		p.logger.Debugw("ignoring stripe event", "event_id", event.ID, "event_type", eventType)
		return nil, false, nil
	}

	return req, true, nil
}

func newIngestRequest(providerID string, event *stripe.Event, eventType types.ProviderEventType, externalID string, metadata map[string]string) *dto.IngestProviderEventRequest {
	req := &dto.IngestProviderEventRequest{
		ProviderID:     providerID,
		IdempotencyKey: event.ID,
		EventType:      eventType,
		Payload:        event.Data.Raw,
	}
	if externalID != "" {
		req.ExternalID = lo.ToPtr(externalID)
	}
	if v := metadata[MetadataAccountID]; v != "" {
		req.AccountID = lo.ToPtr(v)
	}
	if v := metadata[MetadataInvoiceID]; v != "" {
		req.InvoiceID = lo.ToPtr(v)
	}
	if v := metadata[MetadataPaymentID]; v != "" {
		req.PaymentID = lo.ToPtr(v)
	}
	return req
}

func paymentIntentEventType(eventType string) types.ProviderEventType {
	switch eventType {
	case EventPaymentIntentSucceeded:
		return types.ProviderEventTypePaymentSucceeded
	case EventPaymentIntentFailed:
		return types.ProviderEventTypePaymentFailed
	case EventPaymentIntentCanceled:
		return types.ProviderEventTypePaymentCanceled
	default:
		return types.ProviderEventTypePaymentPending
	}
}

func setAmount(req *dto.IngestProviderEventRequest, minorUnits int64, currency string) {
	currency = strings.ToUpper(currency)
	if currency != "" {
		req.Currency = lo.ToPtr(currency)
	}
	if minorUnits <= 0 {
		return
	}
	req.Amount = lo.ToPtr(FromMinorUnits(minorUnits, currency))
}

// FromMinorUnits converts a Stripe amount into the currency's major unit
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	if lo.Contains(zeroDecimalCurrencies, strings.ToUpper(currency)) {
		return decimal.NewFromInt(amount)
	}
	return decimal.New(amount, -2)
}

func parseError(eventType string, err error) error {
	return ierr.WithError(err).
		WithHintf("Invalid %s data in webhook", eventType).
		Mark(ierr.ErrValidation)
}
