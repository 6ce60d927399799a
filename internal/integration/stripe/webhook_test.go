package stripe

import (
	"os"
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/flexprice/ispbilling/internal/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

func TestMain(m *testing.M) {
	validator.NewValidator()
	os.Exit(m.Run())
}

func newTestParser(secret string) *WebhookParser {
	cfg := config.GetDefaultConfig()
	cfg.Stripe.WebhookSecret = secret
	return NewWebhookParser(cfg, logger.NewNopLogger())
}

func sign(t *testing.T, body []byte) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    testSecret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestWebhookParser_Parse(t *testing.T) {
	body := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)

	t.Run("valid signature", func(t *testing.T) {
		event, err := newTestParser(testSecret).Parse(body, sign(t, body))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
	})

	t.Run("tampered body", func(t *testing.T) {
		header := sign(t, body)
		tampered := []byte(`{"id":"evt_2","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
		_, err := newTestParser(testSecret).Parse(tampered, header)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := newTestParser(testSecret).Parse(body, "")
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("secret not configured", func(t *testing.T) {
		_, err := newTestParser("").Parse(body, sign(t, body))
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})
}

func TestWebhookParser_ToIngestRequest(t *testing.T) {
	parser := newTestParser(testSecret)

	t.Run("payment intent succeeded", func(t *testing.T) {
		body := []byte(`{"id":"evt_pi_ok","object":"event","type":"payment_intent.succeeded","data":{"object":{
			"id":"pi_123","object":"payment_intent","amount":12500,"amount_received":12500,"currency":"usd",
			"metadata":{"account_id":"acct_1","invoice_id":"inv_1"}}}}`)
		event, err := parser.Parse(body, sign(t, body))
		require.NoError(t, err)

		req, ok, err := parser.ToIngestRequest("pprov_stripe", event)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "pprov_stripe", req.ProviderID)
		assert.Equal(t, "evt_pi_ok", req.IdempotencyKey)
		assert.Equal(t, types.ProviderEventTypePaymentSucceeded, req.EventType)
		assert.Equal(t, "pi_123", *req.ExternalID)
		assert.Equal(t, "acct_1", *req.AccountID)
		assert.Equal(t, "inv_1", *req.InvoiceID)
		assert.Nil(t, req.PaymentID)
		assert.Equal(t, "USD", *req.Currency)
		assert.True(t, decimal.NewFromInt(125).Equal(*req.Amount))
		require.NoError(t, req.Validate())
	})

	t.Run("payment intent failed", func(t *testing.T) {
		body := []byte(`{"id":"evt_pi_fail","object":"event","type":"payment_intent.payment_failed","data":{"object":{
			"id":"pi_456","object":"payment_intent","amount":5000,"currency":"eur","metadata":{"payment_id":"pay_1"}}}}`)
		event, err := parser.Parse(body, sign(t, body))
		require.NoError(t, err)

		req, ok, err := parser.ToIngestRequest("pprov_stripe", event)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, types.ProviderEventTypePaymentFailed, req.EventType)
		assert.Equal(t, "pay_1", *req.PaymentID)
		assert.True(t, decimal.NewFromInt(50).Equal(*req.Amount))
	})

	t.Run("partial charge refund uses the latest refund", func(t *testing.T) {
		body := []byte(`{"id":"evt_refund","object":"event","type":"charge.refunded","data":{"object":{
			"id":"ch_1","object":"charge","amount":10000,"amount_refunded":3000,"currency":"usd","refunded":false,
			"payment_intent":"pi_789",
			"refunds":{"object":"list","data":[{"id":"re_2","object":"refund","amount":2000},{"id":"re_1","object":"refund","amount":1000}]}}}}`)
		event, err := parser.Parse(body, sign(t, body))
		require.NoError(t, err)

		req, ok, err := parser.ToIngestRequest("pprov_stripe", event)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, types.ProviderEventTypePaymentRefunded, req.EventType)
		assert.Equal(t, "pi_789", *req.ExternalID)
		assert.True(t, decimal.NewFromInt(20).Equal(*req.Amount))
	})

	t.Run("full charge refund leaves the amount open", func(t *testing.T) {
		body := []byte(`{"id":"evt_refund_full","object":"event","type":"charge.refunded","data":{"object":{
			"id":"ch_2","object":"charge","amount":10000,"amount_refunded":10000,"currency":"usd","refunded":true,
			"payment_intent":"pi_790"}}}`)
		event, err := parser.Parse(body, sign(t, body))
		require.NoError(t, err)

		req, ok, err := parser.ToIngestRequest("pprov_stripe", event)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Nil(t, req.Amount)
		assert.Equal(t, "USD", *req.Currency)
	})

	t.Run("unrelated event is dropped", func(t *testing.T) {
		body := []byte(`{"id":"evt_cus","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
		event, err := parser.Parse(body, sign(t, body))
		require.NoError(t, err)

		req, ok, err := parser.ToIngestRequest("pprov_stripe", event)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, req)
	})
}

func TestFromMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		currency string
		want     string
	}{
		{"cents", 12345, "usd", "123.45"},
		{"zero decimal", 5000, "JPY", "5000"},
		{"single cent", 1, "EUR", "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decimal.RequireFromString(tt.want).Equal(FromMinorUnits(tt.amount, tt.currency)))
		})
	}
}
