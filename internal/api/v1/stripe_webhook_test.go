package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/domain/provider"
	"github.com/flexprice/ispbilling/internal/integration/stripe"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const webhookSecret = "whsec_handler_secret"

type fakeProviderEventService struct {
	ingested []dto.IngestProviderEventRequest
}

func (f *fakeProviderEventService) Ingest(ctx context.Context, req dto.IngestProviderEventRequest) (*dto.ProviderEventResponse, error) {
	f.ingested = append(f.ingested, req)
	return &dto.ProviderEventResponse{Event: &provider.Event{
		ProviderID:     req.ProviderID,
		IdempotencyKey: req.IdempotencyKey,
		EventType:      req.EventType,
	}}, nil
}

func (f *fakeProviderEventService) GetEvent(ctx context.Context, id string) (*dto.ProviderEventResponse, error) {
	return nil, nil
}

func (f *fakeProviderEventService) ListEvents(ctx context.Context, filter *types.ProviderEventFilter) ([]*dto.ProviderEventResponse, error) {
	return nil, nil
}

func newWebhookRouter(svc *fakeProviderEventService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.GetDefaultConfig()
	cfg.Stripe.WebhookSecret = webhookSecret

	handler := NewStripeWebhookHandler(stripe.NewWebhookParser(cfg, logger.NewNopLogger()), svc, logger.NewNopLogger())
	router := gin.New()
	router.POST("/v1/webhooks/stripe/:provider_id", handler.HandleWebhook)
	return router
}

func postWebhook(t *testing.T, router *gin.Engine, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe/pprov_stripe", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStripeWebhookIgnoresUnmappedEvents(t *testing.T) {
	svc := &fakeProviderEventService{}
	router := newWebhookRouter(svc)

	w := postWebhook(t, router, []byte(`{"id":"evt_cust","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`))
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Event ignored", resp.Message)
	assert.Equal(t, "evt_cust", resp.EventID)
	assert.Empty(t, svc.ingested)
}

func TestStripeWebhookIngestsPaymentEvents(t *testing.T) {
	svc := &fakeProviderEventService{}
	router := newWebhookRouter(svc)

	w := postWebhook(t, router, []byte(`{"id":"evt_pi","object":"event","type":"payment_intent.succeeded","data":{"object":{
		"id":"pi_9","object":"payment_intent","amount":2500,"amount_received":2500,"currency":"kes",
		"metadata":{"account_id":"acct_1"}}}}`))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, svc.ingested, 1)
	assert.Equal(t, "pprov_stripe", svc.ingested[0].ProviderID)
	assert.Equal(t, "evt_pi", svc.ingested[0].IdempotencyKey)
	assert.Equal(t, types.ProviderEventTypePaymentSucceeded, svc.ingested[0].EventType)
}
