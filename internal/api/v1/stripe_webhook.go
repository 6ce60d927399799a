package v1

import (
	"io"
	"net/http"

	"github.com/flexprice/ispbilling/internal/api/dto"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/integration/stripe"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/service"
	"github.com/gin-gonic/gin"
)

type StripeWebhookHandler struct {
	parser  *stripe.WebhookParser
	service service.ProviderEventService
	log     *logger.Logger
}

func NewStripeWebhookHandler(parser *stripe.WebhookParser, service service.ProviderEventService, log *logger.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{parser: parser, service: service, log: log}
}

// HandleWebhook verifies the Stripe signature and feeds payment events into
// ingestion. Events we do not map are acknowledged so Stripe stops retrying them.
func (h *StripeWebhookHandler) HandleWebhook(c *gin.Context) {
	providerID := c.Param("provider_id")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation))
		return
	}

	event, err := h.parser.Parse(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		c.Error(err)
		return
	}

	req, ok, err := h.parser.ToIngestRequest(providerID, event)
	if err != nil {
		c.Error(err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, dto.SuccessResponse{
			Message: "Event ignored",
			EventID: event.ID,
		})
		return
	}

	resp, err := h.service.Ingest(c.Request.Context(), *req)
	if err != nil {
		h.log.Errorw("failed to ingest stripe event",
			"provider_id", providerID,
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
