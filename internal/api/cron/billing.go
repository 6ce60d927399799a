package cron

import (
	"net/http"
	"time"

	"github.com/flexprice/ispbilling/internal/api/dto"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/service"
	"github.com/gin-gonic/gin"
)

// BillingHandler exposes the recurring billing jobs to an external scheduler
type BillingHandler struct {
	billingService service.BillingAutomationService
	logger         *logger.Logger
}

func NewBillingHandler(billingService service.BillingAutomationService, logger *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		logger:         logger,
	}
}

// RunInvoiceCycle bills every due subscription. The body is optional.
func (h *BillingHandler) RunInvoiceCycle(c *gin.Context) {
	h.logger.Infow("starting billing run cron job", "time", time.Now().UTC().Format(time.RFC3339))

	var req dto.RunInvoiceCycleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Errorw("failed to parse request parameters", "error", err)
			c.Error(ierr.WithError(err).
				WithHint("Invalid request parameters").
				Mark(ierr.ErrValidation))
			return
		}
	}

	summary, err := h.billingService.RunInvoiceCycleWithRetry(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	h.logger.Infow("billing run cron job completed",
		"billing_run_id", summary.BillingRunID,
		"invoices_created", summary.InvoicesCreated,
		"attempts", summary.Attempts,
	)
	c.JSON(http.StatusOK, summary)
}

// GenerateProratedInvoice bills the partial first period of one subscription
func (h *BillingHandler) GenerateProratedInvoice(c *gin.Context) {
	var req dto.GenerateProratedInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.billingService.GenerateProratedInvoice(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
