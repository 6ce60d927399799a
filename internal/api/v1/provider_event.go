package v1

import (
	"net/http"

	"github.com/flexprice/ispbilling/internal/api/dto"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/service"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/gin-gonic/gin"
)

type ProviderEventHandler struct {
	service service.ProviderEventService
	log     *logger.Logger
}

func NewProviderEventHandler(service service.ProviderEventService, log *logger.Logger) *ProviderEventHandler {
	return &ProviderEventHandler{service: service, log: log}
}

// IngestEvent records a gateway event for the provider in the path.
// A replayed event answers 200 with the stored record, a new one 201.
func (h *ProviderEventHandler) IngestEvent(c *gin.Context) {
	var req dto.IngestProviderEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorw("failed to bind provider event", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	req.ProviderID = c.Param("provider_id")

	resp, err := h.service.Ingest(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

func (h *ProviderEventHandler) GetEvent(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Provider event ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetEvent(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProviderEventHandler) ListEvents(c *gin.Context) {
	filter := types.NewProviderEventFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	filter.ProviderID = c.Param("provider_id")

	resp, err := h.service.ListEvents(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}
