package middleware

import (
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/gin-gonic/gin"
)

const (
	HeaderRequestID  = "X-Request-ID"
	HeaderTenantID   = "X-Tenant-ID"
	HeaderCronSecret = "X-Cron-Secret"
)

// RequestIDMiddleware propagates the caller's request id, minting one when absent
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(HeaderRequestID, requestID)

	c.Next()
}
