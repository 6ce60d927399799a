package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware scopes the request to the tenant named in X-Tenant-ID.
// Gateways cannot send custom headers, so requests without one fall back to
// the default tenant and system user.
func TenantMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	if tenantID := c.GetHeader(HeaderTenantID); tenantID != "" {
		ctx = types.SetTenantID(ctx, tenantID)
	}
	c.Request = c.Request.WithContext(types.WithDefaultTenant(ctx))
	c.Next()
}

// CronAuthMiddleware rejects cron triggers that do not carry the configured secret.
// An empty secret leaves the routes open for local runs.
func CronAuthMiddleware(cfg *config.Configuration, log *logger.Logger) gin.HandlerFunc {
	secret := []byte(cfg.Server.CronSecret)
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(HeaderCronSecret)), secret) != 1 {
			log.Debugw("rejected cron request", "path", c.FullPath())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
