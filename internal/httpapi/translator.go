package httpapi

import (
	"net/http"

	"logistics-platform/internal/audit"
	"logistics-platform/internal/auth"
	"logistics-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DeniedDetail is the only thing a refused caller ever learns.
const DeniedDetail = "Access denied."

// Translate turns authorization failures raised anywhere in the chain into
// the uniform 403 response.
//
// For a denied request it writes {"detail":"Access denied."}, records exactly
// one permission_denied entry carrying the internal reason, and writes a
// [SECURITY] line to the operational log. The audit write is best-effort.
// Any other error is left to the handler that raised it.
func Translate(svc *audit.Service, counters Counters) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		var denied error
		for _, e := range c.Errors {
			if auth.IsAuthorization(e.Err) {
				denied = e.Err
				break
			}
		}
		if denied == nil {
			return
		}

		if !c.Writer.Written() {
			c.JSON(http.StatusForbidden, gin.H{"detail": DeniedDetail})
		}

		ctx := c.Request.Context()
		resource := c.GetString(keyResource)
		userID := "anonymous"
		if p := auth.PrincipalFrom(ctx); p != nil {
			userID = p.ID
		}
		logger.FromGin(c).Warn("[SECURITY] permission denied",
			"user_id", userID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"err", denied,
		)

		svc.Log(ctx, audit.Entry{
			Action:       audit.ActionPermissionDenied,
			ResourceType: resource,
			ResourceID:   c.Param("id"),
			Severity:     audit.SeverityMedium,
			Success:      false,
			ErrorMessage: denied.Error(),
		})
		if counters != nil {
			counters.PermissionDenied(resource)
		}
	}
}
