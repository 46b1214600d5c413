package auth

import (
	"strings"
	"time"

	"logistics-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// Authenticate resolves an optional bearer token into a request principal.
//
// It never aborts. A missing, invalid or revoked token leaves the request
// anonymous (nil principal); the permission table then denies it and the
// denial is rendered by the exception translator like any other.
// RBAC checks do not belong here.
//
// When users is non-nil the subject is reloaded on every request, so a role
// change or deactivation takes effect before the token expires.
func Authenticate(m *Manager, revoked Revocations, users PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.Next()
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)
		log := logger.FromGin(c)

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			log.Debug("bearer token rejected", "err", err)
			c.Next()
			return
		}
		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// fail closed: an unverifiable token is treated as anonymous
				log.Warn("revocation lookup failed", "err", err)
				c.Next()
				return
			}
			if isRevoked {
				log.Debug("bearer token revoked", "jti", claims.ID)
				c.Next()
				return
			}
		}

		p, err := PrincipalFromClaims(claims)
		if err != nil {
			c.Next()
			return
		}
		if users != nil {
			current, err := users.ResolvePrincipal(c.Request.Context(), p.ID)
			if err != nil || !current.Active {
				log.Debug("token subject unavailable", "user_id", p.ID, "err", err)
				c.Next()
				return
			}
			p = current
		}

		ctx := WithPrincipal(c.Request.Context(), p)
		ctx = WithTokenID(ctx, claims.ID)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", p.ID)
		c.Set("role", p.Role.String())

		c.Next()
	}
}
