package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jlin-dev/carbonlens/internal/infra/config"
)

const tenantContextKey = "carbonlens.tenant"

// authMiddleware validates the gateway-issued bearer token and stores the
// tenant that scopes every downstream query. With auth disabled (dev mode)
// the tenant comes from the X-Tenant-ID header instead.
func authMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			tenant := strings.TrimSpace(c.GetHeader("X-Tenant-ID"))
			if tenant == "" {
				abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing tenant header", nil))
				return
			}
			c.Set(tenantContextKey, tenant)
			c.Next()
		}
	}

	secret := []byte(cfg.JWTSecret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "missing authorization header", nil))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortWithError(c, NewHTTPError(http.StatusUnauthorized, "unauthorized", "invalid authorization header", nil))
			return
		}

		token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			abortWithError(c, NewHTTPError(http.StatusForbidden, "invalid_token", "token validation failed", err))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortWithError(c, NewHTTPError(http.StatusForbidden, "invalid_token", "unexpected claims format", nil))
			return
		}
		tenant, _ := claims["tenant_id"].(string)
		if strings.TrimSpace(tenant) == "" {
			abortWithError(c, NewHTTPError(http.StatusForbidden, "invalid_token", "token missing tenant claim", nil))
			return
		}

		c.Set(tenantContextKey, tenant)
		c.Next()
	}
}

func tenantFrom(c *gin.Context) string {
	tenant, _ := c.Get(tenantContextKey)
	s, _ := tenant.(string)
	return s
}
