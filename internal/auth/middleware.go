package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	claimsKey    = "auth_claims"
	identityKey  = "auth_identity"
	bearerPrefix = "Bearer "
)

// Middleware requires a valid bearer token and stores the caller identity in the gin context.
// EventSource clients cannot set headers, so an access_token query parameter is also accepted.
func Middleware(svc *Service, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			abortUnauthenticated(c, "missing bearer token")
			return
		}

		claims, err := svc.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			logger.Debug("Authentication failed",
				slog.String("path", c.Request.URL.Path),
				slog.Any("error", err),
			)
			abortUnauthenticated(c, err.Error())
			return
		}

		SetClaims(c, claims)
		c.Next()
	}
}

// SetClaims stores validated claims and the identity they carry in the gin context
func SetClaims(c *gin.Context, claims *Claims) {
	c.Set(claimsKey, claims)
	c.Set(identityKey, claims.Identity())
}

// IdentityFrom returns the authenticated caller, or nil
func IdentityFrom(c *gin.Context) *domain.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*domain.Identity)
	return id
}

// ClaimsFrom returns the validated token claims, or nil
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	if header != "" {
		return ""
	}
	return c.Query("access_token")
}

func abortUnauthenticated(c *gin.Context, reason string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   domain.ErrNotAuthenticated.Message,
		"code":    domain.ErrNotAuthenticated.Code,
		"details": reason,
	})
}
