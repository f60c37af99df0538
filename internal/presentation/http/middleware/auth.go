package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

const serviceSubjectKey = "serviceSubject"

// ServiceAuth requires a bearer token signed with the shared service secret.
// With no secret configured every request is refused.
func ServiceAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service authentication not configured"})
			return
		}
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := security.ValidateServiceToken(token, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(serviceSubjectKey, claims.ID)
		c.Next()
	}
}

// ServiceSubject returns the token id accepted by ServiceAuth
func ServiceSubject(c *gin.Context) string {
	return c.GetString(serviceSubjectKey)
}
