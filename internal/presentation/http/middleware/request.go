package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/security"
)

// RequestIDHeader carries the per-request id
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestId"

// RequestID assigns a ULID to every request unless the caller supplied one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = security.GenerateULID()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs every request on the http channel
func RequestLogger(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"requestId", GetRequestID(c),
			"clientIp", c.ClientIP(),
		}
		if status >= http.StatusInternalServerError {
			logger.HTTP().Error("Request completed", attrs...)
			return
		}
		logger.HTTP().Info("Request completed", attrs...)
	}
}

// Recovery converts panics into a 200 END body on USSD paths and a JSON 500 elsewhere
func Recovery(logger *logging.ChanneledLogger, ussdBody string) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.HTTP().Error("Panic recovered",
			"panic", fmt.Sprint(recovered),
			"path", c.Request.URL.Path,
			"requestId", GetRequestID(c),
			"stack", string(debug.Stack()))

		if strings.HasSuffix(c.Request.URL.Path, "/ussd") {
			c.String(http.StatusOK, ussdBody)
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}
