package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// HealthHandlers serves liveness checks
type HealthHandlers struct {
	now func() time.Time
}

// NewHealthHandlers creates health handlers
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{now: time.Now}
}

// GetHealth reports liveness with the current UTC time
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": h.now().UTC().Format(timestampLayout),
	})
}
