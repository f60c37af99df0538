// Package handlers provides HTTP handlers for the gateway endpoints
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/afritokeni/ussd-gateway/internal/application/menus"
	"github.com/afritokeni/ussd-gateway/internal/application/services"
	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/performance"
)

// USSDCallback is the gateway payload, accepted as form data or JSON
type USSDCallback struct {
	SessionID   string `form:"sessionId" json:"sessionId"`
	ServiceCode string `form:"serviceCode" json:"serviceCode"`
	PhoneNumber string `form:"phoneNumber" json:"phoneNumber"`
	Text        string `form:"text" json:"text"`
}

// USSDHandlers serves the gateway webhook
type USSDHandlers struct {
	ussdService *services.USSDService
	catalog     *menus.Catalog
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewUSSDHandlers creates USSD handlers with injected dependencies
func NewUSSDHandlers(ussdService *services.USSDService, catalog *menus.Catalog, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *USSDHandlers {
	return &USSDHandlers{
		ussdService: ussdService,
		catalog:     catalog,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostUSSD answers one gateway callback. The status is always 200 with a CON/END body.
func (h *USSDHandlers) PostUSSD(c *gin.Context) {
	var callback USSDCallback
	if err := c.ShouldBind(&callback); err != nil {
		h.logger.HTTP().Warn("Malformed USSD callback", "error", err.Error(), "contentType", c.ContentType())
		c.String(http.StatusOK, menus.Format(false, h.catalog.Text(session.DefaultLanguage, menus.KeyInvalidRequest)))
		return
	}

	reply := h.ussdService.Dispatch(c.Request.Context(), services.USSDRequest{
		SessionID:   callback.SessionID,
		ServiceCode: callback.ServiceCode,
		PhoneNumber: callback.PhoneNumber,
		Text:        callback.Text,
	})
	c.String(http.StatusOK, reply)
}

// GetUSSDInfo describes the webhook for manual testing
func (h *USSDHandlers) GetUSSDInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":  "AfriTokeni USSD API",
		"status":   "active",
		"endpoint": "POST /ussd",
		"message":  "Send POST request with sessionId, phoneNumber, serviceCode, and text",
	})
}
