package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/domain/wallet"
	"github.com/afritokeni/ussd-gateway/internal/infrastructure/observability/logging"
	"github.com/afritokeni/ussd-gateway/internal/presentation/http/middleware"
)

// SendNotificationRequest asks the gateway to text a subscriber
type SendNotificationRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Message     string `json:"message" binding:"required,max=480"`
}

// NotificationHandlers lets trusted services reuse the notification queue
type NotificationHandlers struct {
	notifier wallet.Notifier
	logger   *logging.ChanneledLogger
}

// NewNotificationHandlers creates notification handlers
func NewNotificationHandlers(notifier wallet.Notifier, logger *logging.ChanneledLogger) *NotificationHandlers {
	return &NotificationHandlers{notifier: notifier, logger: logger}
}

// PostSendNotification enqueues one SMS and returns 202 without waiting for delivery
func (h *NotificationHandlers) PostSendNotification(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Phone number and message are required"})
		return
	}

	phone := session.NormalizePhoneNumber(req.PhoneNumber)
	h.notifier.Notify(phone, req.Message)

	h.logger.Notify().Info("Notification accepted from service",
		"tokenId", middleware.ServiceSubject(c), "phone", logging.MaskPhone(phone))
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Notification queued"})
}
