// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/afritokeni/ussd-gateway/internal/application/container"
	"github.com/afritokeni/ussd-gateway/internal/application/menus"
	"github.com/afritokeni/ussd-gateway/internal/domain/entities/session"
	"github.com/afritokeni/ussd-gateway/internal/presentation/http/handlers"
	"github.com/afritokeni/ussd-gateway/internal/presentation/http/middleware"
	"github.com/afritokeni/ussd-gateway/pkg/config"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()

	invalidReply := menus.Format(false, container.Catalog.Text(session.DefaultLanguage, menus.KeyInvalidRequest))

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(container.Logger, invalidReply))
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(config.CORSAllowOrigins))

	// Initialize handlers
	ussdHandlers := handlers.NewUSSDHandlers(container.USSDService, container.Catalog, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers()
	notificationHandlers := handlers.NewNotificationHandlers(container.Notifications, container.Logger)

	// Gateway callbacks are registered at both paths used by operators
	for _, path := range []string{"/ussd", "/api/ussd"} {
		r.POST(path, ussdHandlers.PostUSSD)
		r.GET(path, ussdHandlers.GetUSSDInfo)
	}

	r.GET("/health", healthHandlers.GetHealth)
	r.GET("/api/health", healthHandlers.GetHealth)

	serviceAPI := r.Group("/api")
	serviceAPI.Use(middleware.ServiceAuth(container.ServiceSecret))
	{
		serviceAPI.POST("/send-notification", notificationHandlers.PostSendNotification)
	}

	r.GET("/metrics", gin.WrapH(container.PerfTracker.Handler()))

	return r
}
