package app

import (
	"github.com/gin-gonic/gin"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/server"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:              log,
		AuthMiddleware:   middleware.Auth,
		WebhookAuth:      middleware.Webhook,
		WebhookHandler:   handlers.Webhook,
		RealtimeHandler:  handlers.Realtime,
		QuestHandler:     handlers.Quest,
		AnalyticsHandler: handlers.Analytics,
		AllowOrigins:     cfg.AllowOrigins,
		StaffRole:        cfg.StaffRole,
	})
}
