package app

import (
	"github.com/Jethrr/moodlequest-sub000/internal/middleware"
	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
)

type Middleware struct {
	Auth    *middleware.AuthMiddleware
	Webhook *middleware.WebhookAuthMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth:    middleware.NewAuthMiddleware(log, cfg.JWTSecretKey),
		Webhook: middleware.NewWebhookAuthMiddleware(log, cfg.WebhookToken),
	}
}
