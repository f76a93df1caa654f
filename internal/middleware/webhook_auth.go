package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
)

const webhookTokenHeader = "X-Webhook-Token"

type WebhookAuthMiddleware struct {
	log    *logger.Logger
	secret string
}

func NewWebhookAuthMiddleware(log *logger.Logger, secret string) *WebhookAuthMiddleware {
	middlewareLogger := log.With("Middleware", "WebhookAuthMiddleware")
	return &WebhookAuthMiddleware{log: middlewareLogger, secret: secret}
}

// RequireSharedSecret authenticates LMS webhook calls with a constant-time
// compare of the shared secret header.
func (wm *WebhookAuthMiddleware) RequireSharedSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if wm.secret == "" {
			wm.log.Warn("webhook secret not configured; rejecting request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "webhook auth not configured"})
			return
		}
		got := c.GetHeader(webhookTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(wm.secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook token"})
			return
		}
		c.Next()
	}
}
