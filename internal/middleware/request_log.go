package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
)

// RequestLog logs one line per completed request. SSE streams log on
// disconnect, which is when the handler returns.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("Middleware", "RequestLog")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqLog.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
