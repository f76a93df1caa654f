package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/services"
)

type AnalyticsHandler struct {
	log       *logger.Logger
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(log *logger.Logger, analytics services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:       log.With("Handler", "AnalyticsHandler"),
		analytics: analytics,
	}
}

// CourseEngagement reports engagement aggregates over a rolling window,
// 30 days unless the days query parameter narrows it.
func (h *AnalyticsHandler) CourseEngagement(c *gin.Context) {
	courseID, err := uuid.Parse(c.Param("courseID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}

	window := time.Duration(0)
	if days := c.Query("days"); days != "" {
		parsed, err := time.ParseDuration(days + "h")
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_window", err)
			return
		}
		window = parsed * 24
	}

	report, err := h.analytics.CourseEngagement(c.Request.Context(), courseID, window)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "analytics_failed", err)
		return
	}
	RespondOK(c, report)
}
