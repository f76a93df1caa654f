package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/services"
)

type WebhookHandler struct {
	log    *logger.Logger
	router services.EventRouterService
}

func NewWebhookHandler(log *logger.Logger, router services.EventRouterService) *WebhookHandler {
	return &WebhookHandler{
		log:    log.With("Handler", "WebhookHandler"),
		router: router,
	}
}

// HandleMoodleEvent accepts one LMS event per call. Benign conditions
// (unknown users, missing fields, duplicates) still ack with 200 so the
// LMS does not retry them; only unknown event paths and persistence
// failures are surfaced as errors.
func (h *WebhookHandler) HandleMoodleEvent(c *gin.Context) {
	eventPath := c.Param("event")
	trace.SpanFromContext(c.Request.Context()).SetAttributes(
		attribute.String("moodle.event_type", eventPath))

	payload := map[string]any{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	receipt, err := h.router.ProcessEvent(c.Request.Context(), eventPath, payload)
	if err != nil {
		if errors.Is(err, services.ErrUnknownEventType) {
			RespondError(c, http.StatusNotFound, "unknown_event_type", err)
			return
		}
		h.log.Error("event processing failed", "event_type", eventPath, "error", err)
		RespondError(c, http.StatusInternalServerError, "event_processing_failed", err)
		return
	}
	RespondOK(c, receipt)
}
