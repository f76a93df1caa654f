package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/realtime"
	"github.com/Jethrr/moodlequest-sub000/internal/requestdata"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		log: log.With("Handler", "RealtimeHandler"),
		hub: hub,
	}
}

// Stream holds the connection open and relays the caller's notifications
// as server-sent events until the client disconnects.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	sub := h.hub.Subscribe(rd.UserID)
	defer h.hub.Unsubscribe(sub)

	h.hub.ServeHTTP(c.Writer, c.Request, sub)
}
