package realtime

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationXPReward        NotificationType = "xp_reward"
	NotificationQuestCompletion NotificationType = "quest_completion"
	NotificationBadgeAwarded    NotificationType = "badge_awarded"
	NotificationHeartbeat       NotificationType = "heartbeat"
	NotificationConnected       NotificationType = "connected"
	NotificationError           NotificationType = "error"
)

// Notification is one SSE payload addressed to a single user. UserID is
// the routing key and is not serialized to the stream body.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	Type      NotificationType `json:"type"`
	UserID    uuid.UUID        `json:"-"`
	Title     string           `json:"title,omitempty"`
	Message   string           `json:"message,omitempty"`
	Data      map[string]any   `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func NewNotification(userID uuid.UUID, kind NotificationType, title, message string, data map[string]any) Notification {
	return Notification{
		ID:        uuid.New(),
		Type:      kind,
		UserID:    userID,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}
