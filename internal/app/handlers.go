package app

import (
	"github.com/Jethrr/moodlequest-sub000/internal/handlers"
	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/realtime"
)

type Handlers struct {
	Webhook   *handlers.WebhookHandler
	Realtime  *handlers.RealtimeHandler
	Quest     *handlers.QuestHandler
	Analytics *handlers.AnalyticsHandler
}

func wireHandlers(log *logger.Logger, services Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Webhook:   handlers.NewWebhookHandler(log, services.EventRouter),
		Realtime:  handlers.NewRealtimeHandler(log, hub),
		Quest:     handlers.NewQuestHandler(log, services.Quests, services.Experience),
		Analytics: handlers.NewAnalyticsHandler(log, services.Analytics),
	}
}
