package app

import (
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/realtime"
	"github.com/Jethrr/moodlequest-sub000/internal/realtime/bus"
	"github.com/Jethrr/moodlequest-sub000/internal/services"
)

type Services struct {
	Quests      services.QuestService
	Resolver    services.QuestResolver
	Engagement  services.EngagementService
	Experience  services.ExperienceService
	Badges      services.BadgeTrigger
	Notifier    services.QuestNotifier
	EventRouter services.EventRouterService
	Analytics   services.AnalyticsService

	// Keep bus here for the forwarder startup; nil without REDIS_ADDR.
	Bus bus.Bus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, hub *realtime.Hub) (Services, error) {
	log.Info("Wiring services...")

	var sseBus bus.Bus
	var emitter services.Emitter
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		// Multi-instance: publish through redis so every API instance
		// can fan out to its own connected clients.
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Services{}, err
		}
		sseBus = b
		emitter = &services.RedisEmitter{Bus: b}
	} else {
		emitter = &services.HubEmitter{Hub: hub}
	}

	experience := services.NewExperienceService(db, log, cfg.Gamification,
		repos.Experience, repos.StudentProgress, nil)
	engagement := services.NewEngagementService(db, log, cfg.Gamification,
		repos.QuestProgress, repos.EngagementEvent, experience)
	resolver := services.NewQuestResolver(log, repos.Quest)
	badges := services.NewBadgeService(db, log, repos.Badge, repos.QuestProgress, repos.Experience)
	notifier := services.NewQuestNotifier(log, cfg.Gamification, emitter)
	eventRouter := services.NewEventRouterService(db, log,
		repos.User, repos.Course, repos.StudentProgress,
		resolver, engagement, experience, badges, notifier)
	quests := services.NewQuestService(db, log, repos.Quest, repos.QuestProgress, repos.EngagementEvent)
	analytics := services.NewAnalyticsService(db, log, repos.Quest, repos.QuestProgress, repos.EngagementEvent)

	return Services{
		Quests:      quests,
		Resolver:    resolver,
		Engagement:  engagement,
		Experience:  experience,
		Badges:      badges,
		Notifier:    notifier,
		EventRouter: eventRouter,
		Analytics:   analytics,
		Bus:         sseBus,
	}, nil
}
