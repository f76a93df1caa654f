package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Jethrr/moodlequest-sub000/internal/handlers"
	"github.com/Jethrr/moodlequest-sub000/internal/middleware"
	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	AuthMiddleware   *middleware.AuthMiddleware
	WebhookAuth      *middleware.WebhookAuthMiddleware
	WebhookHandler   *handlers.WebhookHandler
	RealtimeHandler  *handlers.RealtimeHandler
	QuestHandler     *handlers.QuestHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	AllowOrigins     []string
	StaffRole        string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Log != nil {
		router.Use(middleware.RequestLog(cfg.Log))
	}
	router.Use(otelgin.Middleware("moodlequest"))

	// Cors
	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{
			"http://localhost:80",
			"http://localhost:3000",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Webhook-Token"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// Webhooks carry the shared secret instead of a user token.
	webhooks := router.Group("/api/webhooks")
	webhooks.Use(cfg.WebhookAuth.RequireSharedSecret())
	webhooks.POST("/moodle/:event", cfg.WebhookHandler.HandleMoodleEvent)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// SSE
	protected.GET("/sse/stream", cfg.RealtimeHandler.Stream)
	// Quests
	protected.GET("/api/courses/:courseID/quests", cfg.QuestHandler.ListByCourse)
	protected.GET("/api/users/me/progress", cfg.QuestHandler.MyProgress)
	protected.GET("/api/users/me/progress/:questID", cfg.QuestHandler.MyQuestProgress)
	protected.GET("/api/users/me/experience", cfg.QuestHandler.MyExperience)

	staffRole := cfg.StaffRole
	if staffRole == "" {
		staffRole = "teacher"
	}
	staff := protected.Group("/")
	staff.Use(cfg.AuthMiddleware.RequireRole(staffRole))
	staff.POST("/api/quests", cfg.QuestHandler.Create)
	staff.GET("/api/progress/:progressID/events", cfg.QuestHandler.ProgressEvents)
	staff.GET("/api/analytics/engagement/:courseID", cfg.AnalyticsHandler.CourseEngagement)

	return router
}
