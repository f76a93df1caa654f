package app

import (
	"strings"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/services"
	"github.com/Jethrr/moodlequest-sub000/internal/utils"
)

type Config struct {
	Port         string
	JWTSecretKey string
	WebhookToken string
	StaffRole    string
	AllowOrigins []string
	Environment  string
	Version      string

	Gamification services.GamificationConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	gamification, err := services.LoadGamificationConfig(log)
	if err != nil {
		return Config{}, err
	}

	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log), ",")
	allowOrigins := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowOrigins = append(allowOrigins, o)
		}
	}

	return Config{
		Port:         utils.GetEnv("PORT", "8080", log),
		JWTSecretKey: utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		WebhookToken: utils.GetEnv("WEBHOOK_TOKEN", "", log),
		StaffRole:    utils.GetEnv("STAFF_ROLE", "teacher", log),
		AllowOrigins: allowOrigins,
		Environment:  utils.GetEnv("APP_ENV", "development", log),
		Version:      utils.GetEnv("APP_VERSION", "dev", log),
		Gamification: gamification,
	}, nil
}
