package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
)

// GamificationConfig collects the tunable constants of the engagement
// pipeline. The defaults mirror the documented values; an optional YAML
// file pointed to by GAMIFICATION_CONFIG overrides individual fields.
type GamificationConfig struct {
	// DedupWindow is the same-type repeat window for non-start events.
	DedupWindow time.Duration
	// ViewRewardWindow is the rolling re-award window for view sources.
	ViewRewardWindow time.Duration
	// MinGradePercent is the passing threshold for graded completions.
	MinGradePercent float64
	// ExcellenceGradePercent gates the completion bonus.
	ExcellenceGradePercent float64
	// BonusRewardFraction of the quest reward granted on excellence.
	BonusRewardFraction float64
	// PublishAttempts and PublishBackoff drive notification retries.
	PublishAttempts int
	PublishBackoff  time.Duration
}

func DefaultGamificationConfig() GamificationConfig {
	return GamificationConfig{
		DedupWindow:            5 * time.Second,
		ViewRewardWindow:       time.Hour,
		MinGradePercent:        70,
		ExcellenceGradePercent: 90,
		BonusRewardFraction:    0.20,
		PublishAttempts:        3,
		PublishBackoff:         500 * time.Millisecond,
	}
}

type gamificationConfigFile struct {
	DedupWindow            string   `yaml:"dedup_window"`
	ViewRewardWindow       string   `yaml:"view_reward_window"`
	MinGradePercent        *float64 `yaml:"min_grade_percent"`
	ExcellenceGradePercent *float64 `yaml:"excellence_grade_percent"`
	BonusRewardFraction    *float64 `yaml:"bonus_reward_fraction"`
	PublishAttempts        *int     `yaml:"publish_attempts"`
	PublishBackoff         string   `yaml:"publish_backoff"`
}

// LoadGamificationConfig returns the defaults, overlaid with the YAML
// file named by GAMIFICATION_CONFIG when that variable is set. A file
// that cannot be read or parsed is an error; a partial file is fine.
func LoadGamificationConfig(log *logger.Logger) (GamificationConfig, error) {
	cfg := DefaultGamificationConfig()

	path := strings.TrimSpace(os.Getenv("GAMIFICATION_CONFIG"))
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read gamification config: %w", err)
	}
	var file gamificationConfigFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("parse gamification config: %w", err)
	}

	if file.DedupWindow != "" {
		d, err := time.ParseDuration(file.DedupWindow)
		if err != nil {
			return cfg, fmt.Errorf("dedup_window: %w", err)
		}
		cfg.DedupWindow = d
	}
	if file.ViewRewardWindow != "" {
		d, err := time.ParseDuration(file.ViewRewardWindow)
		if err != nil {
			return cfg, fmt.Errorf("view_reward_window: %w", err)
		}
		cfg.ViewRewardWindow = d
	}
	if file.PublishBackoff != "" {
		d, err := time.ParseDuration(file.PublishBackoff)
		if err != nil {
			return cfg, fmt.Errorf("publish_backoff: %w", err)
		}
		cfg.PublishBackoff = d
	}
	if file.MinGradePercent != nil {
		cfg.MinGradePercent = *file.MinGradePercent
	}
	if file.ExcellenceGradePercent != nil {
		cfg.ExcellenceGradePercent = *file.ExcellenceGradePercent
	}
	if file.BonusRewardFraction != nil {
		cfg.BonusRewardFraction = *file.BonusRewardFraction
	}
	if file.PublishAttempts != nil && *file.PublishAttempts > 0 {
		cfg.PublishAttempts = *file.PublishAttempts
	}

	log.Info("gamification config overridden", "path", path)
	return cfg, nil
}
