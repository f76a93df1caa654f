package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jethrr/moodlequest-sub000/internal/repos/testutil"
)

func TestLoadGamificationConfigDefaults(t *testing.T) {
	t.Setenv("GAMIFICATION_CONFIG", "")

	cfg, err := LoadGamificationConfig(testutil.Logger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != DefaultGamificationConfig() {
		t.Fatalf("want defaults, got %+v", cfg)
	}
}

func TestLoadGamificationConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamification.yaml")
	content := "dedup_window: 10s\nmin_grade_percent: 60\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("GAMIFICATION_CONFIG", path)

	cfg, err := LoadGamificationConfig(testutil.Logger(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DedupWindow != 10*time.Second {
		t.Fatalf("dedup window: want 10s got %v", cfg.DedupWindow)
	}
	if cfg.MinGradePercent != 60 {
		t.Fatalf("min grade: want 60 got %v", cfg.MinGradePercent)
	}
	// Untouched fields keep their defaults.
	if cfg.ViewRewardWindow != time.Hour {
		t.Fatalf("view window: want 1h got %v", cfg.ViewRewardWindow)
	}
	if cfg.PublishAttempts != 3 {
		t.Fatalf("publish attempts: want 3 got %d", cfg.PublishAttempts)
	}
}

func TestLoadGamificationConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamification.yaml")
	if err := os.WriteFile(path, []byte("dedup_window: soon\n"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("GAMIFICATION_CONFIG", path)

	if _, err := LoadGamificationConfig(testutil.Logger(t)); err == nil {
		t.Fatalf("bad duration must error")
	}
}
