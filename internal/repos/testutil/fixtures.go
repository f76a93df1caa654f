package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, moodleUserID int64) *types.User {
	tb.Helper()
	u := &types.User{
		ID:           uuid.New(),
		MoodleUserID: moodleUserID,
		Username:     "student",
		Role:         "student",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, moodleCourseID int64) *types.Course {
	tb.Helper()
	c := &types.Course{
		ID:             uuid.New(),
		MoodleCourseID: moodleCourseID,
		Title:          "course",
		IsActive:       true,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedQuest(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, moodleActivityID *int64) *types.Quest {
	tb.Helper()
	q := &types.Quest{
		ID:               uuid.New(),
		CourseID:         courseID,
		MoodleActivityID: moodleActivityID,
		Title:            "quest",
		ExperienceReward: 100,
		ValidationMode:   types.QuestValidationAuto,
		IsActive:         true,
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quest: %v", err)
	}
	return q
}

func SeedBadge(tb testing.TB, ctx context.Context, tx *gorm.DB, name, criteriaType string, criteriaValue int) *types.Badge {
	tb.Helper()
	b := &types.Badge{
		ID:            uuid.New(),
		Name:          name,
		CriteriaType:  criteriaType,
		CriteriaValue: criteriaValue,
		IsActive:      true,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed badge: %v", err)
	}
	return b
}

func PtrInt64(v int64) *int64 { return &v }

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
