package services

import (
	"context"
	"testing"
	"time"

	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/repos/testutil"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

func TestResolveRespectsActiveWindow(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	course := testutil.SeedCourse(t, ctx, db, nextMoodleID())
	activityID := nextMoodleID()

	starts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ends := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	quest := &types.Quest{
		CourseID:         course.ID,
		MoodleActivityID: &activityID,
		Title:            "windowed",
		ExperienceReward: 10,
		ValidationMode:   types.QuestValidationAuto,
		StartsAt:         &starts,
		EndsAt:           &ends,
		IsActive:         true,
	}
	if err := db.WithContext(ctx).Create(quest).Error; err != nil {
		t.Fatalf("seed quest: %v", err)
	}

	resolver := NewQuestResolver(log, repos.NewQuestRepo(db, log))

	inside, err := resolver.Resolve(ctx, nil, course.ID, activityID, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	if err != nil || inside == nil || inside.ID != quest.ID {
		t.Fatalf("inside window: quest=%v err=%v", inside, err)
	}

	before, err := resolver.Resolve(ctx, nil, course.ID, activityID, time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC))
	if err != nil || before != nil {
		t.Fatalf("before window: want nil, got %v err=%v", before, err)
	}

	after, err := resolver.Resolve(ctx, nil, course.ID, activityID, time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC))
	if err != nil || after != nil {
		t.Fatalf("after window: want nil, got %v err=%v", after, err)
	}

	// Inclusive bounds.
	atStart, err := resolver.Resolve(ctx, nil, course.ID, activityID, starts)
	if err != nil || atStart == nil {
		t.Fatalf("window start should be inclusive: %v err=%v", atStart, err)
	}
}

func TestResolveSkipsInactiveQuest(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	course := testutil.SeedCourse(t, ctx, db, nextMoodleID())
	activityID := nextMoodleID()
	quest := testutil.SeedQuest(t, ctx, db, course.ID, &activityID)
	if err := db.WithContext(ctx).Model(quest).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	resolver := NewQuestResolver(log, repos.NewQuestRepo(db, log))
	got, err := resolver.Resolve(ctx, nil, course.ID, activityID, time.Now().UTC())
	if err != nil || got != nil {
		t.Fatalf("inactive quest must not resolve: %v err=%v", got, err)
	}
}

func TestResolvePicksStableFirstOnOverlap(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	course := testutil.SeedCourse(t, ctx, db, nextMoodleID())
	activityID := nextMoodleID()

	older := &types.Quest{
		CourseID:         course.ID,
		MoodleActivityID: &activityID,
		Title:            "older",
		IsActive:         true,
		CreatedAt:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := &types.Quest{
		CourseID:         course.ID,
		MoodleActivityID: &activityID,
		Title:            "newer",
		IsActive:         true,
		CreatedAt:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, q := range []*types.Quest{newer, older} {
		if err := db.WithContext(ctx).Create(q).Error; err != nil {
			t.Fatalf("seed quest: %v", err)
		}
	}

	resolver := NewQuestResolver(log, repos.NewQuestRepo(db, log))
	got, err := resolver.Resolve(ctx, nil, course.ID, activityID, time.Now().UTC())
	if err != nil || got == nil {
		t.Fatalf("resolve: %v err=%v", got, err)
	}
	if got.ID != older.ID {
		t.Fatalf("overlap resolution: want oldest created, got %q", got.Title)
	}
}
