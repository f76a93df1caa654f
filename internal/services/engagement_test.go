package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/repos/testutil"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

var moodleIDSeq int64 = 9000

func nextMoodleID() int64 {
	return atomic.AddInt64(&moodleIDSeq, 1)
}

type engagementFixture struct {
	db         *gorm.DB
	svc        *engagementService
	experience *experienceService
	xpRepo     repos.ExperienceRepo
	eventRepo  repos.EngagementEventRepo
	progRepo   repos.QuestProgressRepo
	user       *types.User
	course     *types.Course
	quest      *types.Quest
	clock      time.Time
}

func newEngagementFixture(t *testing.T) *engagementFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	f := &engagementFixture{
		db:    db,
		clock: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	f.xpRepo = repos.NewExperienceRepo(db, log)
	f.eventRepo = repos.NewEngagementEventRepo(db, log)
	f.progRepo = repos.NewQuestProgressRepo(db, log)
	aggRepo := repos.NewStudentProgressRepo(db, log)

	cfg := DefaultGamificationConfig()
	exp := NewExperienceService(db, log, cfg, f.xpRepo, aggRepo, nil).(*experienceService)
	exp.now = func() time.Time { return f.clock }
	f.experience = exp

	svc := NewEngagementService(db, log, cfg, f.progRepo, f.eventRepo, exp).(*engagementService)
	svc.now = func() time.Time { return f.clock }
	f.svc = svc

	f.user = testutil.SeedUser(t, ctx, db, nextMoodleID())
	f.course = testutil.SeedCourse(t, ctx, db, nextMoodleID())
	activityID := nextMoodleID()
	f.quest = testutil.SeedQuest(t, ctx, db, f.course.ID, &activityID)
	return f
}

func (f *engagementFixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *engagementFixture) process(t *testing.T, eventType string) *EngagementResult {
	t.Helper()
	result, err := f.svc.Process(context.Background(), f.user, f.quest, ClassifiedEvent{
		Type:    eventType,
		Payload: map[string]any{"test": true},
	})
	if err != nil {
		t.Fatalf("process %s: %v", eventType, err)
	}
	return result
}

func (f *engagementFixture) processGraded(t *testing.T, grade, maxGrade float64) *EngagementResult {
	t.Helper()
	result, err := f.svc.Process(context.Background(), f.user, f.quest, ClassifiedEvent{
		Type:     "assign_graded",
		Payload:  map[string]any{"grade": grade, "grade_max": maxGrade},
		Grade:    &grade,
		MaxGrade: &maxGrade,
	})
	if err != nil {
		t.Fatalf("process assign_graded: %v", err)
	}
	return result
}

func TestSubmissionCompletesQuestAndCreditsReward(t *testing.T) {
	f := newEngagementFixture(t)
	ctx := context.Background()

	result := f.process(t, "assignment_submitted")
	if !result.CompletedNow {
		t.Fatalf("expected terminal completion")
	}
	if result.Progress.Stage != types.StageCompleted {
		t.Fatalf("stage: want completed got %s", result.Progress.Stage)
	}
	if result.Progress.Status != types.ProgressStatusCompleted {
		t.Fatalf("status: want completed got %s", result.Progress.Status)
	}
	if result.Progress.ProgressPercent != 100 {
		t.Fatalf("percent: want 100 got %d", result.Progress.ProgressPercent)
	}
	if result.QuestXP != f.quest.ExperienceReward {
		t.Fatalf("quest xp: want %d got %d", f.quest.ExperienceReward, result.QuestXP)
	}

	rows, err := f.xpRepo.ListByUser(ctx, nil, f.user.ID, 0)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	questRows := 0
	for _, row := range rows {
		if row.SourceType == types.SourceQuest && row.SourceID == f.quest.ID.String() {
			questRows++
			if row.Amount != f.quest.ExperienceReward {
				t.Fatalf("ledger amount: want %d got %d", f.quest.ExperienceReward, row.Amount)
			}
		}
	}
	if questRows != 1 {
		t.Fatalf("quest ledger rows: want 1 got %d", questRows)
	}
}

func TestStartTierAwardsOnlyOnce(t *testing.T) {
	f := newEngagementFixture(t)
	ctx := context.Background()

	first := f.process(t, "activity_viewed")
	f.advance(time.Minute)
	second := f.process(t, "activity_viewed")

	if first.PointsAwarded != 3 {
		t.Fatalf("first view points: want 3 got %d", first.PointsAwarded)
	}
	if !second.Deduplicated || second.PointsAwarded != 0 {
		t.Fatalf("second view should dedup with zero points, got %+v", second)
	}

	events, err := f.eventRepo.ListByProgress(ctx, nil, first.Progress.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("log rows: want 2 got %d", len(events))
	}
	nonZero := 0
	for _, ev := range events {
		if ev.PointsAwarded > 0 {
			nonZero++
		}
	}
	if nonZero != 1 {
		t.Fatalf("nonzero-point log rows: want 1 got %d", nonZero)
	}
}

func TestSameTypeWindowDedup(t *testing.T) {
	f := newEngagementFixture(t)

	first := f.process(t, "forum_post_created")
	f.advance(2 * time.Second)
	second := f.process(t, "forum_post_created")
	f.advance(10 * time.Second)
	third := f.process(t, "forum_post_created")

	if first.PointsAwarded != 10 {
		t.Fatalf("first post points: want 10 got %d", first.PointsAwarded)
	}
	if !second.Deduplicated {
		t.Fatalf("second post inside window should dedup")
	}
	if third.Deduplicated || third.PointsAwarded != 10 {
		t.Fatalf("third post outside window should award, got %+v", third)
	}
	if third.Progress.EngagementScore != 20 {
		t.Fatalf("score: want 20 got %d", third.Progress.EngagementScore)
	}
}

func TestCompletionIsTerminal(t *testing.T) {
	f := newEngagementFixture(t)

	f.process(t, "quiz_submitted")
	f.advance(time.Minute)
	later := f.process(t, "activity_viewed")

	if later.Progress.Stage != types.StageCompleted {
		t.Fatalf("stage regressed to %s", later.Progress.Stage)
	}
	if later.Progress.ProgressPercent != 100 {
		t.Fatalf("percent after completion: want 100 got %d", later.Progress.ProgressPercent)
	}
	if later.CompletedNow {
		t.Fatalf("completion must not re-fire")
	}
}

func TestStageNeverRegresses(t *testing.T) {
	f := newEngagementFixture(t)

	f.process(t, "forum_post_created")
	f.advance(time.Minute)
	result := f.process(t, "quiz_attempt_started")

	if result.Progress.Stage != types.StageInProgress {
		t.Fatalf("start event regressed stage to %s", result.Progress.Stage)
	}
}

func TestMilestonePercentApplied(t *testing.T) {
	f := newEngagementFixture(t)

	result := f.process(t, "forum_post_created")
	if result.Progress.ProgressPercent != 50 {
		t.Fatalf("forum post milestone: want 50 got %d", result.Progress.ProgressPercent)
	}
	f.advance(time.Minute)
	result = f.process(t, "chat_message_sent")
	if result.Progress.ProgressPercent != 50 {
		t.Fatalf("lower milestone must not reduce percent, got %d", result.Progress.ProgressPercent)
	}
}

func TestFailingGradeMovesToNeedsRevision(t *testing.T) {
	f := newEngagementFixture(t)
	ctx := context.Background()

	f.process(t, "assignment_submitted")
	f.advance(time.Minute)
	result := f.processGraded(t, 65, 100)

	if !result.NeedsRevision {
		t.Fatalf("expected needs_revision outcome")
	}
	if result.Progress.Status != types.ProgressStatusNeedsRevision {
		t.Fatalf("status: want needs_revision got %s", result.Progress.Status)
	}
	if result.Progress.Stage != types.StageCompleted {
		t.Fatalf("grade failure must not regress stage, got %s", result.Progress.Stage)
	}
	if result.BonusXP != 0 {
		t.Fatalf("no bonus below threshold, got %d", result.BonusXP)
	}

	rows, err := f.xpRepo.ListByUser(ctx, nil, f.user.ID, 0)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	for _, row := range rows {
		if row.SourceType == types.SourceGradeBonus {
			t.Fatalf("unexpected bonus ledger row: %+v", row)
		}
	}
}

func TestFailingFirstGradeStillPaysCompletionReward(t *testing.T) {
	f := newEngagementFixture(t)
	ctx := context.Background()

	// A graded event can be the first lifecycle event we see for the
	// quest. Completion is stage-driven, so the base reward pays even
	// though the same transaction flags the work for revision.
	result := f.processGraded(t, 40, 100)

	if !result.CompletedNow {
		t.Fatalf("first graded event should complete the stage")
	}
	if result.QuestXP != f.quest.ExperienceReward {
		t.Fatalf("quest xp: want %d got %d", f.quest.ExperienceReward, result.QuestXP)
	}
	if !result.NeedsRevision || result.Progress.Status != types.ProgressStatusNeedsRevision {
		t.Fatalf("failing grade must flag revision, got %+v", result.Progress)
	}
	if result.BonusXP != 0 {
		t.Fatalf("no bonus on a failing grade, got %d", result.BonusXP)
	}

	rows, err := f.xpRepo.ListByUser(ctx, nil, f.user.ID, 0)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	questRows := 0
	for _, row := range rows {
		if row.SourceType == types.SourceQuest && row.SourceID == f.quest.ID.String() {
			questRows++
		}
	}
	if questRows != 1 {
		t.Fatalf("quest ledger rows: want 1 got %d", questRows)
	}
}

func TestExcellentGradeEarnsBonus(t *testing.T) {
	f := newEngagementFixture(t)
	ctx := context.Background()

	f.process(t, "assignment_submitted")
	f.advance(time.Minute)
	result := f.processGraded(t, 95, 100)

	wantBonus := 20 // 20% of the seeded 100-point reward
	if result.BonusXP != wantBonus {
		t.Fatalf("bonus: want %d got %d", wantBonus, result.BonusXP)
	}
	if result.Progress.ValidatedAt == nil {
		t.Fatalf("validated_at not set on passing grade")
	}

	rows, err := f.xpRepo.ListByUser(ctx, nil, f.user.ID, 0)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	bonusRows := 0
	for _, row := range rows {
		if row.SourceType == types.SourceGradeBonus {
			bonusRows++
			if row.Amount != wantBonus {
				t.Fatalf("bonus amount: want %d got %d", wantBonus, row.Amount)
			}
		}
	}
	if bonusRows != 1 {
		t.Fatalf("bonus rows: want 1 got %d", bonusRows)
	}
}

func TestUnknownEventStillLogged(t *testing.T) {
	f := newEngagementFixture(t)
	ctx := context.Background()

	result := f.process(t, "scorm_launched")
	if result.PointsAwarded != 0 || result.Deduplicated {
		t.Fatalf("untabled event: want zero points and no dedup, got %+v", result)
	}
	if result.Progress.Stage != types.StageNotStarted {
		t.Fatalf("untabled event moved stage to %s", result.Progress.Stage)
	}

	events, err := f.eventRepo.ListByProgress(ctx, nil, result.Progress.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("log rows: want 1 got %d", len(events))
	}
}
