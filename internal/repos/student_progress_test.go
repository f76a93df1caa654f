package repos

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Jethrr/moodlequest-sub000/internal/repos/testutil"
)

var repoMoodleIDSeq atomic.Int64

func init() { repoMoodleIDSeq.Store(70000) }

func repoNextMoodleID() int64 { return repoMoodleIDSeq.Add(1) }

func TestApplyDeltaCreatesAndIncrements(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, db, repoNextMoodleID())
	course := testutil.SeedCourse(t, ctx, db, repoNextMoodleID())
	repo := NewStudentProgressRepo(db, log)

	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	row, err := repo.ApplyDelta(ctx, nil, user.ID, course.ID, ProgressDelta{
		Experience: 50, QuestsCompleted: 1, ActivityAt: at,
	})
	if err != nil {
		t.Fatalf("first delta: %v", err)
	}
	if row.TotalExperience != 50 || row.QuestsCompleted != 1 {
		t.Fatalf("first delta row: %+v", row)
	}

	row, err = repo.ApplyDelta(ctx, nil, user.ID, course.ID, ProgressDelta{
		Experience: 10, BadgesEarned: 1, ActivityAt: at.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("second delta: %v", err)
	}
	if row.TotalExperience != 60 || row.QuestsCompleted != 1 || row.BadgesEarned != 1 {
		t.Fatalf("second delta row: %+v", row)
	}
	if row.LastActivityAt == nil || !row.LastActivityAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("last activity: %v", row.LastActivityAt)
	}
}

func TestApplyDeltaStreakDays(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	user := testutil.SeedUser(t, ctx, db, repoNextMoodleID())
	course := testutil.SeedCourse(t, ctx, db, repoNextMoodleID())
	repo := NewStudentProgressRepo(db, log)

	day1 := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	apply := func(at time.Time) int {
		t.Helper()
		row, err := repo.ApplyDelta(ctx, nil, user.ID, course.ID, ProgressDelta{Experience: 1, ActivityAt: at})
		if err != nil {
			t.Fatalf("apply delta: %v", err)
		}
		return row.StreakDays
	}

	if got := apply(day1); got != 1 {
		t.Fatalf("first activity: want streak 1 got %d", got)
	}
	// Same day keeps the streak.
	if got := apply(day1.Add(5 * time.Hour)); got != 1 {
		t.Fatalf("same day: want streak 1 got %d", got)
	}
	// Consecutive day extends it.
	if got := apply(day1.Add(24 * time.Hour)); got != 2 {
		t.Fatalf("next day: want streak 2 got %d", got)
	}
	if got := apply(day1.Add(48 * time.Hour)); got != 3 {
		t.Fatalf("third day: want streak 3 got %d", got)
	}
	// A gap resets to one.
	if got := apply(day1.Add(5 * 24 * time.Hour)); got != 1 {
		t.Fatalf("after gap: want streak 1 got %d", got)
	}
}
