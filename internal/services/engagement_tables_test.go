package services

import (
	"testing"

	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

func TestEveryScoredEventHasATier(t *testing.T) {
	for eventType := range eventPoints {
		if tierFor(eventType) == tierNone {
			t.Errorf("event %q has points but no tier", eventType)
		}
	}
	for eventType := range eventTiers {
		if pointsFor(eventType) <= 0 {
			t.Errorf("event %q has a tier but no points", eventType)
		}
	}
}

func TestTargetStageOrdering(t *testing.T) {
	cases := []struct {
		tier stageTier
		want string
	}{
		{tierStart, types.StageStarted},
		{tierProgress, types.StageInProgress},
		{tierCompletion, types.StageCompleted},
		{tierNone, ""},
	}
	for _, tc := range cases {
		if got := targetStage(tc.tier); got != tc.want {
			t.Errorf("targetStage(%d): want %q got %q", tc.tier, tc.want, got)
		}
	}
	if types.StageRank(types.StageStarted) >= types.StageRank(types.StageInProgress) {
		t.Fatalf("stage ordering broken: started !< in_progress")
	}
	if types.StageRank(types.StageInProgress) >= types.StageRank(types.StageCompleted) {
		t.Fatalf("stage ordering broken: in_progress !< completed")
	}
}

func TestActivityKindNormalizesAssign(t *testing.T) {
	if got := activityKind("assign_graded"); got != "assignment" {
		t.Fatalf("assign_graded kind: want assignment got %s", got)
	}
	if got := activityKind("assignment_submitted"); got != "assignment" {
		t.Fatalf("assignment_submitted kind: want assignment got %s", got)
	}
	if got := activityKind("quiz_attempt_started"); got != "quiz" {
		t.Fatalf("quiz_attempt_started kind: want quiz got %s", got)
	}
}

func TestMilestonePercentCoverage(t *testing.T) {
	pct, covered := milestonePercent("forum_discussion_created")
	if !covered || pct != 60 {
		t.Fatalf("forum_discussion_created: want (60, true) got (%d, %v)", pct, covered)
	}

	// Listed kind, unlisted event: covered with zero milestone, so the
	// score heuristic must not kick in.
	pct, covered = milestonePercent("quiz_submitted")
	if !covered || pct != 0 {
		t.Fatalf("quiz_submitted: want (0, true) got (%d, %v)", pct, covered)
	}

	// Unknown kind falls back to the heuristic.
	if _, covered := milestonePercent("scorm_launched"); covered {
		t.Fatalf("scorm_launched should not be milestone-covered")
	}
}

func TestMilestonesStayBelowCompletion(t *testing.T) {
	for kind, table := range milestonePercents {
		for eventType, pct := range table {
			if pct <= 0 || pct >= 100 {
				t.Errorf("milestone %s/%s = %d out of (0,100)", kind, eventType, pct)
			}
			if tierFor(eventType) == tierCompletion {
				t.Errorf("completion event %q must not carry a milestone", eventType)
			}
		}
	}
}
