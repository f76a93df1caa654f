package services

import (
	"strings"

	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

type stageTier int

const (
	tierNone stageTier = iota
	tierStart
	tierProgress
	tierCompletion
)

// eventPoints is the fixed engagement point table. Events absent from
// the table do not move the stage machine and award zero points, but
// are still logged.
var eventPoints = map[string]int{
	// start tier
	"activity_viewed":      3,
	"lesson_viewed":        3,
	"quiz_attempt_started": 5,

	// progress tier
	"forum_post_created":       10,
	"forum_discussion_created": 15,
	"glossary_entry_created":   20,
	"wiki_page_updated":        25,
	"chat_message_sent":        5,
	"choice_answer_submitted":  10,

	// completion tier
	"quiz_submitted":       50,
	"assignment_submitted": 50,
	"lesson_completed":     50,
	"feedback_submitted":   50,
	"assign_graded":        25,
	"activity_completed":   25,
}

var eventTiers = map[string]stageTier{
	"activity_viewed":      tierStart,
	"lesson_viewed":        tierStart,
	"quiz_attempt_started": tierStart,

	"forum_post_created":       tierProgress,
	"forum_discussion_created": tierProgress,
	"glossary_entry_created":   tierProgress,
	"wiki_page_updated":        tierProgress,
	"chat_message_sent":        tierProgress,
	"choice_answer_submitted":  tierProgress,

	"quiz_submitted":       tierCompletion,
	"assignment_submitted": tierCompletion,
	"lesson_completed":     tierCompletion,
	"feedback_submitted":   tierCompletion,
	"assign_graded":        tierCompletion,
	"activity_completed":   tierCompletion,
}

// milestonePercents maps (activity kind, event type) to a guaranteed
// minimum progress percentage. Completion events are not listed since a
// completed stage forces 100. Kinds absent here fall back to the score
// heuristic.
var milestonePercents = map[string]map[string]int{
	"quiz": {
		"quiz_attempt_started": 40,
	},
	"lesson": {
		"lesson_viewed": 30,
	},
	"forum": {
		"forum_post_created":       50,
		"forum_discussion_created": 60,
	},
	"wiki": {
		"wiki_page_updated": 55,
	},
	"chat": {
		"chat_message_sent": 35,
	},
	"choice": {
		"choice_answer_submitted": 70,
	},
	"glossary": {
		"glossary_entry_created": 55,
	},
	"activity": {
		"activity_viewed": 25,
	},
}

func pointsFor(eventType string) int {
	return eventPoints[eventType]
}

func tierFor(eventType string) stageTier {
	return eventTiers[eventType]
}

func targetStage(tier stageTier) string {
	switch tier {
	case tierStart:
		return types.StageStarted
	case tierProgress:
		return types.StageInProgress
	case tierCompletion:
		return types.StageCompleted
	default:
		return ""
	}
}

// activityKind infers the activity family from the event-type name
// prefix. "assign" and "assignment" are the same family.
func activityKind(eventType string) string {
	idx := strings.Index(eventType, "_")
	if idx <= 0 {
		return eventType
	}
	kind := eventType[:idx]
	if kind == "assign" {
		kind = "assignment"
	}
	return kind
}

// milestonePercent returns the milestone for the event and whether the
// event's activity kind has a milestone table at all. The second result
// distinguishes "kind covered, event not listed" from "kind uncovered".
func milestonePercent(eventType string) (percent int, kindCovered bool) {
	table, ok := milestonePercents[activityKind(eventType)]
	if !ok {
		return 0, false
	}
	return table[eventType], true
}

// isGradedEvent marks completion events carrying a grade report that is
// subject to threshold validation.
func isGradedEvent(eventType string) bool {
	return eventType == "assign_graded"
}
