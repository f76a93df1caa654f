package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

// ErrUnknownEventType marks an unrecognized webhook event path. The
// handler maps it to a not-found response; every other recognized but
// unprocessable condition acknowledges as a no-op.
var ErrUnknownEventType = errors.New("unknown event type")

// eventSpec describes one recognized event path: the payload key
// fallback chains for the id triad, plus the generic-credit defaults
// used when no quest is bound to the activity.
type eventSpec struct {
	courseKeys   []string
	activityKeys []string
	userKeys     []string
	genericXP    int
	sourceType   string
}

var defaultCourseKeys = []string{"course_id", "courseid"}
var defaultUserKeys = []string{"user_id", "userid", "relateduserid"}

var eventCatalog = map[string]eventSpec{
	"quiz_attempt_started": {
		activityKeys: []string{"quiz_id", "activity_id", "cmid"},
		genericXP:    5, sourceType: types.SourceActivity,
	},
	"quiz_submitted": {
		activityKeys: []string{"quiz_id", "activity_id", "cmid"},
		genericXP:    50, sourceType: types.SourceActivity,
	},
	"assignment_submitted": {
		activityKeys: []string{"assignment_id", "activity_id", "cmid"},
		genericXP:    50, sourceType: types.SourceActivity,
	},
	"assign_graded": {
		activityKeys: []string{"assignment_id", "activity_id", "cmid"},
		genericXP:    25, sourceType: types.SourceActivity,
	},
	"lesson_viewed": {
		activityKeys: []string{"lesson_id", "activity_id", "cmid"},
		genericXP:    3, sourceType: types.SourceLessonView,
	},
	"lesson_completed": {
		activityKeys: []string{"lesson_id", "activity_id", "cmid"},
		genericXP:    50, sourceType: types.SourceActivity,
	},
	"activity_viewed": {
		activityKeys: []string{"activity_id", "cmid"},
		genericXP:    3, sourceType: types.SourceLessonView,
	},
	"activity_completed": {
		activityKeys: []string{"activity_id", "cmid"},
		genericXP:    25, sourceType: types.SourceActivity,
	},
	"forum_post_created": {
		activityKeys: []string{"forum_id", "activity_id", "cmid"},
		genericXP:    10, sourceType: types.SourceForumPost,
	},
	"forum_discussion_created": {
		activityKeys: []string{"forum_id", "activity_id", "cmid"},
		genericXP:    15, sourceType: types.SourceForumPost,
	},
	"glossary_entry_created": {
		activityKeys: []string{"glossary_id", "activity_id", "cmid"},
		genericXP:    20, sourceType: types.SourceActivity,
	},
	"wiki_page_updated": {
		activityKeys: []string{"wiki_id", "activity_id", "cmid"},
		genericXP:    25, sourceType: types.SourceActivity,
	},
	"chat_message_sent": {
		activityKeys: []string{"chat_id", "activity_id", "cmid"},
		genericXP:    5, sourceType: types.SourceActivity,
	},
	"choice_answer_submitted": {
		activityKeys: []string{"choice_id", "activity_id", "cmid"},
		genericXP:    10, sourceType: types.SourceActivity,
	},
	"feedback_submitted": {
		activityKeys: []string{"feedback_id", "activity_id", "cmid"},
		genericXP:    50, sourceType: types.SourceActivity,
	},
}

var gradeKeys = []string{"grade", "finalgrade"}
var maxGradeKeys = []string{"grade_max", "grademax", "max_grade"}

// EventReceipt is the structured acknowledgment returned to the webhook
// source. Processed is false for the benign no-op conditions (missing
// fields, unsynchronized entities, duplicates).
type EventReceipt struct {
	Status    string    `json:"status"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	Processed bool      `json:"processed"`
	Timestamp time.Time `json:"timestamp"`
}

type EventRouterService interface {
	ProcessEvent(ctx context.Context, eventPath string, payload map[string]any) (*EventReceipt, error)
}

type eventRouterService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	courseRepo    repos.CourseRepo
	aggregateRepo repos.StudentProgressRepo
	resolver      QuestResolver
	engagement    EngagementService
	experience    ExperienceService
	badges        BadgeTrigger
	notifier      QuestNotifier
	now           func() time.Time
}

func NewEventRouterService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	aggregateRepo repos.StudentProgressRepo,
	resolver QuestResolver,
	engagement EngagementService,
	experience ExperienceService,
	badges BadgeTrigger,
	notifier QuestNotifier,
) EventRouterService {
	return &eventRouterService{
		db:            db,
		log:           baseLog.With("service", "EventRouterService"),
		userRepo:      userRepo,
		courseRepo:    courseRepo,
		aggregateRepo: aggregateRepo,
		resolver:      resolver,
		engagement:    engagement,
		experience:    experience,
		badges:        badges,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *eventRouterService) ProcessEvent(ctx context.Context, eventPath string, payload map[string]any) (*EventReceipt, error) {
	spec, ok := eventCatalog[eventPath]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventPath)
	}
	now := s.now()

	courseID, ok := payloadInt64(payload, firstNonEmpty(spec.courseKeys, defaultCourseKeys))
	if !ok {
		s.log.Warn("event missing course id", "event_type", eventPath)
		return s.noop(eventPath, "missing course identifier", now), nil
	}
	activityID, ok := payloadInt64(payload, spec.activityKeys)
	if !ok {
		s.log.Warn("event missing activity id", "event_type", eventPath)
		return s.noop(eventPath, "missing activity identifier", now), nil
	}
	moodleUserID, ok := payloadInt64(payload, firstNonEmpty(spec.userKeys, defaultUserKeys))
	if !ok {
		s.log.Warn("event missing user id", "event_type", eventPath)
		return s.noop(eventPath, "missing user identifier", now), nil
	}

	course, err := s.courseRepo.GetByMoodleID(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("event for unsynchronized course", "event_type", eventPath, "course_id", courseID)
			return s.noop(eventPath, "course not synchronized", now), nil
		}
		return nil, fmt.Errorf("lookup course: %w", err)
	}
	user, err := s.userRepo.GetByMoodleID(ctx, nil, moodleUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("event for unsynchronized user", "event_type", eventPath, "moodle_user", moodleUserID)
			return s.noop(eventPath, "user not synchronized", now), nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	quest, err := s.resolver.Resolve(ctx, nil, course.ID, activityID, now)
	if err != nil {
		return nil, fmt.Errorf("resolve quest: %w", err)
	}
	if quest == nil {
		return s.creditGeneric(ctx, eventPath, spec, user, course, activityID, now)
	}

	event := ClassifiedEvent{
		Type:     eventPath,
		Payload:  payload,
		Grade:    payloadFloat(payload, gradeKeys),
		MaxGrade: payloadFloat(payload, maxGradeKeys),
	}
	result, err := s.engagement.Process(ctx, user, quest, event)
	if err != nil {
		return nil, fmt.Errorf("process engagement: %w", err)
	}

	if result.CompletedNow {
		s.afterCompletion(ctx, user, quest, result)
	}

	msg := fmt.Sprintf("event applied to quest %q", quest.Title)
	if result.Deduplicated {
		msg = "duplicate event recorded without points"
	}
	return &EventReceipt{
		Status:    "ok",
		EventType: eventPath,
		Message:   msg,
		Processed: true,
		Timestamp: now,
	}, nil
}

// afterCompletion runs the post-commit collaborators. Their failures
// are logged; the engagement commit already succeeded.
func (s *eventRouterService) afterCompletion(ctx context.Context, user *types.User, quest *types.Quest, result *EngagementResult) {
	badges, err := s.badges.EvaluateAndAward(ctx, user.ID)
	if err != nil {
		s.log.Error("badge evaluation failed", "user_id", user.ID, "error", err)
	}
	if len(badges) > 0 {
		if _, err := s.aggregateRepo.ApplyDelta(ctx, nil, user.ID, quest.CourseID, repos.ProgressDelta{
			BadgesEarned: len(badges),
		}); err != nil {
			s.log.Error("badge aggregate update failed", "user_id", user.ID, "error", err)
		}
	}

	s.notifier.NotifyQuestCompletion(user.ID, quest, result.QuestXP)
	if result.QuestXP > 0 {
		s.notifier.NotifyXPReward(user.ID, result.QuestXP, "Quest completed: "+quest.Title, map[string]any{
			"quest_id": quest.ID.String(),
		})
	}
	if result.BonusXP > 0 {
		s.notifier.NotifyXPReward(user.ID, result.BonusXP, "Excellence bonus: "+quest.Title, map[string]any{
			"quest_id": quest.ID.String(),
		})
	}
	for _, ub := range badges {
		if ub.Badge != nil {
			s.notifier.NotifyBadgeAwarded(user.ID, ub.Badge)
		}
	}
}

// creditGeneric is the no-quest path: a table-defined amount under the
// event's source-type label, deduplicated by the ledger.
func (s *eventRouterService) creditGeneric(ctx context.Context, eventPath string, spec eventSpec, user *types.User, course *types.Course, activityID int64, now time.Time) (*EventReceipt, error) {
	outcome, err := s.experience.Credit(ctx, nil, XPGrant{
		UserID:     user.ID,
		CourseID:   &course.ID,
		Amount:     spec.genericXP,
		SourceType: spec.sourceType,
		SourceID:   fmt.Sprintf("%s:%d", eventPath, activityID),
		Note:       "Engagement credit for " + eventPath,
	})
	if err != nil {
		return nil, fmt.Errorf("credit generic: %w", err)
	}

	msg := "engagement credit granted"
	if !outcome.Granted {
		msg = "duplicate engagement credit skipped"
	} else if spec.genericXP > 0 {
		s.notifier.NotifyXPReward(user.ID, spec.genericXP, "Engagement credit", map[string]any{
			"event_type": eventPath,
		})
	}
	return &EventReceipt{
		Status:    "ok",
		EventType: eventPath,
		Message:   msg,
		Processed: outcome.Granted,
		Timestamp: now,
	}, nil
}

func (s *eventRouterService) noop(eventType, message string, now time.Time) *EventReceipt {
	return &EventReceipt{
		Status:    "ok",
		EventType: eventType,
		Message:   message,
		Processed: false,
		Timestamp: now,
	}
}

func firstNonEmpty(keys, fallback []string) []string {
	if len(keys) > 0 {
		return keys
	}
	return fallback
}

func payloadInt64(payload map[string]any, keys []string) (int64, bool) {
	for _, key := range keys {
		raw, ok := payload[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return int64(v), true
		case int:
			return int64(v), true
		case int64:
			return v, true
		case string:
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}

func payloadFloat(payload map[string]any, keys []string) *float64 {
	for _, key := range keys {
		raw, ok := payload[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return &parsed
			}
		}
	}
	return nil
}
