package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

// ClassifiedEvent is one inbound LMS event after routing: the semantic
// type plus its raw payload and any reported grade.
type ClassifiedEvent struct {
	Type     string
	Payload  map[string]any
	Grade    *float64
	MaxGrade *float64
}

// EngagementResult summarizes one processed event. CompletedNow is true
// only on the transition into the completed stage, which is what gates
// the quest reward, badge evaluation and completion notification.
type EngagementResult struct {
	Progress      *types.QuestProgress
	PointsAwarded int
	Deduplicated  bool
	CompletedNow  bool
	QuestXP       int
	BonusXP       int
	NeedsRevision bool
	GradePercent  *float64
}

type EngagementService interface {
	// Process applies one classified event to the (user, quest) progress
	// record: timestamps, dedup, points, monotonic stage transition,
	// progress percent, grade validation, the append-only event log, and
	// the completion ledger credit, all in a single transaction with the
	// progress row locked.
	Process(ctx context.Context, user *types.User, quest *types.Quest, event ClassifiedEvent) (*EngagementResult, error)
}

type engagementService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          GamificationConfig
	progressRepo repos.QuestProgressRepo
	eventRepo    repos.EngagementEventRepo
	experience   ExperienceService
	now          func() time.Time
}

func NewEngagementService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg GamificationConfig,
	progressRepo repos.QuestProgressRepo,
	eventRepo repos.EngagementEventRepo,
	experience ExperienceService,
) EngagementService {
	return &engagementService{
		db:           db,
		log:          baseLog.With("service", "EngagementService"),
		cfg:          cfg,
		progressRepo: progressRepo,
		eventRepo:    eventRepo,
		experience:   experience,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *engagementService) Process(ctx context.Context, user *types.User, quest *types.Quest, event ClassifiedEvent) (*EngagementResult, error) {
	if user == nil || quest == nil {
		return nil, fmt.Errorf("missing user or quest")
	}

	var result *EngagementResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.processTx(ctx, tx, user, quest, event)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *engagementService) processTx(ctx context.Context, tx *gorm.DB, user *types.User, quest *types.Quest, event ClassifiedEvent) (*EngagementResult, error) {
	now := s.now()

	progress, err := s.progressRepo.GetOrCreateForUpdate(ctx, tx, user.ID, quest.ID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	if progress.FirstInteractionAt == nil {
		progress.FirstInteractionAt = &now
	}
	progress.LastInteractionAt = &now

	tier := tierFor(event.Type)
	points := pointsFor(event.Type)

	dedup, err := s.isDuplicate(ctx, tx, progress, event.Type, tier, now)
	if err != nil {
		return nil, err
	}

	awarded := 0
	if tier != tierNone && !dedup {
		awarded = points
		progress.EngagementScore += points
		progress.InteractionCount++
	}

	completedNow := s.applyStage(progress, tier, now)
	s.applyPercent(progress, event.Type)

	result := &EngagementResult{
		Progress:      progress,
		PointsAwarded: awarded,
		Deduplicated:  dedup,
		CompletedNow:  completedNow,
	}

	if isGradedEvent(event.Type) {
		if err := s.applyGrade(progress, quest, event, now, result); err != nil {
			return nil, err
		}
	}

	if completedNow {
		outcome, err := s.experience.Credit(ctx, tx, XPGrant{
			UserID:     user.ID,
			CourseID:   &quest.CourseID,
			Amount:     quest.ExperienceReward,
			SourceType: types.SourceQuest,
			SourceID:   quest.ID.String(),
			Note:       fmt.Sprintf("Completed quest %q", quest.Title),
		})
		if err != nil {
			return nil, fmt.Errorf("credit completion: %w", err)
		}
		if outcome.Granted {
			result.QuestXP = quest.ExperienceReward
		}
	}
	if result.BonusXP > 0 {
		if _, err := s.experience.Credit(ctx, tx, XPGrant{
			UserID:     user.ID,
			CourseID:   &quest.CourseID,
			Amount:     result.BonusXP,
			SourceType: types.SourceGradeBonus,
			SourceID:   fmt.Sprintf("%s:%s", quest.ID, event.Type),
			Note:       fmt.Sprintf("Excellence bonus for quest %q", quest.Title),
		}); err != nil {
			return nil, fmt.Errorf("credit bonus: %w", err)
		}
	}

	logRow := &types.QuestEngagementEvent{
		QuestProgressID: progress.ID,
		EventType:       event.Type,
		Payload:         marshalPayload(event.Payload),
		PointsAwarded:   awarded,
		CreatedAt:       now,
	}
	if err := s.eventRepo.Append(ctx, tx, logRow); err != nil {
		return nil, fmt.Errorf("append event log: %w", err)
	}
	if err := s.progressRepo.Save(ctx, tx, progress); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}

	return result, nil
}

// isDuplicate applies the two-part policy: start-tier events credit at
// most once per progress record; any other tiered event is a duplicate
// when the same type was logged inside the dedup window.
func (s *engagementService) isDuplicate(ctx context.Context, tx *gorm.DB, progress *types.QuestProgress, eventType string, tier stageTier, now time.Time) (bool, error) {
	switch tier {
	case tierNone:
		return false, nil
	case tierStart:
		seen, err := s.eventRepo.HasOfType(ctx, tx, progress.ID, eventType)
		if err != nil {
			return false, fmt.Errorf("start dedup lookup: %w", err)
		}
		return seen, nil
	default:
		last, err := s.eventRepo.LastOfType(ctx, tx, progress.ID, eventType)
		if err != nil {
			return false, fmt.Errorf("window dedup lookup: %w", err)
		}
		if last == nil {
			return false, nil
		}
		return now.Sub(last.CreatedAt) < s.cfg.DedupWindow, nil
	}
}

// applyStage advances the monotonic stage machine and reports whether
// this event produced the terminal transition into completed.
func (s *engagementService) applyStage(progress *types.QuestProgress, tier stageTier, now time.Time) bool {
	target := targetStage(tier)
	if target == "" {
		return false
	}
	if types.StageRank(target) <= types.StageRank(progress.Stage) {
		return false
	}
	progress.Stage = target

	switch target {
	case types.StageStarted:
		if progress.StartedAt == nil {
			progress.StartedAt = &now
		}
		if progress.Status == types.ProgressStatusNotStarted {
			progress.Status = types.ProgressStatusStarted
		}
	case types.StageInProgress:
		if progress.StartedAt == nil {
			progress.StartedAt = &now
		}
		if progress.Status == types.ProgressStatusNotStarted {
			progress.Status = types.ProgressStatusStarted
		}
	case types.StageCompleted:
		progress.Status = types.ProgressStatusCompleted
		progress.CompletedAt = &now
		if progress.StartedAt == nil {
			progress.StartedAt = &now
		}
		return true
	}
	return false
}

// applyPercent derives progress percent: 100 when completed, otherwise
// the milestone table for the event's activity kind, with the score
// heuristic only for uncovered kinds. Stored percent never decreases.
func (s *engagementService) applyPercent(progress *types.QuestProgress, eventType string) {
	if progress.Stage == types.StageCompleted {
		progress.ProgressPercent = 100
		return
	}
	milestone, kindCovered := milestonePercent(eventType)
	candidate := milestone
	if !kindCovered {
		candidate = progress.EngagementScore
		if candidate > 100 {
			candidate = 100
		}
	}
	if candidate > progress.ProgressPercent {
		progress.ProgressPercent = candidate
	}
}

// applyGrade validates a graded completion against the thresholds. A
// failing grade moves status to needs_revision without regressing the
// stage; an excellent grade earns the bonus fraction of the reward.
func (s *engagementService) applyGrade(progress *types.QuestProgress, quest *types.Quest, event ClassifiedEvent, now time.Time, result *EngagementResult) error {
	if event.Grade == nil || event.MaxGrade == nil || *event.MaxGrade <= 0 {
		s.log.Debug("graded event without usable grade fields", "event_type", event.Type, "quest_id", quest.ID)
		return nil
	}
	pct := *event.Grade / *event.MaxGrade * 100
	result.GradePercent = &pct

	if pct >= s.cfg.MinGradePercent {
		progress.ValidatedAt = &now
		if pct >= s.cfg.ExcellenceGradePercent {
			result.BonusXP = int(math.Round(s.cfg.BonusRewardFraction * float64(quest.ExperienceReward)))
		}
		return nil
	}

	progress.Status = types.ProgressStatusNeedsRevision
	progress.ValidationNotes = fmt.Sprintf("grade %.1f%% below required %.0f%%", pct, s.cfg.MinGradePercent)
	result.NeedsRevision = true
	return nil
}

func marshalPayload(payload map[string]any) datatypes.JSON {
	if payload == nil {
		return datatypes.JSON([]byte(`{}`))
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(raw)
}
