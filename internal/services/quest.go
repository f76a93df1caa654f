package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

// CreateQuestInput is the staff-facing creation surface.
type CreateQuestInput struct {
	CourseID         uuid.UUID
	MoodleActivityID *int64
	Title            string
	Description      string
	ExperienceReward int
	ValidationMode   string
	StartsAt         *time.Time
	EndsAt           *time.Time
}

type QuestService interface {
	Create(ctx context.Context, input CreateQuestInput) (*types.Quest, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*types.Quest, error)
	ProgressForUser(ctx context.Context, userID uuid.UUID) ([]*types.QuestProgress, error)
	ProgressForUserQuest(ctx context.Context, userID, questID uuid.UUID) (*types.QuestProgress, error)
	EventsForProgress(ctx context.Context, progressID uuid.UUID) ([]*types.QuestEngagementEvent, error)
}

type questService struct {
	db           *gorm.DB
	log          *logger.Logger
	questRepo    repos.QuestRepo
	progressRepo repos.QuestProgressRepo
	eventRepo    repos.EngagementEventRepo
}

func NewQuestService(
	db *gorm.DB,
	baseLog *logger.Logger,
	questRepo repos.QuestRepo,
	progressRepo repos.QuestProgressRepo,
	eventRepo repos.EngagementEventRepo,
) QuestService {
	return &questService{
		db:           db,
		log:          baseLog.With("service", "QuestService"),
		questRepo:    questRepo,
		progressRepo: progressRepo,
		eventRepo:    eventRepo,
	}
}

func (s *questService) Create(ctx context.Context, input CreateQuestInput) (*types.Quest, error) {
	if input.CourseID == uuid.Nil {
		return nil, fmt.Errorf("missing course id")
	}
	if input.Title == "" {
		return nil, fmt.Errorf("missing title")
	}
	if input.ExperienceReward < 0 {
		return nil, fmt.Errorf("negative experience reward")
	}
	mode := input.ValidationMode
	if mode == "" {
		mode = types.QuestValidationAuto
	}
	if mode != types.QuestValidationAuto && mode != types.QuestValidationManual {
		return nil, fmt.Errorf("invalid validation mode %q", mode)
	}
	if input.StartsAt != nil && input.EndsAt != nil && input.EndsAt.Before(*input.StartsAt) {
		return nil, fmt.Errorf("active window ends before it starts")
	}

	quest := &types.Quest{
		CourseID:         input.CourseID,
		MoodleActivityID: input.MoodleActivityID,
		Title:            input.Title,
		Description:      input.Description,
		ExperienceReward: input.ExperienceReward,
		ValidationMode:   mode,
		StartsAt:         input.StartsAt,
		EndsAt:           input.EndsAt,
		IsActive:         true,
	}
	if err := s.questRepo.Create(ctx, nil, quest); err != nil {
		return nil, fmt.Errorf("create quest: %w", err)
	}
	s.log.Info("quest created", "quest_id", quest.ID, "course_id", quest.CourseID)
	return quest, nil
}

func (s *questService) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*types.Quest, error) {
	return s.questRepo.ListByCourse(ctx, nil, courseID)
}

func (s *questService) ProgressForUser(ctx context.Context, userID uuid.UUID) ([]*types.QuestProgress, error) {
	return s.progressRepo.ListByUser(ctx, nil, userID)
}

func (s *questService) ProgressForUserQuest(ctx context.Context, userID, questID uuid.UUID) (*types.QuestProgress, error) {
	return s.progressRepo.GetByUserAndQuest(ctx, nil, userID, questID)
}

func (s *questService) EventsForProgress(ctx context.Context, progressID uuid.UUID) ([]*types.QuestEngagementEvent, error) {
	return s.eventRepo.ListByProgress(ctx, nil, progressID)
}
