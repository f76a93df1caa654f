package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

// QuestResolver maps an (internal course, external activity) pair to
// the quest accepting engagement at a point in time, or nil when the
// activity carries no quest.
type QuestResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, moodleActivityID int64, at time.Time) (*types.Quest, error)
}

type questResolver struct {
	log       *logger.Logger
	questRepo repos.QuestRepo
}

func NewQuestResolver(baseLog *logger.Logger, questRepo repos.QuestRepo) QuestResolver {
	return &questResolver{
		log:       baseLog.With("service", "QuestResolver"),
		questRepo: questRepo,
	}
}

func (s *questResolver) Resolve(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, moodleActivityID int64, at time.Time) (*types.Quest, error) {
	quest, err := s.questRepo.GetActiveByCourseAndActivity(ctx, tx, courseID, moodleActivityID, at)
	if err != nil {
		return nil, err
	}
	if quest == nil {
		s.log.Debug("no quest bound to activity", "course_id", courseID, "activity_id", moodleActivityID)
		return nil, nil
	}
	return quest, nil
}
