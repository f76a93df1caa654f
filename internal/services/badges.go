package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/repos"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

// BadgeTrigger re-evaluates a user's badge criteria and returns the
// badges newly awarded by this call. Invoked after quest completions;
// callers catch and log failures rather than failing the commit that
// already happened.
type BadgeTrigger interface {
	EvaluateAndAward(ctx context.Context, userID uuid.UUID) ([]*types.UserBadge, error)
}

type badgeService struct {
	db             *gorm.DB
	log            *logger.Logger
	badgeRepo      repos.BadgeRepo
	progressRepo   repos.QuestProgressRepo
	experienceRepo repos.ExperienceRepo
}

func NewBadgeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	badgeRepo repos.BadgeRepo,
	progressRepo repos.QuestProgressRepo,
	experienceRepo repos.ExperienceRepo,
) BadgeTrigger {
	return &badgeService{
		db:             db,
		log:            baseLog.With("service", "BadgeService"),
		badgeRepo:      badgeRepo,
		progressRepo:   progressRepo,
		experienceRepo: experienceRepo,
	}
}

func (s *badgeService) EvaluateAndAward(ctx context.Context, userID uuid.UUID) ([]*types.UserBadge, error) {
	var awarded []*types.UserBadge
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		badges, err := s.badgeRepo.ListActive(ctx, tx)
		if err != nil {
			return err
		}
		if len(badges) == 0 {
			return nil
		}

		completed, err := s.progressRepo.CountCompletedByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		totalXP, err := s.experienceRepo.TotalForUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		for _, badge := range badges {
			if !s.meetsCriteria(badge, completed, totalXP) {
				continue
			}
			row, fresh, err := s.badgeRepo.Award(ctx, tx, userID, badge.ID)
			if err != nil {
				return err
			}
			if fresh {
				row.Badge = badge
				awarded = append(awarded, row)
				s.log.Info("badge awarded", "user_id", userID, "badge", badge.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return awarded, nil
}

func (s *badgeService) meetsCriteria(badge *types.Badge, completedQuests, totalXP int) bool {
	switch badge.CriteriaType {
	case types.BadgeCriteriaQuestsCompleted:
		return completedQuests >= badge.CriteriaValue
	case types.BadgeCriteriaTotalExperience:
		return totalXP >= badge.CriteriaValue
	default:
		s.log.Warn("unknown badge criteria type", "badge", badge.Name, "criteria_type", badge.CriteriaType)
		return false
	}
}
