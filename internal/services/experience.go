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

// PeriodicQuestForwarder receives a copy of every successful grant for
// an unrelated periodic-quest counter. Implementations live elsewhere;
// failures never roll back the primary grant.
type PeriodicQuestForwarder interface {
	AddEarnedXP(ctx context.Context, userID uuid.UUID, amount int) error
}

type noopPeriodicQuestForwarder struct{}

func (noopPeriodicQuestForwarder) AddEarnedXP(ctx context.Context, userID uuid.UUID, amount int) error {
	return nil
}

func NewNoopPeriodicQuestForwarder() PeriodicQuestForwarder { return noopPeriodicQuestForwarder{} }

// XPGrant describes one candidate ledger append.
type XPGrant struct {
	UserID     uuid.UUID
	CourseID   *uuid.UUID
	Amount     int
	SourceType string
	SourceID   string
	Note       string
}

// CreditOutcome reports whether the grant was written or recognized as
// a duplicate.
type CreditOutcome struct {
	Granted bool
	Entry   *types.ExperiencePoints
}

type ExperienceService interface {
	// Credit applies the duplicate-prevention policy for the grant's
	// source type and, when granted, appends the ledger row and bumps
	// the (user, course) aggregate. A duplicate is a normal outcome,
	// not an error.
	Credit(ctx context.Context, tx *gorm.DB, grant XPGrant) (*CreditOutcome, error)
	TotalForUser(ctx context.Context, userID uuid.UUID) (int, error)
	RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ExperiencePoints, error)
}

type experienceService struct {
	db              *gorm.DB
	log             *logger.Logger
	cfg             GamificationConfig
	experienceRepo  repos.ExperienceRepo
	aggregateRepo   repos.StudentProgressRepo
	periodicForward PeriodicQuestForwarder
	now             func() time.Time
}

func NewExperienceService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg GamificationConfig,
	experienceRepo repos.ExperienceRepo,
	aggregateRepo repos.StudentProgressRepo,
	periodicForward PeriodicQuestForwarder,
) ExperienceService {
	if periodicForward == nil {
		periodicForward = NewNoopPeriodicQuestForwarder()
	}
	return &experienceService{
		db:              db,
		log:             baseLog.With("service", "ExperienceService"),
		cfg:             cfg,
		experienceRepo:  experienceRepo,
		aggregateRepo:   aggregateRepo,
		periodicForward: periodicForward,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// isViewSource marks sources on the rolling re-award window instead of
// the hard one-time block.
func isViewSource(sourceType string) bool {
	return sourceType == types.SourceLessonView
}

// alwaysGranted marks sources whose duplication is prevented upstream
// (terminal quest status) or intentionally absent (grade bonus).
func alwaysGranted(sourceType string) bool {
	return sourceType == types.SourceQuest || sourceType == types.SourceGradeBonus
}

func (s *experienceService) Credit(ctx context.Context, tx *gorm.DB, grant XPGrant) (*CreditOutcome, error) {
	if grant.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing user id")
	}
	if grant.SourceType == "" || grant.SourceID == "" {
		return nil, fmt.Errorf("missing source key")
	}

	if tx != nil {
		return s.creditTx(ctx, tx, grant)
	}
	var out *CreditOutcome
	err := s.db.WithContext(ctx).Transaction(func(innerTx *gorm.DB) error {
		var txErr error
		out, txErr = s.creditTx(ctx, innerTx, grant)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *experienceService) creditTx(ctx context.Context, tx *gorm.DB, grant XPGrant) (*CreditOutcome, error) {
	now := s.now()

	switch {
	case alwaysGranted(grant.SourceType):
		// fall through to the append
	case isViewSource(grant.SourceType):
		cutoff := now.Add(-s.cfg.ViewRewardWindow)
		last, err := s.experienceRepo.LastGrantSince(ctx, tx, grant.UserID, grant.SourceType, grant.SourceID, cutoff)
		if err != nil {
			return nil, fmt.Errorf("view window lookup: %w", err)
		}
		if last != nil {
			s.log.Debug("duplicate view grant inside window", "user_id", grant.UserID, "source_id", grant.SourceID)
			return &CreditOutcome{Granted: false}, nil
		}
	default:
		exists, err := s.experienceRepo.ExistsBySource(ctx, tx, grant.UserID, grant.CourseID, grant.SourceType, grant.SourceID)
		if err != nil {
			return nil, fmt.Errorf("source lookup: %w", err)
		}
		if exists {
			s.log.Debug("duplicate grant", "user_id", grant.UserID, "source_type", grant.SourceType, "source_id", grant.SourceID)
			return &CreditOutcome{Granted: false}, nil
		}
	}

	entry := &types.ExperiencePoints{
		UserID:     grant.UserID,
		CourseID:   grant.CourseID,
		Amount:     grant.Amount,
		SourceType: grant.SourceType,
		SourceID:   grant.SourceID,
		Note:       grant.Note,
		AwardedAt:  now,
	}
	if err := s.experienceRepo.Append(ctx, tx, entry); err != nil {
		if repos.IsUniqueViolation(err) {
			// Lost a concurrent race on the same source key.
			return &CreditOutcome{Granted: false}, nil
		}
		return nil, fmt.Errorf("append ledger: %w", err)
	}

	if grant.CourseID != nil {
		delta := repos.ProgressDelta{
			Experience: grant.Amount,
			ActivityAt: now,
		}
		if grant.SourceType == types.SourceQuest {
			delta.QuestsCompleted = 1
		}
		if _, err := s.aggregateRepo.ApplyDelta(ctx, tx, grant.UserID, *grant.CourseID, delta); err != nil {
			return nil, fmt.Errorf("update aggregate: %w", err)
		}
	}

	if err := s.periodicForward.AddEarnedXP(ctx, grant.UserID, grant.Amount); err != nil {
		s.log.Warn("periodic quest forwarding failed", "user_id", grant.UserID, "error", err)
	}

	return &CreditOutcome{Granted: true, Entry: entry}, nil
}

func (s *experienceService) TotalForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.experienceRepo.TotalForUser(ctx, nil, userID)
}

func (s *experienceService) RecentForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ExperiencePoints, error) {
	return s.experienceRepo.ListByUser(ctx, nil, userID, limit)
}
