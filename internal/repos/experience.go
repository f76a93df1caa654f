package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

type ExperienceRepo interface {
	Append(ctx context.Context, tx *gorm.DB, row *types.ExperiencePoints) error
	// ExistsBySource reports whether the ledger already holds a grant for
	// the (user, course, source_type, source_id) key.
	ExistsBySource(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID *uuid.UUID, sourceType, sourceID string) (bool, error)
	// LastGrantSince returns the newest grant for the exact source key
	// awarded at or after the cutoff, or nil when none exists. This backs
	// the rolling re-award window for view sources.
	LastGrantSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sourceType, sourceID string, cutoff time.Time) (*types.ExperiencePoints, error)
	TotalForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ExperiencePoints, error)
}

type experienceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExperienceRepo(db *gorm.DB, baseLog *logger.Logger) ExperienceRepo {
	return &experienceRepo{db: db, log: baseLog.With("repo", "ExperienceRepo")}
}

func (r *experienceRepo) Append(ctx context.Context, tx *gorm.DB, row *types.ExperiencePoints) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *experienceRepo) ExistsBySource(ctx context.Context, tx *gorm.DB, userID uuid.UUID, courseID *uuid.UUID, sourceType, sourceID string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Model(&types.ExperiencePoints{}).
		Where("user_id = ? AND source_type = ? AND source_id = ?", userID, sourceType, sourceID)
	if courseID != nil {
		q = q.Where("course_id = ?", *courseID)
	} else {
		q = q.Where("course_id IS NULL")
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *experienceRepo) LastGrantSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, sourceType, sourceID string, cutoff time.Time) (*types.ExperiencePoints, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ExperiencePoints
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND source_type = ? AND source_id = ? AND awarded_at >= ?", userID, sourceType, sourceID, cutoff).
		Order("awarded_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *experienceRepo) TotalForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total *int
	err := transaction.WithContext(ctx).
		Model(&types.ExperiencePoints{}).
		Select("SUM(amount)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *experienceRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.ExperiencePoints, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.ExperiencePoints
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
