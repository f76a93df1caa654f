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

type QuestRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Quest) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Quest, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Quest, error)
	// GetActiveByCourseAndActivity returns the active quest bound to the
	// given external activity id at the given time, or nil when none
	// matches. When more than one row matches, the first by
	// (created_at, id) wins.
	GetActiveByCourseAndActivity(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, moodleActivityID int64, at time.Time) (*types.Quest, error)
}

type questRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestRepo(db *gorm.DB, baseLog *logger.Logger) QuestRepo {
	return &questRepo{db: db, log: baseLog.With("repo", "QuestRepo")}
}

func (r *questRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Quest) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *questRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Quest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Quest
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *questRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Quest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Quest
	if courseID == uuid.Nil {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *questRepo) GetActiveByCourseAndActivity(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, moodleActivityID int64, at time.Time) (*types.Quest, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Quest
	err := transaction.WithContext(ctx).
		Where("course_id = ? AND moodle_activity_id = ? AND is_active = ?", courseID, moodleActivityID, true).
		Where("starts_at IS NULL OR starts_at <= ?", at).
		Where("ends_at IS NULL OR ends_at >= ?", at).
		Order("created_at ASC, id ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
