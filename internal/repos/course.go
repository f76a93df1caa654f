package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error)
	GetByMoodleID(ctx context.Context, tx *gorm.DB, moodleCourseID int64) (*types.Course, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Course) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *courseRepo) GetByMoodleID(ctx context.Context, tx *gorm.DB, moodleCourseID int64) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Course
	if err := transaction.WithContext(ctx).
		Where("moodle_course_id = ?", moodleCourseID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
