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

// ProgressDelta carries the per-grant increments applied to a
// StudentProgress roll-up row.
type ProgressDelta struct {
	Experience      int
	QuestsCompleted int
	BadgesEarned    int
	ActivityAt      time.Time
}

type StudentProgressRepo interface {
	// ApplyDelta increments the (user, course) roll-up, creating the row
	// when it does not exist yet. Concurrent first writes are resolved
	// through the unique index.
	ApplyDelta(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, delta ProgressDelta) (*types.StudentProgress, error)
	Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.StudentProgress, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.StudentProgress, error)
}

type studentProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStudentProgressRepo(db *gorm.DB, baseLog *logger.Logger) StudentProgressRepo {
	return &studentProgressRepo{db: db, log: baseLog.With("repo", "StudentProgressRepo")}
}

func (r *studentProgressRepo) ApplyDelta(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID, delta ProgressDelta) (*types.StudentProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row, err := r.fetchForUpdate(ctx, transaction, userID, courseID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &types.StudentProgress{UserID: userID, CourseID: courseID}
		if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
			if !IsUniqueViolation(err) {
				return nil, err
			}
			row, err = r.fetchForUpdate(ctx, transaction, userID, courseID)
			if err != nil {
				return nil, err
			}
			if row == nil {
				return nil, gorm.ErrRecordNotFound
			}
		}
	}

	row.TotalExperience += delta.Experience
	row.QuestsCompleted += delta.QuestsCompleted
	row.BadgesEarned += delta.BadgesEarned
	if !delta.ActivityAt.IsZero() {
		at := delta.ActivityAt
		row.StreakDays = nextStreak(row.StreakDays, row.LastActivityAt, at)
		if row.LastActivityAt == nil || at.After(*row.LastActivityAt) {
			row.LastActivityAt = &at
		}
	}
	if err := transaction.WithContext(ctx).Save(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// nextStreak extends the consecutive-day counter: same UTC day keeps
// it, the following day increments it, any gap resets to one.
func nextStreak(current int, last *time.Time, at time.Time) int {
	if last == nil {
		return 1
	}
	lastDay := last.UTC().Truncate(24 * time.Hour)
	day := at.UTC().Truncate(24 * time.Hour)
	switch {
	case day.Equal(lastDay):
		return current
	case day.Equal(lastDay.Add(24 * time.Hour)):
		return current + 1
	case day.Before(lastDay):
		return current
	default:
		return 1
	}
}

func (r *studentProgressRepo) fetchForUpdate(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.StudentProgress, error) {
	var row types.StudentProgress
	err := lockForUpdate(tx.WithContext(ctx)).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *studentProgressRepo) Get(ctx context.Context, tx *gorm.DB, userID, courseID uuid.UUID) (*types.StudentProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.StudentProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *studentProgressRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.StudentProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.StudentProgress
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("total_experience DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
