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

type EngagementEventRepo interface {
	Append(ctx context.Context, tx *gorm.DB, row *types.QuestEngagementEvent) error
	// LastOfType returns the most recent event of the given type on a
	// progress row, or nil when none exists. Deduplicated (zero point)
	// occurrences count; the log itself is the dedup-lookback source.
	LastOfType(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, eventType string) (*types.QuestEngagementEvent, error)
	HasOfType(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, eventType string) (bool, error)
	ListByProgress(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) ([]*types.QuestEngagementEvent, error)
	ListByProgressIDsSince(ctx context.Context, tx *gorm.DB, progressIDs []uuid.UUID, since time.Time) ([]*types.QuestEngagementEvent, error)
}

type engagementEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngagementEventRepo(db *gorm.DB, baseLog *logger.Logger) EngagementEventRepo {
	return &engagementEventRepo{db: db, log: baseLog.With("repo", "EngagementEventRepo")}
}

func (r *engagementEventRepo) Append(ctx context.Context, tx *gorm.DB, row *types.QuestEngagementEvent) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *engagementEventRepo) LastOfType(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, eventType string) (*types.QuestEngagementEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.QuestEngagementEvent
	err := transaction.WithContext(ctx).
		Where("quest_progress_id = ? AND event_type = ?", progressID, eventType).
		Order("created_at DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *engagementEventRepo) HasOfType(ctx context.Context, tx *gorm.DB, progressID uuid.UUID, eventType string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.QuestEngagementEvent{}).
		Where("quest_progress_id = ? AND event_type = ?", progressID, eventType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *engagementEventRepo) ListByProgress(ctx context.Context, tx *gorm.DB, progressID uuid.UUID) ([]*types.QuestEngagementEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.QuestEngagementEvent
	if err := transaction.WithContext(ctx).
		Where("quest_progress_id = ?", progressID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *engagementEventRepo) ListByProgressIDsSince(ctx context.Context, tx *gorm.DB, progressIDs []uuid.UUID, since time.Time) ([]*types.QuestEngagementEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.QuestEngagementEvent
	if len(progressIDs) == 0 {
		return rows, nil
	}
	q := transaction.WithContext(ctx).
		Where("quest_progress_id IN ?", progressIDs)
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
