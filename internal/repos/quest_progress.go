package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

type QuestProgressRepo interface {
	// GetOrCreateForUpdate returns the unique (user, quest) progress row,
	// creating it lazily on first use. On postgres the returned row is
	// locked for the duration of tx, which serializes concurrent events
	// for the same (user, quest) pair.
	GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, userID, questID uuid.UUID) (*types.QuestProgress, error)
	GetByUserAndQuest(ctx context.Context, tx *gorm.DB, userID, questID uuid.UUID) (*types.QuestProgress, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.QuestProgress, error)
	ListByQuestIDs(ctx context.Context, tx *gorm.DB, questIDs []uuid.UUID) ([]*types.QuestProgress, error)
	CountCompletedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.QuestProgress) error
}

type questProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestProgressRepo(db *gorm.DB, baseLog *logger.Logger) QuestProgressRepo {
	return &questProgressRepo{db: db, log: baseLog.With("repo", "QuestProgressRepo")}
}

func (r *questProgressRepo) GetOrCreateForUpdate(ctx context.Context, tx *gorm.DB, userID, questID uuid.UUID) (*types.QuestProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.QuestProgress
	err := lockForUpdate(transaction.WithContext(ctx)).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	row = types.QuestProgress{
		UserID:  userID,
		QuestID: questID,
		Status:  types.ProgressStatusNotStarted,
		Stage:   types.StageNotStarted,
	}
	if err := transaction.WithContext(ctx).Create(&row).Error; err != nil {
		if !IsUniqueViolation(err) {
			return nil, err
		}
		// Lost the insert race; fetch the winner's row under lock.
		var existing types.QuestProgress
		if err := lockForUpdate(transaction.WithContext(ctx)).
			Where("user_id = ? AND quest_id = ?", userID, questID).
			First(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	return &row, nil
}

func (r *questProgressRepo) GetByUserAndQuest(ctx context.Context, tx *gorm.DB, userID, questID uuid.UUID) (*types.QuestProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.QuestProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND quest_id = ?", userID, questID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *questProgressRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.QuestProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.QuestProgress
	if userID == uuid.Nil {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *questProgressRepo) ListByQuestIDs(ctx context.Context, tx *gorm.DB, questIDs []uuid.UUID) ([]*types.QuestProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.QuestProgress
	if len(questIDs) == 0 {
		return rows, nil
	}
	if err := transaction.WithContext(ctx).
		Where("quest_id IN ?", questIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *questProgressRepo) CountCompletedByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.QuestProgress{}).
		Where("user_id = ? AND status = ?", userID, types.ProgressStatusCompleted).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *questProgressRepo) Save(ctx context.Context, tx *gorm.DB, row *types.QuestProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Save(row).Error
}
