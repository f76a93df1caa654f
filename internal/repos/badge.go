package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Jethrr/moodlequest-sub000/internal/platform/logger"
	"github.com/Jethrr/moodlequest-sub000/internal/types"
)

type BadgeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Badge) error
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Badge, error)
	// Award inserts a user_badge row. The second return is false when the
	// user already holds the badge.
	Award(ctx context.Context, tx *gorm.DB, userID, badgeID uuid.UUID) (*types.UserBadge, bool, error)
	ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserBadge, error)
	CountForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error)
}

type badgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBadgeRepo(db *gorm.DB, baseLog *logger.Logger) BadgeRepo {
	return &badgeRepo{db: db, log: baseLog.With("repo", "BadgeRepo")}
}

func (r *badgeRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Badge) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *badgeRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Badge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.Badge
	if err := transaction.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *badgeRepo) Award(ctx context.Context, tx *gorm.DB, userID, badgeID uuid.UUID) (*types.UserBadge, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.UserBadge{UserID: userID, BadgeID: badgeID}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row, true, nil
}

func (r *badgeRepo) ListForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserBadge, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.UserBadge
	err := transaction.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&rows).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return rows, nil
}

func (r *badgeRepo) CountForUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserBadge{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
