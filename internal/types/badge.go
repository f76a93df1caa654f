package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BadgeCriteriaQuestsCompleted = "quests_completed"
	BadgeCriteriaTotalExperience = "total_experience"
)

// Badge is a criteria-gated award definition consumed by the badge
// trigger after quest completions. Criteria evaluation richer than the
// threshold kinds above lives outside this service.
type Badge struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description   string         `gorm:"column:description" json:"description,omitempty"`
	ImageURL      string         `gorm:"column:image_url" json:"image_url,omitempty"`
	CriteriaType  string         `gorm:"column:criteria_type;not null" json:"criteria_type"`
	CriteriaValue int            `gorm:"column:criteria_value;not null;default:0" json:"criteria_value"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Badge) TableName() string { return "badge" }

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// UserBadge records one badge award to one user. The (user, badge)
// uniqueness constraint makes re-evaluation idempotent.
type UserBadge struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	BadgeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge     *Badge    `gorm:"constraint:OnDelete:CASCADE;foreignKey:BadgeID;references:ID" json:"badge,omitempty"`
	AwardedAt time.Time `gorm:"column:awarded_at;not null" json:"awarded_at"`
}

func (UserBadge) TableName() string { return "user_badge" }

func (ub *UserBadge) BeforeCreate(tx *gorm.DB) error {
	if ub.ID == uuid.Nil {
		ub.ID = uuid.New()
	}
	if ub.AwardedAt.IsZero() {
		ub.AwardedAt = time.Now().UTC()
	}
	return nil
}
