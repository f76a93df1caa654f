package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QuestValidationAuto   = "auto"
	QuestValidationManual = "manual"
)

// Quest is a rewardable unit of coursework, optionally bound to one
// external LMS activity (course module). The active window is inclusive
// on both ends; an absent bound is unbounded on that side.
type Quest struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Course           *Course        `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	MoodleActivityID *int64         `gorm:"column:moodle_activity_id;index" json:"moodle_activity_id,omitempty"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Description      string         `gorm:"column:description" json:"description,omitempty"`
	ExperienceReward int            `gorm:"column:experience_reward;not null;default:0" json:"experience_reward"`
	ValidationMode   string         `gorm:"column:validation_mode;not null;default:'auto'" json:"validation_mode"`
	StartsAt         *time.Time     `gorm:"column:starts_at" json:"starts_at,omitempty"`
	EndsAt           *time.Time     `gorm:"column:ends_at" json:"ends_at,omitempty"`
	IsActive         bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Quest) TableName() string { return "quest" }

func (q *Quest) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// ActiveAt reports whether the quest accepts engagement at the given time.
func (q *Quest) ActiveAt(at time.Time) bool {
	if q == nil || !q.IsActive {
		return false
	}
	if q.StartsAt != nil && at.Before(*q.StartsAt) {
		return false
	}
	if q.EndsAt != nil && at.After(*q.EndsAt) {
		return false
	}
	return true
}
