package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudentProgress is the per (user, course) roll-up maintained
// incrementally by the experience ledger. It is a materialized cache:
// the ledger stays authoritative and the aggregate can be rebuilt by
// summation.
type StudentProgress struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"user_id"`
	User            *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"course_id"`
	Course          *Course    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CourseID;references:ID" json:"course,omitempty"`
	TotalExperience int        `gorm:"column:total_experience;not null;default:0" json:"total_experience"`
	QuestsCompleted int        `gorm:"column:quests_completed;not null;default:0" json:"quests_completed"`
	BadgesEarned    int        `gorm:"column:badges_earned;not null;default:0" json:"badges_earned"`
	StudyHours      float64    `gorm:"column:study_hours;not null;default:0" json:"study_hours"`
	StreakDays      int        `gorm:"column:streak_days;not null;default:0" json:"streak_days"`
	LastActivityAt  *time.Time `gorm:"column:last_activity_at" json:"last_activity_at,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (StudentProgress) TableName() string { return "student_progress" }

func (s *StudentProgress) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
