package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Experience source types. SourceQuest grants are guarded upstream by the
// terminal QuestProgress status; the other sources are deduplicated by
// (user, course, source_type, source_id) lookups on this ledger, backed
// for the hard-block sources by a partial unique index the migration
// layer creates (AutoMigrate cannot express it from a tag).
const (
	SourceQuest      = "quest"
	SourceGradeBonus = "grade_bonus"
	SourceForumPost  = "forum_post"
	SourceLessonView = "lesson_view"
	SourceActivity   = "activity"
)

// ExperiencePoints is the append-only XP ledger. It is the authoritative
// record; StudentProgress is a derived cache.
type ExperiencePoints struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_xp_source" json:"user_id"`
	User       *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CourseID   *uuid.UUID `gorm:"type:uuid;index:idx_xp_source" json:"course_id,omitempty"`
	Amount     int        `gorm:"column:amount;not null" json:"amount"`
	SourceType string     `gorm:"column:source_type;not null;index:idx_xp_source" json:"source_type"`
	SourceID   string     `gorm:"column:source_id;not null;index:idx_xp_source" json:"source_id"`
	Note       string     `gorm:"column:note" json:"note,omitempty"`
	AwardedAt  time.Time  `gorm:"column:awarded_at;not null;index" json:"awarded_at"`
}

func (ExperiencePoints) TableName() string { return "experience_points" }

func (x *ExperiencePoints) BeforeCreate(tx *gorm.DB) error {
	if x.ID == uuid.Nil {
		x.ID = uuid.New()
	}
	if x.AwardedAt.IsZero() {
		x.AwardedAt = time.Now().UTC()
	}
	return nil
}
