package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Course mirrors an LMS course that has been synchronized locally.
type Course struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MoodleCourseID int64          `gorm:"column:moodle_course_id;not null;uniqueIndex" json:"moodle_course_id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	ShortName      string         `gorm:"column:short_name" json:"short_name,omitempty"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
