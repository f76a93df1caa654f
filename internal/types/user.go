package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User mirrors an LMS account that has been synchronized locally.
// Account CRUD lives outside this service; events referencing a Moodle
// user id that has no local row are acknowledged as no-ops.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MoodleUserID int64          `gorm:"column:moodle_user_id;not null;uniqueIndex" json:"moodle_user_id"`
	Username     string         `gorm:"column:username;not null" json:"username"`
	Email        string         `gorm:"column:email" json:"email,omitempty"`
	Role         string         `gorm:"column:role;not null;default:'student'" json:"role"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
