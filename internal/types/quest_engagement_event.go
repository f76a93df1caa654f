package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuestEngagementEvent is an append-only log row attached to a
// QuestProgress. Deduplicated events are still logged with zero points;
// the log doubles as the dedup-lookback source.
type QuestEngagementEvent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuestProgressID uuid.UUID      `gorm:"type:uuid;not null;index:idx_progress_event_type" json:"quest_progress_id"`
	QuestProgress   *QuestProgress `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestProgressID;references:ID" json:"quest_progress,omitempty"`
	EventType       string         `gorm:"column:event_type;not null;index:idx_progress_event_type" json:"event_type"`
	Payload         datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	PointsAwarded   int            `gorm:"column:points_awarded;not null;default:0" json:"points_awarded"`
	CreatedAt       time.Time      `gorm:"not null;index" json:"created_at"`
}

func (QuestEngagementEvent) TableName() string { return "quest_engagement_event" }

func (e *QuestEngagementEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
