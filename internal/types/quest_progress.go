package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ProgressStatusNotStarted    = "not_started"
	ProgressStatusStarted       = "started"
	ProgressStatusCompleted     = "completed"
	ProgressStatusNeedsRevision = "needs_revision"
)

const (
	StageNotStarted = "not_started"
	StageStarted    = "started"
	StageInProgress = "in_progress"
	StageCompleted  = "completed"
)

// stageOrder fixes the monotonic ordering of engagement stages.
var stageOrder = map[string]int{
	StageNotStarted: 0,
	StageStarted:    1,
	StageInProgress: 2,
	StageCompleted:  3,
}

// StageRank returns the position of a stage in the fixed ordering,
// or -1 for an unknown stage.
func StageRank(stage string) int {
	if r, ok := stageOrder[stage]; ok {
		return r
	}
	return -1
}

// QuestProgress is the unique (user, quest) engagement record. It is
// created lazily on first event, mutated only by the engagement service,
// and never deleted. Stage, score and progress percent are monotonic.
type QuestProgress struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_quest,unique" json:"user_id"`
	User               *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	QuestID            uuid.UUID      `gorm:"type:uuid;not null;index:idx_user_quest,unique" json:"quest_id"`
	Quest              *Quest         `gorm:"constraint:OnDelete:CASCADE;foreignKey:QuestID;references:ID" json:"quest,omitempty"`
	Status             string         `gorm:"column:status;not null;default:'not_started'" json:"status"`
	Stage              string         `gorm:"column:stage;not null;default:'not_started'" json:"stage"`
	ProgressPercent    int            `gorm:"column:progress_percent;not null;default:0" json:"progress_percent"`
	InteractionCount   int            `gorm:"column:interaction_count;not null;default:0" json:"interaction_count"`
	EngagementScore    int            `gorm:"column:engagement_score;not null;default:0" json:"engagement_score"`
	FirstInteractionAt *time.Time     `gorm:"column:first_interaction_at" json:"first_interaction_at,omitempty"`
	LastInteractionAt  *time.Time     `gorm:"column:last_interaction_at" json:"last_interaction_at,omitempty"`
	StartedAt          *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	ValidatedAt        *time.Time     `gorm:"column:validated_at" json:"validated_at,omitempty"`
	ValidationNotes    string         `gorm:"column:validation_notes" json:"validation_notes,omitempty"`
	CreatedAt          time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (QuestProgress) TableName() string { return "quest_progress" }

func (p *QuestProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
