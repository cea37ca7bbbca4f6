package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Voice note statuses.
const (
	NoteStatusUploaded    = "uploaded"
	NoteStatusTranscribed = "transcribed"
	NoteStatusFailed      = "failed"
)

// VoiceNote is a recorded note awaiting (or holding) its transcript.
// Audio storage and the transcription provider are external; this record
// only tracks the reference and the outcome.
type VoiceNote struct {
	NoteID      uuid.UUID      `gorm:"column:note_id;type:uuid;primaryKey" json:"note_id"`
	WorkspaceID uuid.UUID      `gorm:"column:workspace_id;type:uuid;not null;index" json:"workspace_id"`
	AudioURL    string         `gorm:"column:audio_url;not null" json:"audio_url"`
	Transcript  string         `gorm:"column:transcript" json:"transcript"`
	Status      string         `gorm:"column:status;not null;default:'uploaded'" json:"status"`
	CreatedBy   uuid.UUID      `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (VoiceNote) TableName() string {
	return "voice_notes"
}

func (n *VoiceNote) BeforeCreate(tx *gorm.DB) error {
	if n.NoteID == uuid.Nil {
		n.NoteID = uuid.New()
	}
	return nil
}
