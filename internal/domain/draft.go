package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Draft statuses.
const (
	DraftStatusDraft     = "draft"
	DraftStatusScheduled = "scheduled"
	DraftStatusPublished = "published"
)

// Draft is a LinkedIn post draft, usually generated from a voice note
// transcript. Drafts are the workspace-scoped resource that can be moved
// between workspaces.
type Draft struct {
	DraftID      uuid.UUID      `gorm:"column:draft_id;type:uuid;primaryKey" json:"draft_id"`
	WorkspaceID  uuid.UUID      `gorm:"column:workspace_id;type:uuid;not null;index" json:"workspace_id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Body         string         `gorm:"column:body;not null" json:"body"`
	Status       string         `gorm:"column:status;not null;default:'draft'" json:"status"`
	ScheduledFor *time.Time     `gorm:"column:scheduled_for" json:"scheduled_for"`
	SourceNoteID *uuid.UUID     `gorm:"column:source_note_id;type:uuid" json:"source_note_id"`
	CreatedBy    uuid.UUID      `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Draft) TableName() string {
	return "drafts"
}

func (d *Draft) BeforeCreate(tx *gorm.DB) error {
	if d.DraftID == uuid.Nil {
		d.DraftID = uuid.New()
	}
	return nil
}
