package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invitation statuses.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
	InviteStatusRevoked  = "revoked"
)

// Invitation is a token-based pending membership offer. The token is the
// only credential needed to redeem it; expiry is checked lazily at
// redemption time.
type Invitation struct {
	InviteID    uuid.UUID      `gorm:"column:invite_id;type:uuid;primaryKey" json:"invite_id"`
	WorkspaceID uuid.UUID      `gorm:"column:workspace_id;type:uuid;not null" json:"workspace_id"`
	Email       string         `gorm:"column:email;not null" json:"email"`
	Role        string         `gorm:"column:role;not null" json:"role"`
	InviteToken string         `gorm:"column:invite_token;not null;uniqueIndex" json:"invite_token"`
	Status      string         `gorm:"column:status;not null;default:'pending'" json:"status"`
	InvitedBy   uuid.UUID      `gorm:"column:invited_by;type:uuid;not null" json:"invited_by"`
	ExpiresAt   time.Time      `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invitation) TableName() string {
	return "workspace_invitations"
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.InviteID == uuid.Nil {
		i.InviteID = uuid.New()
	}
	return nil
}
