package domain

import (
	"time"

	"github.com/google/uuid"
)

// Membership binds (workspace, user) to a role. Exactly one row per pair;
// role changes are upserts on the composite key.
type Membership struct {
	WorkspaceID uuid.UUID `gorm:"column:workspace_id;type:uuid;primaryKey" json:"workspace_id"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Role        string    `gorm:"column:role;not null;default:viewer" json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Membership) TableName() string {
	return "workspace_members"
}
