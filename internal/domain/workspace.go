package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Subscription plans.
const (
	PlanStarter    = "starter"
	PlanCreator    = "creator"
	PlanAgency     = "agency"
	PlanEnterprise = "enterprise"
)

// ValidPlans is the set of allowed DB enum values for workspace plan.
var ValidPlans = []string{PlanStarter, PlanCreator, PlanAgency, PlanEnterprise}

// IsValidPlan returns true if plan is one of the allowed enum values.
func IsValidPlan(plan string) bool {
	for _, p := range ValidPlans {
		if p == plan {
			return true
		}
	}
	return false
}

// Workspace is the tenant container for drafts, voice notes and billing.
// Invariants: CreditsRemaining <= CreditsTotal, both non-negative; exactly
// one Membership with role=owner exists at all times (enforced by the
// membership service, never checked ad hoc elsewhere).
//
// DefaultFor holds the owner's user id only on the workspace created by
// the signup bootstrap path; its unique index is what makes two concurrent
// bootstrap requests for the same user collapse to one workspace.
type Workspace struct {
	WorkspaceID      uuid.UUID         `gorm:"column:workspace_id;type:uuid;primaryKey" json:"workspace_id"`
	Name             string            `gorm:"column:name;not null" json:"name"`
	Plan             string            `gorm:"column:plan;not null;default:starter" json:"plan"`
	CreditsRemaining int64             `gorm:"column:credits_remaining;not null;default:0" json:"credits_remaining"`
	CreditsTotal     int64             `gorm:"column:credits_total;not null;default:0" json:"credits_total"`
	OwnerID          uuid.UUID         `gorm:"column:owner_id;type:uuid;not null" json:"owner_id"`
	Branding         datatypes.JSONMap `gorm:"column:branding;type:jsonb" json:"branding"`
	LogoURL          *string           `gorm:"column:logo_url" json:"logo_url"`
	DefaultFor       *uuid.UUID        `gorm:"column:default_for;type:uuid;uniqueIndex" json:"-"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (Workspace) TableName() string {
	return "workspaces"
}

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.WorkspaceID == uuid.Nil {
		w.WorkspaceID = uuid.New()
	}
	return nil
}
