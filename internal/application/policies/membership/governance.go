package membership

import (
	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ValidateRoleChangeParams struct {
	ActorUserID  uuid.UUID
	ActorRole    string
	TargetUserID uuid.UUID
	TargetRole   string
	WorkspaceID  uuid.UUID
}

// ValidateRoleChange guards change_member_role. The owner membership is
// untouchable here: demoting or replacing an owner happens only through
// ownership transfer, which is what keeps the exactly-one-owner invariant
// out of reach of this path entirely.
func ValidateRoleChange(db *gorm.DB, params ValidateRoleChangeParams) (*domain.Membership, error) {
	if !authz.IsValidRole(params.TargetRole) {
		return nil, apperr.ErrInvalidRole
	}
	if params.TargetRole == authz.Owner {
		return nil, ErrOwnerRoleViaTransfer
	}
	if params.ActorUserID == params.TargetUserID {
		return nil, ErrCannotChangeOwnRole
	}

	var target domain.Membership
	if err := db.Where("workspace_id = ? AND user_id = ?", params.WorkspaceID, params.TargetUserID).
		First(&target).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTargetNotMember
		}
		return nil, err
	}
	if target.Role == authz.Owner {
		return nil, ErrOwnerCannotBeModified
	}
	// Admins manage editors and viewers only
	if params.ActorRole == authz.Admin && !authz.Outranks(params.ActorRole, target.Role) {
		return nil, ErrAdminsCannotTouchAdmins
	}
	return &target, nil
}

type ValidateRemovalParams struct {
	ActorUserID  uuid.UUID
	ActorRole    string
	TargetUserID uuid.UUID
	WorkspaceID  uuid.UUID
}

// ValidateRemoval guards member removal with the same shielding of the
// owner membership.
func ValidateRemoval(db *gorm.DB, params ValidateRemovalParams) (*domain.Membership, error) {
	if params.ActorUserID == params.TargetUserID {
		return nil, ErrCannotRemoveSelf
	}
	var target domain.Membership
	if err := db.Where("workspace_id = ? AND user_id = ?", params.WorkspaceID, params.TargetUserID).
		First(&target).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTargetNotMember
		}
		return nil, err
	}
	if target.Role == authz.Owner {
		return nil, ErrOwnerCannotBeModified
	}
	if params.ActorRole == authz.Admin && !authz.Outranks(params.ActorRole, target.Role) {
		return nil, ErrAdminsCannotTouchAdmins
	}
	return &target, nil
}
