package membership

import (
	"context"

	memPolicies "voicepost-backend/internal/application/policies/membership"
	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"
	"voicepost-backend/internal/pkg/identity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages workspace memberships: role changes, removal and
// ownership transfer. The exactly-one-owner invariant is owned here: the
// only code path that writes an owner role is TransferOwnership, and it
// does so inside a single transaction.
type Service struct {
	DB *gorm.DB
}

type ChangeRoleInput struct {
	Actor        *identity.Principal
	WorkspaceID  uuid.UUID
	TargetUserID uuid.UUID
	Role         string
}

// ChangeRole updates a member's role. Requires change_member_role; the
// governance policy shields the owner membership and blocks admins from
// touching peers.
func (s *Service) ChangeRole(ctx context.Context, in ChangeRoleInput) (*domain.Membership, error) {
	actorRole, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actorRole, authz.ChangeMemberRole) {
		return nil, apperr.ErrForbidden
	}

	target, err := memPolicies.ValidateRoleChange(s.DB.WithContext(ctx), memPolicies.ValidateRoleChangeParams{
		ActorUserID:  in.Actor.ID,
		ActorRole:    actorRole,
		TargetUserID: in.TargetUserID,
		TargetRole:   in.Role,
		WorkspaceID:  in.WorkspaceID,
	})
	if err != nil {
		return nil, err
	}

	target.Role = in.Role
	if err := s.DB.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("workspace_id = ? AND user_id = ?", in.WorkspaceID, in.TargetUserID).
		Update("role", in.Role).Error; err != nil {
		return nil, err
	}
	return target, nil
}

type RemoveMemberInput struct {
	Actor        *identity.Principal
	WorkspaceID  uuid.UUID
	TargetUserID uuid.UUID
}

// RemoveMember deletes a membership. The owner membership cannot be
// removed; transfer ownership first.
func (s *Service) RemoveMember(ctx context.Context, in RemoveMemberInput) error {
	actorRole, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return err
	}
	if !authz.Can(actorRole, authz.ChangeMemberRole) {
		return apperr.ErrForbidden
	}

	if _, err := memPolicies.ValidateRemoval(s.DB.WithContext(ctx), memPolicies.ValidateRemovalParams{
		ActorUserID:  in.Actor.ID,
		ActorRole:    actorRole,
		TargetUserID: in.TargetUserID,
		WorkspaceID:  in.WorkspaceID,
	}); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", in.WorkspaceID, in.TargetUserID).
		Delete(&domain.Membership{}).Error
}

type TransferOwnershipInput struct {
	Actor          *identity.Principal
	WorkspaceID    uuid.UUID
	NewOwnerUserID uuid.UUID
}

// TransferOwnership makes an existing member the workspace owner and
// demotes the current owner to admin. Only the literal current owner may
// initiate this; an admin passing a generic permission check is not
// enough. All three writes run in one transaction, and the workspace
// update is conditional on owner_id still being the actor, so a losing
// concurrent transfer gets ErrConflict and changes nothing.
func (s *Service) TransferOwnership(ctx context.Context, in TransferOwnershipInput) error {
	if in.Actor.ID == in.NewOwnerUserID {
		return apperr.ErrInvalidOperation
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ws domain.Workspace
		if err := tx.Where("workspace_id = ?", in.WorkspaceID).First(&ws).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.ErrNotFound
			}
			return err
		}
		if ws.OwnerID != in.Actor.ID {
			return apperr.ErrForbidden
		}

		var actorMembership domain.Membership
		if err := tx.Where("workspace_id = ? AND user_id = ?", in.WorkspaceID, in.Actor.ID).
			First(&actorMembership).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.ErrForbidden
			}
			return err
		}
		if actorMembership.Role != authz.Owner {
			return apperr.ErrForbidden
		}

		var newOwner domain.Membership
		if err := tx.Where("workspace_id = ? AND user_id = ?", in.WorkspaceID, in.NewOwnerUserID).
			First(&newOwner).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperr.ErrNotAMember
			}
			return err
		}

		res := tx.Model(&domain.Workspace{}).
			Where("workspace_id = ? AND owner_id = ?", in.WorkspaceID, in.Actor.ID).
			Update("owner_id", in.NewOwnerUserID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict
		}

		if err := tx.Model(&domain.Membership{}).
			Where("workspace_id = ? AND user_id = ? AND role = ?", in.WorkspaceID, in.Actor.ID, authz.Owner).
			Update("role", authz.Admin).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Membership{}).
			Where("workspace_id = ? AND user_id = ?", in.WorkspaceID, in.NewOwnerUserID).
			Update("role", authz.Owner).Error
	})
}

func (s *Service) roleOf(ctx context.Context, workspaceID, userID uuid.UUID) (string, error) {
	var m domain.Membership
	err := s.DB.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return "", apperr.ErrForbidden
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}
