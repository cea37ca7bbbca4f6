package invitations

import (
	"strings"
	"time"

	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ValidateInviteRole enforces the role ceiling: any of the four roles may
// be proposed except owner, which is only ever granted by explicit
// transfer.
func ValidateInviteRole(role string) error {
	if !authz.IsValidRole(role) {
		return apperr.ErrInvalidRole
	}
	if role == authz.Owner {
		return ErrOwnerNotInvitable
	}
	return nil
}

// ValidateInviteCreation rejects self-invites, invites to existing members
// and duplicate pending invitations.
func ValidateInviteCreation(db *gorm.DB, workspaceID uuid.UUID, email, actorEmail string) error {
	normalized := strings.ToLower(email)

	if normalized == strings.ToLower(actorEmail) {
		return ErrSelfInvite
	}

	var user domain.User
	if err := db.Where("email = ?", normalized).First(&user).Error; err == nil {
		var count int64
		db.Model(&domain.Membership{}).
			Where("workspace_id = ? AND user_id = ?", workspaceID, user.UserID).
			Count(&count)
		if count > 0 {
			return ErrAlreadyMember
		}
	}

	var invite domain.Invitation
	if err := db.Where("workspace_id = ? AND email = ? AND status = ?", workspaceID, normalized, domain.InviteStatusPending).
		First(&invite).Error; err == nil {
		return ErrPendingExists
	}

	return nil
}

// ValidateInviteAcceptance checks the invitation can be redeemed by the
// given user email. Expiry is reported but not persisted here; the
// service marks the row expired.
func ValidateInviteAcceptance(inv *domain.Invitation, userEmail string) error {
	if !strings.EqualFold(inv.Email, userEmail) {
		return ErrEmailMismatch
	}
	if inv.Status != domain.InviteStatusPending {
		return apperr.ErrInvalidState
	}
	if inv.ExpiresAt.Before(time.Now()) {
		return apperr.ErrExpired
	}
	return nil
}
