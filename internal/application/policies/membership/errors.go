package membership

import (
	"fmt"

	"voicepost-backend/internal/pkg/apperr"
)

var (
	ErrCannotChangeOwnRole     = fmt.Errorf("Users cannot change their own role: %w", apperr.ErrInvalidOperation)
	ErrCannotRemoveSelf        = fmt.Errorf("You cannot remove yourself from the workspace: %w", apperr.ErrInvalidOperation)
	ErrAdminsCannotTouchAdmins = fmt.Errorf("Admins cannot modify admins or the owner: %w", apperr.ErrForbidden)
	ErrOwnerRoleViaTransfer    = fmt.Errorf("The owner role is only assigned via ownership transfer: %w", apperr.ErrInvalidRole)
	ErrOwnerCannotBeModified   = fmt.Errorf("The workspace owner's membership can only change via ownership transfer: %w", apperr.ErrInvalidOperation)
	ErrTargetNotMember         = fmt.Errorf("Target user is not a member of this workspace: %w", apperr.ErrNotAMember)
)
