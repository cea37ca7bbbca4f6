package invitations

import (
	"fmt"

	"voicepost-backend/internal/pkg/apperr"
)

var (
	ErrSelfInvite        = fmt.Errorf("You cannot invite yourself: %w", apperr.ErrInvalidOperation)
	ErrAlreadyMember     = fmt.Errorf("User already belongs to this workspace: %w", apperr.ErrConflict)
	ErrPendingExists     = fmt.Errorf("A pending invitation already exists for this email: %w", apperr.ErrConflict)
	ErrOwnerNotInvitable = fmt.Errorf("Ownership cannot be granted via invitation: %w", apperr.ErrInvalidRole)
	ErrEmailMismatch     = fmt.Errorf("Invitation email does not match logged-in user: %w", apperr.ErrForbidden)
)
