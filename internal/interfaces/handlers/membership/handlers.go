package membership

import (
	msvc "voicepost-backend/internal/application/membership"
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/pkg/identity"
	"voicepost-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles membership governance handlers with dependencies.
type Handlers struct {
	Service    *msvc.Service
	Workspaces *wssvc.Service
}

func (h *Handlers) resolveTarget(c *fiber.Ctx, p *identity.Principal) (uuid.UUID, error) {
	var explicit *uuid.UUID
	if q := c.Query("workspace_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			return uuid.Nil, response.Error(c, "Invalid workspace_id", fiber.StatusBadRequest, nil)
		}
		explicit = &id
	}
	wsID, err := h.Workspaces.Resolve(c.Context(), wssvc.ResolveInput{
		Principal:  p,
		ExplicitID: explicit,
		SessionID:  p.WorkspaceID,
	})
	if err != nil {
		return uuid.Nil, response.FromError(c, err)
	}
	return wsID, nil
}

// ChangeRoleRequest is the PATCH /members/role body.
type ChangeRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// ChangeRole PATCH /api/v1/members/role
func (h *Handlers) ChangeRole(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" || req.Role == "" {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "Invalid user_id", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	m, err := h.Service.ChangeRole(c.Context(), msvc.ChangeRoleInput{
		Actor:        p,
		WorkspaceID:  wsID,
		TargetUserID: targetID,
		Role:         req.Role,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Member role updated successfully", m, nil)
}

// RemoveRequest is the DELETE /members body.
type RemoveRequest struct {
	UserID string `json:"user_id"`
}

// Remove DELETE /api/v1/members
func (h *Handlers) Remove(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req RemoveRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "Invalid user_id", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	if err := h.Service.RemoveMember(c.Context(), msvc.RemoveMemberInput{
		Actor:        p,
		WorkspaceID:  wsID,
		TargetUserID: targetID,
	}); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Member removed successfully", nil, nil)
}

// TransferRequest is the POST /members/transfer-ownership body.
type TransferRequest struct {
	UserID string `json:"user_id"`
}

// Transfer POST /api/v1/members/transfer-ownership
func (h *Handlers) Transfer(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req TransferRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return response.Error(c, "user_id is required", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "Invalid user_id", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	if err := h.Service.TransferOwnership(c.Context(), msvc.TransferOwnershipInput{
		Actor:          p,
		WorkspaceID:    wsID,
		NewOwnerUserID: targetID,
	}); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Ownership transferred successfully", nil, nil)
}
