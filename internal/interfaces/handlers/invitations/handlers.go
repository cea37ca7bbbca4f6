package invitations

import (
	invsvc "voicepost-backend/internal/application/invitations"
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/middleware"
	"voicepost-backend/internal/pkg/identity"
	"voicepost-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles invitation handlers with dependencies.
type Handlers struct {
	Service    *invsvc.Service
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

// SendRequest is the POST /invitations body.
type SendRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Send POST /api/v1/invitations
func (h *Handlers) Send(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req SendRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Role == "" {
		return response.Error(c, "email and role are required", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	inv, err := h.Service.SendInvite(c.Context(), invsvc.SendInviteInput{
		Actor:       p,
		WorkspaceID: wsID,
		Email:       req.Email,
		Role:        req.Role,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Invitation sent successfully", inv, nil)
}

// ResendRequest is the POST /invitations/resend body.
type ResendRequest struct {
	Email string `json:"email"`
}

// Resend POST /api/v1/invitations/resend
func (h *Handlers) Resend(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req ResendRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return response.Error(c, "email is required", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	inv, err := h.Service.ResendInvite(c.Context(), invsvc.ResendInviteInput{
		Actor:       p,
		WorkspaceID: wsID,
		Email:       req.Email,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invitation resent successfully", inv, nil)
}

// AcceptRequest is the POST /invitations/accept body.
type AcceptRequest struct {
	Token string `json:"token"`
}

// Accept POST /api/v1/invitations/accept joins the authenticated user to
// the inviting workspace and selects it for the session.
func (h *Handlers) Accept(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req AcceptRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return response.Error(c, "token is required", fiber.StatusBadRequest, nil)
	}

	result, err := h.Service.AcceptInvite(c.Context(), invsvc.AcceptInviteInput{Actor: p, Token: req.Token})
	if err != nil {
		return response.FromError(c, err)
	}

	middleware.SetSessionWorkspace(c, result.WorkspaceID)
	return response.Success(c, "Invitation accepted successfully", result, nil)
}

// RevokeRequest is the POST /invitations/revoke body.
type RevokeRequest struct {
	Email string `json:"email"`
}

// Revoke POST /api/v1/invitations/revoke
func (h *Handlers) Revoke(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req RevokeRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return response.Error(c, "email is required", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	inv, err := h.Service.RevokeInvite(c.Context(), invsvc.RevokeInviteInput{
		Actor:       p,
		WorkspaceID: wsID,
		Email:       req.Email,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invitation revoked successfully", inv, nil)
}

// List GET /api/v1/invitations?status=pending
func (h *Handlers) List(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	list, err := h.Service.ListWorkspaceInvitations(c.Context(), invsvc.ListInvitesInput{
		Actor:       p,
		WorkspaceID: wsID,
		Status:      c.Query("status"),
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invitations retrieved successfully", list, nil)
}

// CheckToken GET /api/v1/invitations/check/:token is the pre-login probe
// the invite landing page uses; it requires no session.
func (h *Handlers) CheckToken(c *fiber.Ctx) error {
	token := c.Params("token")
	if token == "" {
		return response.Error(c, "token is required", fiber.StatusBadRequest, nil)
	}
	result, err := h.Service.CheckInvitationToken(c.Context(), token)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Invitation token valid", result, nil)
}
