package workspace

import (
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/middleware"
	"voicepost-backend/internal/pkg/identity"
	"voicepost-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles workspace handlers with dependencies.
type Handlers struct {
	Service *wssvc.Service
	Config  middleware.SessionConfig
}

// resolveTarget picks the workspace an operation acts on: explicit
// workspace_id query param first, then the session selection.
func (h *Handlers) resolveTarget(c *fiber.Ctx, p *identity.Principal) (uuid.UUID, error) {
	var explicit *uuid.UUID
	if q := c.Query("workspace_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			return uuid.Nil, response.Error(c, "Invalid workspace_id", fiber.StatusBadRequest, nil)
		}
		explicit = &id
	}
	wsID, err := h.Service.Resolve(c.Context(), wssvc.ResolveInput{
		Principal:  p,
		ExplicitID: explicit,
		SessionID:  p.WorkspaceID,
	})
	if err != nil {
		return uuid.Nil, response.FromError(c, err)
	}
	return wsID, nil
}

// CreateRequest is the POST /workspaces body.
type CreateRequest struct {
	Name string `json:"name"`
	Plan string `json:"plan"`
}

// Create POST /api/v1/workspaces
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "name is required", fiber.StatusBadRequest, nil)
	}
	if req.Name == "" {
		return response.Error(c, "name is required", fiber.StatusBadRequest, nil)
	}

	ws, err := h.Service.Create(c.Context(), p, wssvc.CreateInput{Name: req.Name, Plan: req.Plan})
	if err != nil {
		return response.FromError(c, err)
	}

	// Creating a workspace selects it for the session.
	middleware.SetSessionWorkspace(c, ws.WorkspaceID.String())

	return response.SuccessCreated(c, "Workspace created successfully", ws, nil)
}

// View GET /api/v1/workspaces/current returns the effective workspace with members.
func (h *Handlers) View(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}
	out, err := h.Service.Get(c.Context(), p, wsID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Workspace retrieved successfully", out, nil)
}

// Update PATCH /api/v1/workspaces/current
func (h *Handlers) Update(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}
	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil || len(fields) == 0 {
		return response.Error(c, "No fields to update", fiber.StatusBadRequest, nil)
	}
	ws, err := h.Service.Update(c.Context(), p, wsID, fields)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Workspace updated successfully", ws, nil)
}

// SwitchRequest is the POST /workspaces/switch body.
type SwitchRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

// Switch POST /api/v1/workspaces/switch verifies membership and updates
// the session's selected workspace.
func (h *Handlers) Switch(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req SwitchRequest
	if err := c.BodyParser(&req); err != nil || req.WorkspaceID == "" {
		return response.Error(c, "workspace_id is required", fiber.StatusBadRequest, nil)
	}
	wsID, err := uuid.Parse(req.WorkspaceID)
	if err != nil {
		return response.Error(c, "Invalid workspace_id", fiber.StatusBadRequest, nil)
	}

	selected, err := h.Service.Switch(c.Context(), p, wsID)
	if err != nil {
		return response.FromError(c, err)
	}

	middleware.SetSessionWorkspace(c, selected.String())
	return response.Success(c, "Workspace switched successfully", fiber.Map{"workspace_id": selected.String()}, nil)
}

// List GET /api/v1/workspaces returns all workspaces the user belongs to.
func (h *Handlers) List(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	list, err := h.Service.List(c.Context(), p)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Workspaces retrieved successfully", list, nil)
}
