package drafts

import (
	"time"

	dsvc "voicepost-backend/internal/application/drafts"
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/pkg/identity"
	"voicepost-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles draft handlers with dependencies.
type Handlers struct {
	Service    *dsvc.Service
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

func draftIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("draft_id"))
	if err != nil {
		return uuid.Nil, response.Error(c, "Invalid draft_id", fiber.StatusBadRequest, nil)
	}
	return id, nil
}

// CreateRequest is the POST /drafts body.
type CreateRequest struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	SourceNoteID string `json:"source_note_id"`
}

// Create POST /api/v1/drafts
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil || req.Body == "" {
		return response.Error(c, "body is required", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	var sourceNote *uuid.UUID
	if req.SourceNoteID != "" {
		id, err := uuid.Parse(req.SourceNoteID)
		if err != nil {
			return response.Error(c, "Invalid source_note_id", fiber.StatusBadRequest, nil)
		}
		sourceNote = &id
	}

	draft, err := h.Service.Create(c.Context(), dsvc.CreateDraftInput{
		Actor:        p,
		WorkspaceID:  wsID,
		Title:        req.Title,
		Body:         req.Body,
		SourceNoteID: sourceNote,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Draft created successfully", draft, nil)
}

// List GET /api/v1/drafts
func (h *Handlers) List(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}
	list, err := h.Service.List(c.Context(), p, wsID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Drafts retrieved successfully", list, nil)
}

// Get GET /api/v1/drafts/:draft_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	draftID, derr := draftIDParam(c)
	if derr != nil {
		return derr
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}
	draft, err := h.Service.Get(c.Context(), p, wsID, draftID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Draft retrieved successfully", draft, nil)
}

// Update PATCH /api/v1/drafts/:draft_id
func (h *Handlers) Update(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	draftID, derr := draftIDParam(c)
	if derr != nil {
		return derr
	}
	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil || len(fields) == 0 {
		return response.Error(c, "No fields to update", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	draft, err := h.Service.Edit(c.Context(), dsvc.EditDraftInput{
		Actor:       p,
		WorkspaceID: wsID,
		DraftID:     draftID,
		Fields:      fields,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Draft updated successfully", draft, nil)
}

// Delete DELETE /api/v1/drafts/:draft_id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	draftID, derr := draftIDParam(c)
	if derr != nil {
		return derr
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}
	if err := h.Service.Delete(c.Context(), p, wsID, draftID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Draft deleted successfully", nil, nil)
}

// ScheduleRequest is the POST /drafts/:draft_id/schedule body.
type ScheduleRequest struct {
	At time.Time `json:"at"`
}

// Schedule POST /api/v1/drafts/:draft_id/schedule
func (h *Handlers) Schedule(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	draftID, derr := draftIDParam(c)
	if derr != nil {
		return derr
	}
	var req ScheduleRequest
	if err := c.BodyParser(&req); err != nil || req.At.IsZero() {
		return response.Error(c, "at is required (RFC 3339 timestamp)", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	draft, err := h.Service.Schedule(c.Context(), dsvc.ScheduleDraftInput{
		Actor:       p,
		WorkspaceID: wsID,
		DraftID:     draftID,
		At:          req.At,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Draft scheduled successfully", draft, nil)
}

// MoveRequest is the POST /drafts/:draft_id/move body.
type MoveRequest struct {
	TargetWorkspaceID string `json:"target_workspace_id"`
}

// Move POST /api/v1/drafts/:draft_id/move relocates a draft into another
// workspace the actor can create content in.
func (h *Handlers) Move(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	draftID, derr := draftIDParam(c)
	if derr != nil {
		return derr
	}
	var req MoveRequest
	if err := c.BodyParser(&req); err != nil || req.TargetWorkspaceID == "" {
		return response.Error(c, "target_workspace_id is required", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.TargetWorkspaceID)
	if err != nil {
		return response.Error(c, "Invalid target_workspace_id", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	draft, err := h.Service.Move(c.Context(), dsvc.MoveDraftInput{
		Actor:             p,
		DraftID:           draftID,
		SourceWorkspaceID: wsID,
		TargetWorkspaceID: targetID,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Draft moved successfully", draft, nil)
}
