package notes

import (
	nsvc "voicepost-backend/internal/application/notes"
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/pkg/identity"
	"voicepost-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles voice note handlers with dependencies.
type Handlers struct {
	Service    *nsvc.Service
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

func noteIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("note_id"))
	if err != nil {
		return uuid.Nil, response.Error(c, "Invalid note_id", fiber.StatusBadRequest, nil)
	}
	return id, nil
}

// CreateRequest is the POST /notes body.
type CreateRequest struct {
	AudioURL string `json:"audio_url"`
}

// Create POST /api/v1/notes registers an uploaded voice note.
func (h *Handlers) Create(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil || req.AudioURL == "" {
		return response.Error(c, "audio_url is required", fiber.StatusBadRequest, nil)
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	note, err := h.Service.Create(c.Context(), nsvc.CreateNoteInput{
		Actor:       p,
		WorkspaceID: wsID,
		AudioURL:    req.AudioURL,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Voice note created successfully", note, nil)
}

// Transcribe POST /api/v1/notes/:note_id/transcribe
func (h *Handlers) Transcribe(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	noteID, nerr := noteIDParam(c)
	if nerr != nil {
		return nerr
	}
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	note, err := h.Service.Transcribe(c.Context(), p, wsID, noteID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Voice note transcribed successfully", note, nil)
}

// GenerateRequest is the POST /notes/:note_id/generate body.
type GenerateRequest struct {
	Count int `json:"count"`
}

// Generate POST /api/v1/notes/:note_id/generate creates post drafts from
// a transcribed note.
func (h *Handlers) Generate(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	noteID, nerr := noteIDParam(c)
	if nerr != nil {
		return nerr
	}
	var req GenerateRequest
	_ = c.BodyParser(&req)
	wsID, ferr := h.resolveTarget(c, p)
	if ferr != nil {
		return ferr
	}

	drafts, err := h.Service.GenerateDrafts(c.Context(), nsvc.GenerateDraftsInput{
		Actor:       p,
		WorkspaceID: wsID,
		NoteID:      noteID,
		Count:       req.Count,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Drafts generated successfully", drafts, nil)
}

// List GET /api/v1/notes
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
	return response.Success(c, "Voice notes retrieved successfully", list, nil)
}
