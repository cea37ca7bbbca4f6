package uploads

import (
	uploadsvc "voicepost-backend/internal/application/uploads"
	"voicepost-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// UploadVoiceNote POST /api/v1/uploads/voice-note signs an upload slot
// for raw audio; the client registers the public URL via POST /notes.
func (h *Handlers) UploadVoiceNote(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", 400, nil)
	}

	res, err := h.Service.GetSignedUploadURL(c.Context(), "voice-notes", req.FileName)
	if err != nil {
		log.Error().Err(err).Str("bucket", "voice-notes").Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", 500, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}

// UploadWorkspaceLogo POST /api/v1/uploads/workspace-logo
func (h *Handlers) UploadWorkspaceLogo(c *fiber.Ctx) error {
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil || req.FileName == "" {
		return response.Error(c, "file_name is required", 400, nil)
	}

	res, err := h.Service.GetSignedUploadURL(c.Context(), "workspace-logos", req.FileName)
	if err != nil {
		log.Error().Err(err).Str("bucket", "workspace-logos").Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", 500, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
