package notes

import (
	"context"
	"strings"

	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"
	"voicepost-backend/internal/pkg/identity"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const defaultVariants = 3

// Service records voice notes, runs transcription and turns transcripts
// into draft variants.
type Service struct {
	DB          *gorm.DB
	Transcriber Transcriber
	Generator   DraftGenerator
}

type CreateNoteInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	AudioURL    string
}

// Create records a voice note reference. Audio upload itself happens
// client-side against external storage.
func (s *Service) Create(ctx context.Context, in CreateNoteInput) (*domain.VoiceNote, error) {
	role, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.CreateContent) {
		return nil, apperr.ErrForbidden
	}
	if strings.TrimSpace(in.AudioURL) == "" {
		return nil, apperr.ErrInvalidOperation
	}

	n := &domain.VoiceNote{
		WorkspaceID: in.WorkspaceID,
		AudioURL:    in.AudioURL,
		Status:      domain.NoteStatusUploaded,
		CreatedBy:   in.Actor.ID,
	}
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// Transcribe runs the provider on an uploaded note and stores the result.
// A provider failure marks the note failed so the client can retry.
func (s *Service) Transcribe(ctx context.Context, actor *identity.Principal, workspaceID, noteID uuid.UUID) (*domain.VoiceNote, error) {
	role, err := s.roleOf(ctx, workspaceID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.EditContent) {
		return nil, apperr.ErrForbidden
	}

	var n domain.VoiceNote
	if err := s.DB.WithContext(ctx).
		Where("note_id = ? AND workspace_id = ?", noteID, workspaceID).
		First(&n).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if n.Status == domain.NoteStatusTranscribed {
		return nil, apperr.ErrInvalidState
	}
	if s.Transcriber == nil {
		return nil, apperr.ErrInvalidOperation
	}

	text, terr := s.Transcriber.Transcribe(ctx, n.AudioURL)
	if terr != nil {
		log.Warn().Err(terr).Str("note_id", noteID.String()).Msg("transcription failed")
		s.DB.WithContext(ctx).Model(&n).Update("status", domain.NoteStatusFailed)
		return nil, terr
	}

	n.Transcript = text
	n.Status = domain.NoteStatusTranscribed
	if err := s.DB.WithContext(ctx).Save(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

type GenerateDraftsInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	NoteID      uuid.UUID
	Count       int
}

// GenerateDrafts produces post variants from a transcribed note and
// persists them as drafts linked back to the note.
func (s *Service) GenerateDrafts(ctx context.Context, in GenerateDraftsInput) ([]domain.Draft, error) {
	role, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.CreateContent) {
		return nil, apperr.ErrForbidden
	}

	var n domain.VoiceNote
	if err := s.DB.WithContext(ctx).
		Where("note_id = ? AND workspace_id = ?", in.NoteID, in.WorkspaceID).
		First(&n).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if n.Status != domain.NoteStatusTranscribed || n.Transcript == "" {
		return nil, apperr.ErrInvalidState
	}
	if s.Generator == nil {
		return nil, apperr.ErrInvalidOperation
	}

	count := in.Count
	if count <= 0 {
		count = defaultVariants
	}
	variants, gerr := s.Generator.Generate(ctx, n.Transcript, count)
	if gerr != nil {
		return nil, gerr
	}

	noteID := n.NoteID
	drafts := make([]domain.Draft, 0, len(variants))
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, v := range variants {
			d := domain.Draft{
				WorkspaceID:  in.WorkspaceID,
				Title:        v.Title,
				Body:         v.Body,
				Status:       domain.DraftStatusDraft,
				SourceNoteID: &noteID,
				CreatedBy:    in.Actor.ID,
			}
			if err := tx.Create(&d).Error; err != nil {
				return err
			}
			drafts = append(drafts, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

// List returns a workspace's voice notes, newest first.
func (s *Service) List(ctx context.Context, actor *identity.Principal, workspaceID uuid.UUID) ([]domain.VoiceNote, error) {
	role, err := s.roleOf(ctx, workspaceID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.ViewContent) {
		return nil, apperr.ErrForbidden
	}

	var out []domain.VoiceNote
	err = s.DB.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
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
