package drafts

import (
	"context"
	"strings"
	"time"

	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"
	"voicepost-backend/internal/pkg/identity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service owns draft CRUD, scheduling and the cross-workspace move guard.
type Service struct {
	DB *gorm.DB
}

type CreateDraftInput struct {
	Actor        *identity.Principal
	WorkspaceID  uuid.UUID
	Title        string
	Body         string
	SourceNoteID *uuid.UUID
}

func (s *Service) Create(ctx context.Context, in CreateDraftInput) (*domain.Draft, error) {
	role, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.CreateContent) {
		return nil, apperr.ErrForbidden
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, apperr.ErrInvalidOperation
	}

	d := &domain.Draft{
		WorkspaceID:  in.WorkspaceID,
		Title:        strings.TrimSpace(in.Title),
		Body:         in.Body,
		Status:       domain.DraftStatusDraft,
		SourceNoteID: in.SourceNoteID,
		CreatedBy:    in.Actor.ID,
	}
	if err := s.DB.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

type EditDraftInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	DraftID     uuid.UUID
	Fields      map[string]interface{}
}

// Edit updates allowed draft fields within the draft's own workspace.
func (s *Service) Edit(ctx context.Context, in EditDraftInput) (*domain.Draft, error) {
	role, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.EditContent) {
		return nil, apperr.ErrForbidden
	}

	allowed := map[string]bool{"title": true, "body": true}
	valid := make(map[string]interface{})
	for k, v := range in.Fields {
		if allowed[k] {
			valid[k] = v
		}
	}
	if len(valid) == 0 {
		return nil, apperr.ErrInvalidOperation
	}

	res := s.DB.WithContext(ctx).Model(&domain.Draft{}).
		Where("draft_id = ? AND workspace_id = ?", in.DraftID, in.WorkspaceID).
		Updates(valid)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrNotFound
	}

	var d domain.Draft
	if err := s.DB.WithContext(ctx).Where("draft_id = ?", in.DraftID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// Delete soft-deletes a draft in the given workspace.
func (s *Service) Delete(ctx context.Context, actor *identity.Principal, workspaceID, draftID uuid.UUID) error {
	role, err := s.roleOf(ctx, workspaceID, actor.ID)
	if err != nil {
		return err
	}
	if !authz.Can(role, authz.DeleteContent) {
		return apperr.ErrForbidden
	}

	res := s.DB.WithContext(ctx).
		Where("draft_id = ? AND workspace_id = ?", draftID, workspaceID).
		Delete(&domain.Draft{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Get returns one draft, scoped to the workspace the caller resolved.
func (s *Service) Get(ctx context.Context, actor *identity.Principal, workspaceID, draftID uuid.UUID) (*domain.Draft, error) {
	role, err := s.roleOf(ctx, workspaceID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.ViewContent) {
		return nil, apperr.ErrForbidden
	}

	var d domain.Draft
	if err := s.DB.WithContext(ctx).
		Where("draft_id = ? AND workspace_id = ?", draftID, workspaceID).
		First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// List returns all drafts in a workspace, newest first.
func (s *Service) List(ctx context.Context, actor *identity.Principal, workspaceID uuid.UUID) ([]domain.Draft, error) {
	role, err := s.roleOf(ctx, workspaceID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.ViewContent) {
		return nil, apperr.ErrForbidden
	}

	var out []domain.Draft
	err = s.DB.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

type ScheduleDraftInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	DraftID     uuid.UUID
	At          time.Time
}

// Schedule marks a draft for publishing at a future time.
func (s *Service) Schedule(ctx context.Context, in ScheduleDraftInput) (*domain.Draft, error) {
	role, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(role, authz.ScheduleContent) {
		return nil, apperr.ErrForbidden
	}
	if in.At.Before(time.Now()) {
		return nil, apperr.ErrInvalidOperation
	}

	res := s.DB.WithContext(ctx).Model(&domain.Draft{}).
		Where("draft_id = ? AND workspace_id = ? AND status <> ?", in.DraftID, in.WorkspaceID, domain.DraftStatusPublished).
		Updates(map[string]interface{}{
			"status":        domain.DraftStatusScheduled,
			"scheduled_for": in.At,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrNotFound
	}

	var d domain.Draft
	if err := s.DB.WithContext(ctx).Where("draft_id = ?", in.DraftID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// DueForPublishing returns scheduled drafts whose time has come. The
// publisher worker (external to this core) consumes this.
func (s *Service) DueForPublishing(ctx context.Context, now time.Time) ([]domain.Draft, error) {
	var out []domain.Draft
	err := s.DB.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", domain.DraftStatusScheduled, now).
		Order("scheduled_for ASC").
		Find(&out).Error
	return out, err
}

type MoveDraftInput struct {
	Actor             *identity.Principal
	DraftID           uuid.UUID
	SourceWorkspaceID uuid.UUID
	TargetWorkspaceID uuid.UUID
}

// Move reassigns a draft from one workspace to another. Preconditions:
// the draft currently belongs to the source, the actor is a member of
// BOTH workspaces, and source differs from target (a no-op move surfaces
// a client bug instead of silently succeeding). The reassignment is one
// conditional UPDATE keyed on (draft_id, source workspace), so a stale
// source id or a concurrent move loses with no partial state.
func (s *Service) Move(ctx context.Context, in MoveDraftInput) (*domain.Draft, error) {
	if in.SourceWorkspaceID == in.TargetWorkspaceID {
		return nil, apperr.ErrInvalidOperation
	}

	srcRole, err := s.roleOf(ctx, in.SourceWorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(srcRole, authz.EditContent) {
		return nil, apperr.ErrForbidden
	}
	tgtRole, err := s.roleOf(ctx, in.TargetWorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(tgtRole, authz.CreateContent) {
		return nil, apperr.ErrForbidden
	}

	var d domain.Draft
	if err := s.DB.WithContext(ctx).Where("draft_id = ?", in.DraftID).First(&d).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if d.WorkspaceID != in.SourceWorkspaceID {
		return nil, apperr.ErrNotFound
	}

	res := s.DB.WithContext(ctx).Model(&domain.Draft{}).
		Where("draft_id = ? AND workspace_id = ?", in.DraftID, in.SourceWorkspaceID).
		Updates(map[string]interface{}{
			"workspace_id": in.TargetWorkspaceID,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrConflict
	}

	if err := s.DB.WithContext(ctx).Where("draft_id = ?", in.DraftID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
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
