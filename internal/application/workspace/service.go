package workspace

import (
	"context"
	"strings"

	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"
	"voicepost-backend/internal/pkg/identity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service encapsulates workspace resolution and workspace CRUD.
type Service struct {
	DB *gorm.DB
}

// ResolveInput selects which workspace an operation acts on.
// Precedence: ExplicitID, then SessionID, then the principal's oldest
// workspace. AllowBootstrap is set only by the signup path; every other
// caller gets ErrNoWorkspace when the principal has no memberships.
type ResolveInput struct {
	Principal      *identity.Principal
	ExplicitID     *uuid.UUID
	SessionID      *uuid.UUID
	AllowBootstrap bool
}

// Resolve returns the effective workspace id for the principal.
// An explicit id the principal cannot access fails with ErrForbidden and
// never falls through to a default; a stale session selection falls back
// silently.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (uuid.UUID, error) {
	if in.Principal == nil {
		return uuid.Nil, apperr.ErrUnauthenticated
	}

	if in.ExplicitID != nil {
		ok, err := s.isMember(ctx, *in.ExplicitID, in.Principal.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if !ok {
			return uuid.Nil, apperr.ErrForbidden
		}
		return *in.ExplicitID, nil
	}

	if in.SessionID != nil {
		ok, err := s.isMember(ctx, *in.SessionID, in.Principal.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if ok {
			return *in.SessionID, nil
		}
	}

	var m domain.Membership
	err := s.DB.WithContext(ctx).
		Joins("JOIN workspaces ON workspaces.workspace_id = workspace_members.workspace_id").
		Where("workspace_members.user_id = ?", in.Principal.ID).
		Order("workspaces.created_at ASC").
		First(&m).Error
	if err == nil {
		return m.WorkspaceID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return uuid.Nil, err
	}

	if !in.AllowBootstrap {
		return uuid.Nil, apperr.ErrNoWorkspace
	}
	ws, err := s.createDefault(ctx, in.Principal)
	if err != nil {
		return uuid.Nil, err
	}
	return ws.WorkspaceID, nil
}

// RoleOf returns the principal's role in the workspace, or ErrNotAMember.
func (s *Service) RoleOf(ctx context.Context, workspaceID, userID uuid.UUID) (string, error) {
	var m domain.Membership
	err := s.DB.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return "", apperr.ErrNotAMember
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

func (s *Service) isMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&domain.Membership{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Count(&count).Error
	return count > 0, err
}

// defaultWorkspaceName derives the bootstrap workspace name from the
// email local-part so the same principal always gets the same name.
func defaultWorkspaceName(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	local = strings.TrimSpace(local)
	if local == "" {
		return "My Workspace"
	}
	return local + "'s workspace"
}

// createDefault creates the principal's default workspace with a single
// owner membership. The unique index on workspaces.default_for makes two
// racing signups collapse to one row; a create failure is answered by
// re-querying for the row the other request inserted.
func (s *Service) createDefault(ctx context.Context, p *identity.Principal) (*domain.Workspace, error) {
	ownerID := p.ID
	ws := &domain.Workspace{
		Name:       defaultWorkspaceName(p.Email),
		Plan:       domain.PlanStarter,
		OwnerID:    ownerID,
		DefaultFor: &ownerID,
		Branding:   datatypes.JSONMap{},
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Membership{
			WorkspaceID: ws.WorkspaceID,
			UserID:      ownerID,
			Role:        authz.Owner,
		}).Error
	})
	if err == nil {
		return ws, nil
	}

	// Unique violation on default_for means a concurrent request already
	// created the default workspace; return that one instead of an error.
	var existing domain.Workspace
	if qerr := s.DB.WithContext(ctx).Where("default_for = ?", ownerID).First(&existing).Error; qerr == nil {
		return &existing, nil
	}
	return nil, err
}

// CreateInput mirrors the create-workspace payload.
type CreateInput struct {
	Name string `json:"name"`
	Plan string `json:"plan"`
}

// Create creates a workspace with the principal as sole owner. Principals
// who already belong to a workspace must hold create_workspace there; a
// principal with no memberships at all is creating their first workspace
// and is always allowed.
func (s *Service) Create(ctx context.Context, p *identity.Principal, in CreateInput) (*domain.Workspace, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.ErrInvalidOperation
	}
	plan := in.Plan
	if plan == "" {
		plan = domain.PlanStarter
	}
	if !domain.IsValidPlan(plan) {
		return nil, apperr.ErrInvalidOperation
	}

	current, err := s.Resolve(ctx, ResolveInput{Principal: p, SessionID: p.WorkspaceID})
	if err == nil {
		role, rerr := s.RoleOf(ctx, current, p.ID)
		if rerr != nil {
			return nil, rerr
		}
		if !authz.Can(role, authz.CreateWorkspace) {
			return nil, apperr.ErrForbidden
		}
	} else if err != apperr.ErrNoWorkspace {
		return nil, err
	}

	ws := &domain.Workspace{
		Name:     strings.TrimSpace(in.Name),
		Plan:     plan,
		OwnerID:  p.ID,
		Branding: datatypes.JSONMap{},
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ws).Error; err != nil {
			return err
		}
		return tx.Create(&domain.Membership{
			WorkspaceID: ws.WorkspaceID,
			UserID:      p.ID,
			Role:        authz.Owner,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// MemberInfo is the member projection returned by Get.
type MemberInfo struct {
	UserID   uuid.UUID `json:"user_id"`
	Fullname string    `json:"fullname"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

// Get returns the workspace with its member list. Requires view_content.
func (s *Service) Get(ctx context.Context, p *identity.Principal, workspaceID uuid.UUID) (map[string]interface{}, error) {
	role, err := s.RoleOf(ctx, workspaceID, p.ID)
	if err != nil {
		if err == apperr.ErrNotAMember {
			return nil, apperr.ErrForbidden
		}
		return nil, err
	}
	if !authz.Can(role, authz.ViewContent) {
		return nil, apperr.ErrForbidden
	}

	var ws domain.Workspace
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", workspaceID).First(&ws).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	var members []MemberInfo
	if err := s.DB.WithContext(ctx).
		Model(&domain.Membership{}).
		Select("workspace_members.user_id, users.fullname, users.email, workspace_members.role").
		Joins("JOIN users ON users.user_id = workspace_members.user_id").
		Where("workspace_members.workspace_id = ?", workspaceID).
		Order("workspace_members.created_at ASC").
		Scan(&members).Error; err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"workspace_id":      ws.WorkspaceID,
		"name":              ws.Name,
		"plan":              ws.Plan,
		"credits_remaining": ws.CreditsRemaining,
		"credits_total":     ws.CreditsTotal,
		"owner_id":          ws.OwnerID,
		"branding":          ws.Branding,
		"logo_url":          ws.LogoURL,
		"createdAt":         ws.CreatedAt,
		"updatedAt":         ws.UpdatedAt,
		"members":           members,
	}, nil
}

// Update updates allowed workspace fields. Requires edit_workspace.
func (s *Service) Update(ctx context.Context, p *identity.Principal, workspaceID uuid.UUID, fields map[string]interface{}) (*domain.Workspace, error) {
	role, err := s.RoleOf(ctx, workspaceID, p.ID)
	if err != nil {
		if err == apperr.ErrNotAMember {
			return nil, apperr.ErrForbidden
		}
		return nil, err
	}
	if !authz.Can(role, authz.EditWorkspace) {
		return nil, apperr.ErrForbidden
	}

	allowed := map[string]bool{
		"name":     true,
		"branding": true,
		"logo_url": true,
	}
	valid := make(map[string]interface{})
	for k, v := range fields {
		if allowed[k] {
			valid[k] = v
		}
	}
	if len(valid) == 0 {
		return nil, apperr.ErrInvalidOperation
	}

	result := s.DB.WithContext(ctx).Model(&domain.Workspace{}).
		Where("workspace_id = ?", workspaceID).
		Updates(valid)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperr.ErrNotFound
	}

	var ws domain.Workspace
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", workspaceID).First(&ws).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// Switch verifies membership and returns the workspace id for the session
// to adopt. It never creates a workspace.
func (s *Service) Switch(ctx context.Context, p *identity.Principal, workspaceID uuid.UUID) (uuid.UUID, error) {
	return s.Resolve(ctx, ResolveInput{Principal: p, ExplicitID: &workspaceID})
}

// List returns the principal's workspaces ordered by creation time.
func (s *Service) List(ctx context.Context, p *identity.Principal) ([]domain.Workspace, error) {
	var out []domain.Workspace
	err := s.DB.WithContext(ctx).
		Joins("JOIN workspace_members ON workspace_members.workspace_id = workspaces.workspace_id").
		Where("workspace_members.user_id = ?", p.ID).
		Order("workspaces.created_at ASC").
		Find(&out).Error
	return out, err
}
