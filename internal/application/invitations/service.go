package invitations

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	invPolicies "voicepost-backend/internal/application/policies/invitations"
	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"
	"voicepost-backend/internal/pkg/identity"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const day = 24 * time.Hour
const inviteExpiry = 7 * day

// InviteMailer dispatches invitation emails. Nil disables dispatch; a send
// failure never fails the invite itself.
type InviteMailer interface {
	SendInvite(ctx context.Context, toEmail, inviteLink, workspaceName, role, subject string) error
}

type Service struct {
	DB            *gorm.DB
	Mailer        InviteMailer
	InviteBaseURL string
}

type SendInviteInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	Email       string
	Role        string
}

// SendInvite creates (or refreshes) a pending invitation for an email.
// Requires invite_member in the workspace; the proposed role may never be
// owner. Re-inviting an email with a non-pending invitation reuses the
// row with a fresh token and expiry.
func (s *Service) SendInvite(ctx context.Context, in SendInviteInput) (*domain.Invitation, error) {
	actorRole, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actorRole, authz.InviteMember) {
		return nil, apperr.ErrForbidden
	}
	if err := invPolicies.ValidateInviteRole(in.Role); err != nil {
		return nil, err
	}
	if err := invPolicies.ValidateInviteCreation(s.DB.WithContext(ctx), in.WorkspaceID, in.Email, in.Actor.Email); err != nil {
		return nil, err
	}

	normalized := strings.ToLower(in.Email)
	token, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(inviteExpiry)

	var inv *domain.Invitation
	var existing domain.Invitation
	err = s.DB.WithContext(ctx).Where("workspace_id = ? AND email = ?", in.WorkspaceID, normalized).First(&existing).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		inv = &domain.Invitation{
			WorkspaceID: in.WorkspaceID,
			Email:       normalized,
			Role:        in.Role,
			InviteToken: token,
			ExpiresAt:   expiresAt,
			InvitedBy:   in.Actor.ID,
			Status:      domain.InviteStatusPending,
		}
		if err := s.DB.WithContext(ctx).Create(inv).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		existing.InviteToken = token
		existing.Role = in.Role
		existing.Status = domain.InviteStatusPending
		existing.ExpiresAt = expiresAt
		existing.InvitedBy = in.Actor.ID
		if err := s.DB.WithContext(ctx).Save(&existing).Error; err != nil {
			return nil, err
		}
		inv = &existing
	}

	s.dispatchEmail(ctx, inv, "You have been invited to join a workspace on VoicePost")
	return inv, nil
}

type ResendInviteInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	Email       string
}

// ResendInvite refreshes the token of a pending invitation, at most once
// per day.
func (s *Service) ResendInvite(ctx context.Context, in ResendInviteInput) (*domain.Invitation, error) {
	actorRole, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actorRole, authz.InviteMember) {
		return nil, apperr.ErrForbidden
	}

	normalized := strings.ToLower(in.Email)
	var inv domain.Invitation
	if err := s.DB.WithContext(ctx).Where("email = ? AND workspace_id = ?", normalized, in.WorkspaceID).First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if inv.Status != domain.InviteStatusPending {
		return nil, apperr.ErrInvalidState
	}
	if time.Since(inv.UpdatedAt) < day {
		return nil, apperr.ErrInvalidOperation
	}

	token, err := randomHex(32)
	if err != nil {
		return nil, err
	}
	inv.InviteToken = token
	inv.Status = domain.InviteStatusPending
	inv.ExpiresAt = time.Now().Add(inviteExpiry)
	if err := s.DB.WithContext(ctx).Save(&inv).Error; err != nil {
		return nil, err
	}

	s.dispatchEmail(ctx, &inv, "Reminder: your VoicePost workspace invitation")
	return &inv, nil
}

type AcceptInviteInput struct {
	Actor *identity.Principal
	Token string
}

type AcceptInviteResult struct {
	WorkspaceID   string `json:"workspace_id"`
	Role          string `json:"role"`
	WorkspaceName string `json:"workspace_name"`
}

// AcceptInvite redeems a token for the logged-in user. The membership
// upsert and the status flip happen in one transaction; the status update
// is conditional on the row still being pending, so a concurrent double
// accept loses with ErrConflict instead of duplicating a membership.
func (s *Service) AcceptInvite(ctx context.Context, in AcceptInviteInput) (*AcceptInviteResult, error) {
	var inv domain.Invitation
	if err := s.DB.WithContext(ctx).Where("invite_token = ?", in.Token).First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	if err := invPolicies.ValidateInviteAcceptance(&inv, in.Actor.Email); err != nil {
		if err == apperr.ErrExpired {
			inv.Status = domain.InviteStatusExpired
			s.DB.WithContext(ctx).Save(&inv)
		}
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Invitation{}).
			Where("invite_id = ? AND status = ?", inv.InviteID, domain.InviteStatusPending).
			Update("status", domain.InviteStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.ErrConflict
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).Create(&domain.Membership{
			WorkspaceID: inv.WorkspaceID,
			UserID:      in.Actor.ID,
			Role:        inv.Role,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	var ws domain.Workspace
	wsName := ""
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", inv.WorkspaceID).First(&ws).Error; err == nil {
		wsName = ws.Name
	}

	return &AcceptInviteResult{
		WorkspaceID:   inv.WorkspaceID.String(),
		Role:          inv.Role,
		WorkspaceName: wsName,
	}, nil
}

type RevokeInviteInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	Email       string
}

// RevokeInvite marks a pending invitation revoked.
func (s *Service) RevokeInvite(ctx context.Context, in RevokeInviteInput) (*domain.Invitation, error) {
	actorRole, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actorRole, authz.InviteMember) {
		return nil, apperr.ErrForbidden
	}

	normalized := strings.ToLower(in.Email)
	var inv domain.Invitation
	if err := s.DB.WithContext(ctx).
		Where("email = ? AND workspace_id = ? AND status = ?", normalized, in.WorkspaceID, domain.InviteStatusPending).
		First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	inv.Status = domain.InviteStatusRevoked
	if err := s.DB.WithContext(ctx).Save(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

type ListInvitesInput struct {
	Actor       *identity.Principal
	WorkspaceID uuid.UUID
	Status      string
}

// ListWorkspaceInvitations returns invitations for a workspace, newest
// first, optionally filtered by status.
func (s *Service) ListWorkspaceInvitations(ctx context.Context, in ListInvitesInput) ([]domain.Invitation, error) {
	actorRole, err := s.roleOf(ctx, in.WorkspaceID, in.Actor.ID)
	if err != nil {
		return nil, err
	}
	if !authz.Can(actorRole, authz.ViewContent) {
		return nil, apperr.ErrForbidden
	}

	q := s.DB.WithContext(ctx).Where("workspace_id = ?", in.WorkspaceID)
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}
	var invitations []domain.Invitation
	if err := q.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, err
	}
	return invitations, nil
}

type CheckTokenResult struct {
	Email         string `json:"email"`
	Role          string `json:"role"`
	WorkspaceID   string `json:"workspace_id"`
	Valid         bool   `json:"valid"`
	WorkspaceName string `json:"workspace_name"`
}

// CheckInvitationToken validates a token for the public pre-signup page.
// Lazily marks expired invitations.
func (s *Service) CheckInvitationToken(ctx context.Context, token string) (*CheckTokenResult, error) {
	if token == "" {
		return nil, apperr.ErrInvalidOperation
	}

	var inv domain.Invitation
	if err := s.DB.WithContext(ctx).Where("invite_token = ?", token).First(&inv).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	if inv.Status != domain.InviteStatusPending {
		return nil, apperr.ErrInvalidState
	}
	if inv.ExpiresAt.Before(time.Now()) {
		inv.Status = domain.InviteStatusExpired
		s.DB.WithContext(ctx).Save(&inv)
		return nil, apperr.ErrExpired
	}

	var ws domain.Workspace
	wsName := ""
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", inv.WorkspaceID).First(&ws).Error; err == nil {
		wsName = ws.Name
	}

	return &CheckTokenResult{
		Email:         inv.Email,
		Role:          inv.Role,
		WorkspaceID:   inv.WorkspaceID.String(),
		Valid:         true,
		WorkspaceName: wsName,
	}, nil
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

func (s *Service) dispatchEmail(ctx context.Context, inv *domain.Invitation, subject string) {
	if s.Mailer == nil {
		return
	}
	var ws domain.Workspace
	wsName := "your workspace"
	if err := s.DB.WithContext(ctx).Where("workspace_id = ?", inv.WorkspaceID).First(&ws).Error; err == nil {
		wsName = ws.Name
	}
	link := s.InviteBaseURL + "/invite?token=" + inv.InviteToken
	if err := s.Mailer.SendInvite(ctx, inv.Email, link, wsName, inv.Role, subject); err != nil {
		log.Warn().Err(err).Str("email", inv.Email).Msg("invite email dispatch failed")
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
