package membership

import (
	"context"
	"math/rand"
	"testing"

	memPolicies "voicepost-backend/internal/application/policies/membership"
	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/apperr"
	"voicepost-backend/internal/pkg/authz"
	"voicepost-backend/internal/pkg/identity"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	wsID     uuid.UUID
	ownerID  uuid.UUID
	adminID  uuid.UUID
	editorID uuid.UUID
	viewerID uuid.UUID
}

func setupMembershipTest(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Workspace{}, &domain.Membership{}))

	f := &fixture{
		svc:      &Service{DB: db},
		db:       db,
		ownerID:  uuid.New(),
		adminID:  uuid.New(),
		editorID: uuid.New(),
		viewerID: uuid.New(),
	}
	ws := &domain.Workspace{Name: "team", Plan: domain.PlanStarter, OwnerID: f.ownerID}
	require.NoError(t, db.Create(ws).Error)
	f.wsID = ws.WorkspaceID
	for id, role := range map[uuid.UUID]string{
		f.ownerID:  authz.Owner,
		f.adminID:  authz.Admin,
		f.editorID: authz.Editor,
		f.viewerID: authz.Viewer,
	} {
		require.NoError(t, db.Create(&domain.Membership{WorkspaceID: f.wsID, UserID: id, Role: role}).Error)
	}
	return f
}

func actor(id uuid.UUID) *identity.Principal {
	return &identity.Principal{ID: id, Email: id.String() + "@example.com"}
}

func (f *fixture) roleInDB(t *testing.T, userID uuid.UUID) string {
	var m domain.Membership
	require.NoError(t, f.db.Where("workspace_id = ? AND user_id = ?", f.wsID, userID).First(&m).Error)
	return m.Role
}

func (f *fixture) ownerCount(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&domain.Membership{}).
		Where("workspace_id = ? AND role = ?", f.wsID, authz.Owner).Count(&n).Error)
	return n
}

func TestChangeRole_OwnerPromotesEditor(t *testing.T) {
	f := setupMembershipTest(t)
	m, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, TargetUserID: f.editorID, Role: authz.Admin,
	})
	require.NoError(t, err)
	assert.Equal(t, authz.Admin, m.Role)
	assert.Equal(t, authz.Admin, f.roleInDB(t, f.editorID))
}

func TestChangeRole_EditorForbidden(t *testing.T) {
	f := setupMembershipTest(t)
	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.editorID), WorkspaceID: f.wsID, TargetUserID: f.viewerID, Role: authz.Editor,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChangeRole_NonMemberForbidden(t *testing.T) {
	f := setupMembershipTest(t)
	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(uuid.New()), WorkspaceID: f.wsID, TargetUserID: f.viewerID, Role: authz.Editor,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChangeRole_OwnRoleRejected(t *testing.T) {
	f := setupMembershipTest(t)
	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.adminID), WorkspaceID: f.wsID, TargetUserID: f.adminID, Role: authz.Viewer,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
	assert.Equal(t, authz.Admin, f.roleInDB(t, f.adminID))
}

func TestChangeRole_OwnerTargetShielded(t *testing.T) {
	f := setupMembershipTest(t)
	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.adminID), WorkspaceID: f.wsID, TargetUserID: f.ownerID, Role: authz.Viewer,
	})
	assert.ErrorIs(t, err, memPolicies.ErrOwnerCannotBeModified)
	assert.Equal(t, authz.Owner, f.roleInDB(t, f.ownerID))
}

func TestChangeRole_OwnerRoleOnlyViaTransfer(t *testing.T) {
	f := setupMembershipTest(t)
	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, TargetUserID: f.editorID, Role: authz.Owner,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidRole)
	assert.Equal(t, authz.Editor, f.roleInDB(t, f.editorID))
}

func TestChangeRole_AdminCannotTouchAdmin(t *testing.T) {
	f := setupMembershipTest(t)
	otherAdmin := uuid.New()
	require.NoError(t, f.db.Create(&domain.Membership{WorkspaceID: f.wsID, UserID: otherAdmin, Role: authz.Admin}).Error)

	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.adminID), WorkspaceID: f.wsID, TargetUserID: otherAdmin, Role: authz.Viewer,
	})
	assert.ErrorIs(t, err, memPolicies.ErrAdminsCannotTouchAdmins)
}

func TestChangeRole_UnknownTarget(t *testing.T) {
	f := setupMembershipTest(t)
	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, TargetUserID: uuid.New(), Role: authz.Viewer,
	})
	assert.ErrorIs(t, err, apperr.ErrNotAMember)
}

func TestChangeRole_InvalidRole(t *testing.T) {
	f := setupMembershipTest(t)
	_, err := f.svc.ChangeRole(context.Background(), ChangeRoleInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, TargetUserID: f.viewerID, Role: "superuser",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidRole)
}

func TestRemoveMember_AdminRemovesViewer(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.RemoveMember(context.Background(), RemoveMemberInput{
		Actor: actor(f.adminID), WorkspaceID: f.wsID, TargetUserID: f.viewerID,
	})
	require.NoError(t, err)

	var n int64
	require.NoError(t, f.db.Model(&domain.Membership{}).
		Where("workspace_id = ? AND user_id = ?", f.wsID, f.viewerID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestRemoveMember_SelfRejected(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.RemoveMember(context.Background(), RemoveMemberInput{
		Actor: actor(f.adminID), WorkspaceID: f.wsID, TargetUserID: f.adminID,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestRemoveMember_OwnerShielded(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.RemoveMember(context.Background(), RemoveMemberInput{
		Actor: actor(f.adminID), WorkspaceID: f.wsID, TargetUserID: f.ownerID,
	})
	assert.ErrorIs(t, err, memPolicies.ErrOwnerCannotBeModified)
	assert.Equal(t, authz.Owner, f.roleInDB(t, f.ownerID))
}

func TestTransferOwnership_SwapsRoles(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, NewOwnerUserID: f.editorID,
	})
	require.NoError(t, err)

	assert.Equal(t, authz.Owner, f.roleInDB(t, f.editorID))
	assert.Equal(t, authz.Admin, f.roleInDB(t, f.ownerID))
	assert.EqualValues(t, 1, f.ownerCount(t))

	var ws domain.Workspace
	require.NoError(t, f.db.Where("workspace_id = ?", f.wsID).First(&ws).Error)
	assert.Equal(t, f.editorID, ws.OwnerID)
}

func TestTransferOwnership_ToSelfRejected(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, NewOwnerUserID: f.ownerID,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestTransferOwnership_NonOwnerForbidden(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
		Actor: actor(f.adminID), WorkspaceID: f.wsID, NewOwnerUserID: f.editorID,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, authz.Owner, f.roleInDB(t, f.ownerID))
}

func TestTransferOwnership_ToNonMemberChangesNothing(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, NewOwnerUserID: uuid.New(),
	})
	assert.ErrorIs(t, err, apperr.ErrNotAMember)

	assert.Equal(t, authz.Owner, f.roleInDB(t, f.ownerID))
	var ws domain.Workspace
	require.NoError(t, f.db.Where("workspace_id = ?", f.wsID).First(&ws).Error)
	assert.Equal(t, f.ownerID, ws.OwnerID)
}

func TestTransferOwnership_UnknownWorkspace(t *testing.T) {
	f := setupMembershipTest(t)
	err := f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
		Actor: actor(f.ownerID), WorkspaceID: uuid.New(), NewOwnerUserID: f.editorID,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTransferOwnership_OldOwnerCannotTransferTwice(t *testing.T) {
	f := setupMembershipTest(t)
	require.NoError(t, f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, NewOwnerUserID: f.editorID,
	}))

	err := f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
		Actor: actor(f.ownerID), WorkspaceID: f.wsID, NewOwnerUserID: f.adminID,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, authz.Owner, f.roleInDB(t, f.editorID))
	assert.EqualValues(t, 1, f.ownerCount(t))
}

// Random sequences of role changes, removals and transfers never leave the
// workspace with anything other than exactly one owner membership, and the
// owner membership always matches workspaces.owner_id.
func TestMembership_ExactlyOneOwnerUnderRandomOps(t *testing.T) {
	f := setupMembershipTest(t)
	rng := rand.New(rand.NewSource(42))
	members := []uuid.UUID{f.ownerID, f.adminID, f.editorID, f.viewerID}
	roles := []string{authz.Admin, authz.Editor, authz.Viewer, authz.Owner, "bogus"}

	for i := 0; i < 200; i++ {
		a := members[rng.Intn(len(members))]
		b := members[rng.Intn(len(members))]
		switch rng.Intn(3) {
		case 0:
			f.svc.ChangeRole(context.Background(), ChangeRoleInput{
				Actor: actor(a), WorkspaceID: f.wsID, TargetUserID: b, Role: roles[rng.Intn(len(roles))],
			})
		case 1:
			f.svc.TransferOwnership(context.Background(), TransferOwnershipInput{
				Actor: actor(a), WorkspaceID: f.wsID, NewOwnerUserID: b,
			})
		case 2:
			// Removal shrinks the pool; re-add to keep the walk going.
			if err := f.svc.RemoveMember(context.Background(), RemoveMemberInput{
				Actor: actor(a), WorkspaceID: f.wsID, TargetUserID: b,
			}); err == nil {
				require.NoError(t, f.db.Create(&domain.Membership{
					WorkspaceID: f.wsID, UserID: b, Role: authz.Viewer,
				}).Error)
			}
		}

		require.EqualValues(t, 1, f.ownerCount(t), "iteration %d", i)
		var ws domain.Workspace
		require.NoError(t, f.db.Where("workspace_id = ?", f.wsID).First(&ws).Error)
		var ownerMembership domain.Membership
		require.NoError(t, f.db.Where("workspace_id = ? AND role = ?", f.wsID, authz.Owner).
			First(&ownerMembership).Error)
		require.Equal(t, ws.OwnerID, ownerMembership.UserID, "iteration %d", i)
	}
}
