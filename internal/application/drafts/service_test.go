package drafts

import (
	"context"
	"testing"
	"time"

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

func setupDraftTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Workspace{}, &domain.Membership{}, &domain.Draft{}))
	return &Service{DB: db}, db
}

func seedWorkspace(t *testing.T, db *gorm.DB, userID uuid.UUID, role string) uuid.UUID {
	ws := &domain.Workspace{Name: "ws", Plan: domain.PlanStarter, OwnerID: uuid.New()}
	require.NoError(t, db.Create(ws).Error)
	require.NoError(t, db.Create(&domain.Membership{WorkspaceID: ws.WorkspaceID, UserID: userID, Role: role}).Error)
	return ws.WorkspaceID
}

func principal(id uuid.UUID) *identity.Principal {
	return &identity.Principal{ID: id, Email: "user@example.com"}
}

func TestCreate_EditorCanCreate(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)

	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Title: "  Post  ", Body: "Hello LinkedIn",
	})
	require.NoError(t, err)
	assert.Equal(t, "Post", d.Title)
	assert.Equal(t, domain.DraftStatusDraft, d.Status)
	assert.Equal(t, userID, d.CreatedBy)
}

func TestCreate_ViewerForbidden(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Viewer)

	_, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Body: "text",
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreate_EmptyBodyRejected(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)

	_, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Body: "   ",
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestEdit_OnlyAllowedFields(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)
	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Title: "a", Body: "b",
	})
	require.NoError(t, err)

	updated, err := svc.Edit(context.Background(), EditDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, DraftID: d.DraftID,
		Fields: map[string]interface{}{"title": "new title", "status": domain.DraftStatusPublished},
	})
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, domain.DraftStatusDraft, updated.Status)
}

func TestEdit_NoValidFieldsRejected(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)

	_, err := svc.Edit(context.Background(), EditDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, DraftID: uuid.New(),
		Fields: map[string]interface{}{"workspace_id": uuid.New().String()},
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestEdit_WrongWorkspaceNotFound(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsA := seedWorkspace(t, db, userID, authz.Editor)
	wsB := seedWorkspace(t, db, userID, authz.Editor)
	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsA, Body: "b",
	})
	require.NoError(t, err)

	_, err = svc.Edit(context.Background(), EditDraftInput{
		Actor: principal(userID), WorkspaceID: wsB, DraftID: d.DraftID,
		Fields: map[string]interface{}{"title": "hijack"},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_EditorCanDelete(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)
	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Body: "b",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), principal(userID), wsID, d.DraftID))
	_, err = svc.Get(context.Background(), principal(userID), wsID, d.DraftID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSchedule_FutureTime(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)
	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Body: "b",
	})
	require.NoError(t, err)

	at := time.Now().Add(2 * time.Hour)
	scheduled, err := svc.Schedule(context.Background(), ScheduleDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, DraftID: d.DraftID, At: at,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DraftStatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.ScheduledFor)
	assert.WithinDuration(t, at, *scheduled.ScheduledFor, time.Second)
}

func TestSchedule_PastTimeRejected(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)
	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Body: "b",
	})
	require.NoError(t, err)

	_, err = svc.Schedule(context.Background(), ScheduleDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, DraftID: d.DraftID, At: time.Now().Add(-time.Minute),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestSchedule_PublishedDraftExcluded(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)
	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, Body: "b",
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&domain.Draft{}).Where("draft_id = ?", d.DraftID).
		Update("status", domain.DraftStatusPublished).Error)

	_, err = svc.Schedule(context.Background(), ScheduleDraftInput{
		Actor: principal(userID), WorkspaceID: wsID, DraftID: d.DraftID, At: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDueForPublishing(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)

	mkScheduled := func(body string, at time.Time) {
		d, err := svc.Create(context.Background(), CreateDraftInput{
			Actor: principal(userID), WorkspaceID: wsID, Body: body,
		})
		require.NoError(t, err)
		require.NoError(t, db.Model(&domain.Draft{}).Where("draft_id = ?", d.DraftID).
			Updates(map[string]interface{}{"status": domain.DraftStatusScheduled, "scheduled_for": at}).Error)
	}
	mkScheduled("late", time.Now().Add(-time.Minute))
	mkScheduled("early", time.Now().Add(-time.Hour))
	mkScheduled("future", time.Now().Add(time.Hour))

	due, err := svc.DueForPublishing(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].Body)
	assert.Equal(t, "late", due[1].Body)
}

func TestMove_SameWorkspaceRejected(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	wsID := seedWorkspace(t, db, userID, authz.Editor)

	_, err := svc.Move(context.Background(), MoveDraftInput{
		Actor: principal(userID), DraftID: uuid.New(),
		SourceWorkspaceID: wsID, TargetWorkspaceID: wsID,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestMove_NoTargetMembershipLeavesDraft(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	src := seedWorkspace(t, db, userID, authz.Editor)
	other := &domain.Workspace{Name: "other", Plan: domain.PlanStarter, OwnerID: uuid.New()}
	require.NoError(t, db.Create(other).Error)

	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: src, Body: "b",
	})
	require.NoError(t, err)

	_, err = svc.Move(context.Background(), MoveDraftInput{
		Actor: principal(userID), DraftID: d.DraftID,
		SourceWorkspaceID: src, TargetWorkspaceID: other.WorkspaceID,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	var stored domain.Draft
	require.NoError(t, db.Where("draft_id = ?", d.DraftID).First(&stored).Error)
	assert.Equal(t, src, stored.WorkspaceID)
}

func TestMove_ViewerInSourceForbidden(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	src := seedWorkspace(t, db, userID, authz.Viewer)
	tgt := seedWorkspace(t, db, userID, authz.Editor)

	_, err := svc.Move(context.Background(), MoveDraftInput{
		Actor: principal(userID), DraftID: uuid.New(),
		SourceWorkspaceID: src, TargetWorkspaceID: tgt,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMove_DraftNotInSourceNotFound(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	src := seedWorkspace(t, db, userID, authz.Editor)
	tgt := seedWorkspace(t, db, userID, authz.Editor)
	third := seedWorkspace(t, db, userID, authz.Editor)

	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: third, Body: "b",
	})
	require.NoError(t, err)

	_, err = svc.Move(context.Background(), MoveDraftInput{
		Actor: principal(userID), DraftID: d.DraftID,
		SourceWorkspaceID: src, TargetWorkspaceID: tgt,
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMove_Success(t *testing.T) {
	svc, db := setupDraftTest(t)
	userID := uuid.New()
	src := seedWorkspace(t, db, userID, authz.Editor)
	tgt := seedWorkspace(t, db, userID, authz.Editor)

	d, err := svc.Create(context.Background(), CreateDraftInput{
		Actor: principal(userID), WorkspaceID: src, Body: "b",
	})
	require.NoError(t, err)

	moved, err := svc.Move(context.Background(), MoveDraftInput{
		Actor: principal(userID), DraftID: d.DraftID,
		SourceWorkspaceID: src, TargetWorkspaceID: tgt,
	})
	require.NoError(t, err)
	assert.Equal(t, tgt, moved.WorkspaceID)

	list, err := svc.List(context.Background(), principal(userID), src)
	require.NoError(t, err)
	assert.Empty(t, list)
}
