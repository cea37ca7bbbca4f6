package workspace

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/middleware"
	"voicepost-backend/internal/pkg/authz"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newApp wires the workspace routes with a fake session injected via
// Locals, the same shape the Redis session middleware produces.
func newApp(t *testing.T, db *gorm.DB, userID uuid.UUID, sessionWsID *uuid.UUID) *fiber.App {
	h := &Handlers{Service: &wssvc.Service{DB: db}}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		user := map[string]interface{}{
			"user_id":  userID.String(),
			"fullname": "Jane Doe",
			"email":    "jane@example.com",
		}
		if sessionWsID != nil {
			user["workspace_id"] = sessionWsID.String()
		}
		c.Locals("session_data", map[string]interface{}{"user": user})
		c.Locals("user", user)
		return c.Next()
	})
	app.Use(middleware.RequireAuth())

	g := app.Group("/api/v1/workspaces")
	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/current", h.View)
	g.Patch("/current", h.Update)
	g.Post("/switch", h.Switch)
	return app
}

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Workspace{}, &domain.Membership{}))
	return db
}

func seedMember(t *testing.T, db *gorm.DB, userID uuid.UUID, role string) uuid.UUID {
	ws := &domain.Workspace{Name: "ws", Plan: domain.PlanStarter, OwnerID: uuid.New()}
	require.NoError(t, db.Create(ws).Error)
	require.NoError(t, db.Create(&domain.Membership{WorkspaceID: ws.WorkspaceID, UserID: userID, Role: role}).Error)
	return ws.WorkspaceID
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func do(t *testing.T, app *fiber.App, method, target string, body interface{}) *http.Response {
	var reader io.Reader
	if body != nil {
		reader = jsonBody(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestView_ExplicitQueryParamWins(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	wsA := seedMember(t, db, userID, authz.Owner)
	wsB := seedMember(t, db, userID, authz.Viewer)

	app := newApp(t, db, userID, &wsA)
	resp := do(t, app, "GET", "/api/v1/workspaces/current?workspace_id="+wsB.String(), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data := out["data"].(map[string]interface{})
	assert.Equal(t, wsB.String(), data["workspace_id"])
}

func TestView_ExplicitNonMemberForbidden(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	wsA := seedMember(t, db, userID, authz.Owner)

	foreign := &domain.Workspace{Name: "other", Plan: domain.PlanStarter, OwnerID: uuid.New()}
	require.NoError(t, db.Create(foreign).Error)

	app := newApp(t, db, userID, &wsA)
	resp := do(t, app, "GET", "/api/v1/workspaces/current?workspace_id="+foreign.WorkspaceID.String(), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestView_FallsBackToSessionSelection(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	seedMember(t, db, userID, authz.Owner)
	wsB := seedMember(t, db, userID, authz.Editor)

	app := newApp(t, db, userID, &wsB)
	resp := do(t, app, "GET", "/api/v1/workspaces/current", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	data := out["data"].(map[string]interface{})
	assert.Equal(t, wsB.String(), data["workspace_id"])
}

func TestView_NoWorkspacesNotFound(t *testing.T) {
	db := setupDB(t)
	app := newApp(t, db, uuid.New(), nil)
	resp := do(t, app, "GET", "/api/v1/workspaces/current", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestView_InvalidExplicitIDBadRequest(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	seedMember(t, db, userID, authz.Owner)
	app := newApp(t, db, userID, nil)
	resp := do(t, app, "GET", "/api/v1/workspaces/current?workspace_id=not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreate_RequiresName(t *testing.T) {
	db := setupDB(t)
	app := newApp(t, db, uuid.New(), nil)
	resp := do(t, app, "POST", "/api/v1/workspaces/", fiber.Map{"plan": domain.PlanStarter})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreate_ReturnsCreated(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	app := newApp(t, db, userID, nil)
	resp := do(t, app, "POST", "/api/v1/workspaces/", fiber.Map{"name": "Agency HQ"})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var m domain.Membership
	require.NoError(t, db.Where("user_id = ?", userID).First(&m).Error)
	assert.Equal(t, authz.Owner, m.Role)
}

func TestSwitch_NonMemberForbidden(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	seedMember(t, db, userID, authz.Owner)
	foreign := &domain.Workspace{Name: "other", Plan: domain.PlanStarter, OwnerID: uuid.New()}
	require.NoError(t, db.Create(foreign).Error)

	app := newApp(t, db, userID, nil)
	resp := do(t, app, "POST", "/api/v1/workspaces/switch", fiber.Map{"workspace_id": foreign.WorkspaceID.String()})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSwitch_MemberOK(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	wsA := seedMember(t, db, userID, authz.Owner)
	wsB := seedMember(t, db, userID, authz.Viewer)

	app := newApp(t, db, userID, &wsA)
	resp := do(t, app, "POST", "/api/v1/workspaces/switch", fiber.Map{"workspace_id": wsB.String()})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUpdate_ViewerForbidden(t *testing.T) {
	db := setupDB(t)
	userID := uuid.New()
	wsID := seedMember(t, db, userID, authz.Viewer)

	app := newApp(t, db, userID, &wsID)
	resp := do(t, app, "PATCH", "/api/v1/workspaces/current", fiber.Map{"name": "renamed"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
