package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authsvc "voicepost-backend/internal/application/auth"
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/middleware"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	rdb *redis.Client
	mr  *miniredis.Miniredis
}

func setupAuthApp(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Workspace{}, &domain.Membership{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := middleware.SessionConfig{
		Secret:   "test-secret",
		RedisURL: "redis://" + mr.Addr(),
	}
	sessionMW, rdb, err := middleware.Session(cfg)
	require.NoError(t, err)

	h := &Handlers{
		DB:         db,
		UserFinder: &authsvc.GormUserFinder{DB: db},
		Workspaces: &wssvc.Service{DB: db},
		Rdb:        rdb,
		Config:     cfg,
	}

	app := fiber.New()
	app.Use(sessionMW)
	v1 := app.Group("/api/v1/auth")
	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Get("/me", h.Me)
	v1.Delete("/logout", middleware.RequireAuth(), h.Logout)

	return &testEnv{app: app, db: db, rdb: rdb, mr: mr}
}

func jsonReq(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.SessionCookieName {
			return ck
		}
	}
	return nil
}

func registerUser(t *testing.T, env *testEnv, email string) *http.Response {
	resp, err := env.app.Test(jsonReq("POST", "/api/v1/auth/register", fiber.Map{
		"fullname": "Jane Doe",
		"email":    email,
		"password": "s3cret!pass",
	}))
	require.NoError(t, err)
	return resp
}

func TestRegister_CreatesAccountAndSession(t *testing.T) {
	env := setupAuthApp(t)

	resp := registerUser(t, env, "jane@example.com")
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "jane@example.com", user["email"])
	assert.NotEmpty(t, user["workspace_id"])

	ck := sessionCookie(resp)
	require.NotNil(t, ck)
	assert.True(t, strings.HasPrefix(ck.Value, "s:"))
	assert.True(t, ck.HttpOnly)

	sessionID := strings.TrimPrefix(ck.Value, "s:")
	stored, err := env.mr.Get(middleware.SessionRedisPrefix + sessionID)
	require.NoError(t, err)
	assert.Contains(t, stored, "jane@example.com")
}

func TestRegister_DuplicateEmailConflict(t *testing.T) {
	env := setupAuthApp(t)
	registerUser(t, env, "jane@example.com")

	resp := registerUser(t, env, "jane@example.com")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestRegister_WeakPasswordBadRequest(t *testing.T) {
	env := setupAuthApp(t)
	resp, err := env.app.Test(jsonReq("POST", "/api/v1/auth/register", fiber.Map{
		"fullname": "Jane Doe", "email": "jane@example.com", "password": "short",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogin_Success(t *testing.T) {
	env := setupAuthApp(t)
	registerUser(t, env, "jane@example.com")

	resp, err := env.app.Test(jsonReq("POST", "/api/v1/auth/login", fiber.Map{
		"email": "jane@example.com", "password": "s3cret!pass",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.NotEmpty(t, user["workspace_id"], "login resolves a workspace for the session")

	var u domain.User
	require.NoError(t, env.db.Where("email = ?", "jane@example.com").First(&u).Error)
	ck := sessionCookie(resp)
	require.NotNil(t, ck)
	sessionID := strings.TrimPrefix(ck.Value, "s:")
	isMember, err := env.rdb.SIsMember(context.Background(), "user_sessions:"+u.UserID.String(), sessionID).Result()
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestLogin_WrongPasswordUnauthorized(t *testing.T) {
	env := setupAuthApp(t)
	registerUser(t, env, "jane@example.com")

	resp, err := env.app.Test(jsonReq("POST", "/api/v1/auth/login", fiber.Map{
		"email": "jane@example.com", "password": "wrong-pass1!",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_MissingFieldsBadRequest(t *testing.T) {
	env := setupAuthApp(t)
	resp, err := env.app.Test(jsonReq("POST", "/api/v1/auth/login", fiber.Map{"email": "", "password": ""}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMe_WithSession(t *testing.T) {
	env := setupAuthApp(t)
	regResp := registerUser(t, env, "jane@example.com")
	ck := sessionCookie(regResp)
	require.NotNil(t, ck)

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.AddCookie(ck)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "jane@example.com", user["email"])
}

func TestMe_WithoutSessionUnauthorized(t *testing.T) {
	env := setupAuthApp(t)
	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/v1/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogout_ClearsSession(t *testing.T) {
	env := setupAuthApp(t)
	regResp := registerUser(t, env, "jane@example.com")
	ck := sessionCookie(regResp)
	require.NotNil(t, ck)
	sessionID := strings.TrimPrefix(ck.Value, "s:")

	req := httptest.NewRequest("DELETE", "/api/v1/auth/logout", nil)
	req.AddCookie(ck)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	clearCk := sessionCookie(resp)
	require.NotNil(t, clearCk)
	assert.Equal(t, -1, clearCk.MaxAge)

	exists, err := env.rdb.Exists(context.Background(), middleware.SessionRedisPrefix+sessionID).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, exists)

	var u domain.User
	require.NoError(t, env.db.Where("email = ?", "jane@example.com").First(&u).Error)
	members, err := env.rdb.SMembers(context.Background(), "user_sessions:"+u.UserID.String()).Result()
	require.NoError(t, err)
	assert.NotContains(t, members, sessionID)
}
