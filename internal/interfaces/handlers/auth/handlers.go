package auth

import (
	"context"
	"errors"

	authsvc "voicepost-backend/internal/application/auth"
	"voicepost-backend/internal/application/emails"
	wssvc "voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/middleware"
	"voicepost-backend/internal/pkg/identity"
	"voicepost-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	DB         *gorm.DB
	UserFinder authsvc.UserFinder
	Workspaces *wssvc.Service
	Mailer     emails.Sender
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// LoginRequest is the POST /auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/v1/auth/login. Authenticates, regenerates the session,
// tracks the session id under user_sessions:<user_id>, sets the cookie.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailPasswordRequired):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, authsvc.ErrInvalidEmail), errors.Is(err, authsvc.ErrIncorrectPassword):
			return response.Error(c, err.Error(), fiber.StatusUnauthorized, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	// Fresh session on every login; the previous workspace selection is
	// re-resolved from memberships rather than trusted.
	sessionID := middleware.RegenerateSessionID(c)
	var wsIDStr *string
	p := &identity.Principal{ID: user.UserID, Email: user.Email, Fullname: user.Fullname}
	if wsID, err := h.Workspaces.Resolve(c.Context(), wssvc.ResolveInput{Principal: p}); err == nil {
		s := wsID.String()
		wsIDStr = &s
	}

	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:      user.UserID.String(),
		Fullname:    user.Fullname,
		Email:       user.Email,
		WorkspaceID: wsIDStr,
	})

	ctx := context.Background()
	if err := h.Rdb.SAdd(ctx, userSessionsPrefix+user.UserID.String(), sessionID).Err(); err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	return response.Success(c, "Login successful", fiber.Map{
		"user": fiber.Map{
			"user_id":      user.UserID.String(),
			"fullname":     user.Fullname,
			"email":        user.Email,
			"workspace_id": wsIDStr,
		},
	}, nil)
}

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register POST /api/v1/auth/register. Creates the account, bootstraps the
// default workspace, starts a session.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Fullname, email and password are required", fiber.StatusBadRequest, nil)
	}

	result, err := authsvc.RegisterUser(c.Context(), h.DB, h.Workspaces, authsvc.RegisterInput{
		Fullname: req.Fullname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrEmailTaken):
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		case errors.Is(err, authsvc.ErrEmailPasswordRequired),
			errors.Is(err, authsvc.ErrInvalidEmail),
			errors.Is(err, authsvc.ErrWeakPassword),
			errors.Is(err, authsvc.ErrInvalidFullname):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		default:
			return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
		}
	}

	sessionID := middleware.RegenerateSessionID(c)
	wsIDStr := result.WorkspaceID.String()
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:      result.User.UserID.String(),
		Fullname:    result.User.Fullname,
		Email:       result.User.Email,
		WorkspaceID: &wsIDStr,
	})

	ctx := context.Background()
	if err := h.Rdb.SAdd(ctx, userSessionsPrefix+result.User.UserID.String(), sessionID).Err(); err != nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	if h.Mailer != nil {
		firstName := result.User.Fullname
		if err := h.Mailer.SendWelcome(ctx, result.User.Email, firstName); err != nil {
			log.Warn().Err(err).Str("email", result.User.Email).Msg("welcome email send failed")
		}
	}

	return response.SuccessCreated(c, "Account created successfully", fiber.Map{
		"user": fiber.Map{
			"user_id":      result.User.UserID.String(),
			"fullname":     result.User.Fullname,
			"email":        result.User.Email,
			"workspace_id": wsIDStr,
		},
	}, nil)
}

// Me GET /api/v1/auth/me returns the current session user.
func (h *Handlers) Me(c *fiber.Ctx) error {
	p, err := identity.FromCtx(c)
	if err != nil {
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	var wsIDStr *string
	if p.WorkspaceID != nil {
		s := p.WorkspaceID.String()
		wsIDStr = &s
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": fiber.Map{
		"user_id":      p.ID.String(),
		"fullname":     p.Fullname,
		"email":        p.Email,
		"workspace_id": wsIDStr,
	}}, nil)
}

// Logout DELETE /api/v1/auth/logout.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	sessionUser := middleware.GetUser(c)

	ctx := context.Background()

	if sessionUser != nil && sessionID != "" {
		if m, ok := sessionUser.(map[string]interface{}); ok {
			if userID, _ := m["user_id"].(string); userID != "" {
				_ = h.Rdb.SRem(ctx, userSessionsPrefix+userID, sessionID).Err()
			}
		}
	}

	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}

	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	if h.Config.IsProduction && !h.Config.AllowCrossSiteDev {
		cookie.Domain = ".voicepost.io"
	}
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
