package identity

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"voicepost-backend/internal/pkg/apperr"
)

// Principal is the authenticated identity attached to a request. Immutable
// for the request's lifetime; produced only from verified session state.
type Principal struct {
	ID          uuid.UUID
	Email       string
	Fullname    string
	WorkspaceID *uuid.UUID // session's selected workspace, advisory only
}

// Resolve extracts the Principal from a session user value (the
// map[string]interface{} shape the session middleware stores). It is
// idempotent and side-effect-free; a missing or malformed user yields
// apperr.ErrUnauthenticated.
func Resolve(sessionUser interface{}) (*Principal, error) {
	if sessionUser == nil {
		return nil, apperr.ErrUnauthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	rawID, _ := m["user_id"].(string)
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, apperr.ErrUnauthenticated
	}
	p := &Principal{
		ID:       id,
		Email:    str(m["email"]),
		Fullname: str(m["fullname"]),
	}
	if w, ok := m["workspace_id"]; ok && w != nil {
		if s, ok := w.(string); ok && s != "" {
			if wid, err := uuid.Parse(s); err == nil {
				p.WorkspaceID = &wid
			}
		}
	}
	return p, nil
}

// FromCtx resolves the Principal from the Fiber context's session locals.
func FromCtx(c *fiber.Ctx) (*Principal, error) {
	return Resolve(c.Locals("user"))
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
