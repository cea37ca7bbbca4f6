package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors for every expected, caller-recoverable condition.
// Services return these (or errors wrapping them); handlers translate
// them to HTTP via StatusCode/Code. Anything else is treated as an
// infrastructure failure and surfaces as 500.
var (
	ErrUnauthenticated  = errors.New("Not authenticated")
	ErrForbidden        = errors.New("Forbidden")
	ErrNotFound         = errors.New("Not found")
	ErrInvalidState     = errors.New("Invalid state for this operation")
	ErrExpired          = errors.New("Expired")
	ErrInvalidOperation = errors.New("Invalid operation")
	ErrConflict         = errors.New("Conflict")
	ErrNoWorkspace      = errors.New("No workspace available for this user")
	ErrNotAMember       = errors.New("User is not a member of this workspace")
	ErrInvalidRole      = errors.New("Invalid role")
)

var statusCodes = map[error]int{
	ErrUnauthenticated:  fiber.StatusUnauthorized,
	ErrForbidden:        fiber.StatusForbidden,
	ErrNotFound:         fiber.StatusNotFound,
	ErrInvalidState:     fiber.StatusConflict,
	ErrExpired:          fiber.StatusBadRequest,
	ErrInvalidOperation: fiber.StatusBadRequest,
	ErrConflict:         fiber.StatusConflict,
	ErrNoWorkspace:      fiber.StatusNotFound,
	ErrNotAMember:       fiber.StatusBadRequest,
	ErrInvalidRole:      fiber.StatusBadRequest,
}

var machineCodes = map[error]string{
	ErrUnauthenticated:  "unauthenticated",
	ErrForbidden:        "forbidden",
	ErrNotFound:         "not_found",
	ErrInvalidState:     "invalid_state",
	ErrExpired:          "expired",
	ErrInvalidOperation: "invalid_operation",
	ErrConflict:         "conflict",
	ErrNoWorkspace:      "no_workspace",
	ErrNotAMember:       "not_a_member",
	ErrInvalidRole:      "invalid_role",
}

// StatusCode maps an error to its HTTP status. Unknown errors map to 500
// so that infrastructure failures are never presented as client mistakes.
func StatusCode(err error) int {
	for sentinel, code := range statusCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return fiber.StatusInternalServerError
}

// Code returns the stable machine-readable code for an error, or
// "internal" for anything outside the taxonomy.
func Code(err error) string {
	for sentinel, code := range machineCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return "internal"
}

// IsExpected reports whether err belongs to the taxonomy (i.e. is a
// condition the caller can act on rather than an infrastructure failure).
func IsExpected(err error) bool {
	_, ok := machineCodes[err]
	if ok {
		return true
	}
	for sentinel := range machineCodes {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
