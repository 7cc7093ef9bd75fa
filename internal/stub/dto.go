package stub

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse mirrors the WordPress REST error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

// TagRequest is the body of the tag routes.
type TagRequest struct {
	TagIDs []int64 `json:"tag_ids"`
}

// NoteRequest is the body of POST /contacts/:id/notes.
type NoteRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
}

// TrackedEvent is what gets forwarded for every accepted tracking call.
type TrackedEvent struct {
	ID         string         `json:"id"`
	Event      string         `json:"event"`
	ContactID  int64          `json:"contact_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
	Checks   map[string]string `json:"checks"`
	Contacts int               `json:"contacts"`
}

// Error codes
const (
	ErrCodeNoRoute       = "rest_no_route"
	ErrCodeInvalidJSON   = "rest_invalid_json"
	ErrCodeInvalidParam  = "rest_invalid_param"
	ErrCodeForbidden     = "rest_forbidden"
	ErrCodeNoContact     = "no_contact"
	ErrCodeInvalidEmail  = "invalid_email"
	ErrCodeMissingEvent  = "missing_event"
	ErrCodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response
func NewErrorResponse(status int, code, message string) *ErrorResponse {
	resp := &ErrorResponse{Code: code, Message: message}
	resp.Data.Status = status
	return resp
}

func respondError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(NewErrorResponse(status, code, message))
}

func envelope(data any, message string) fiber.Map {
	out := fiber.Map{"success": true, "data": data}
	if message != "" {
		out["message"] = message
	}
	return out
}
