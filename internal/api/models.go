package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(Envelope{Success: false, Error: message})
}

// CreateSessionRequest is the body of POST /api/sessions. All fields are
// optional; missing pieces are derived.
type CreateSessionRequest struct {
	Title        string `json:"title"`
	SessionID    string `json:"sessionId"`
	FirstMessage string `json:"firstMessage"`
}

// CreateSessionResponse is the data payload of POST /api/sessions.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}

// DeleteSessionResponse is the data payload of DELETE /api/sessions/:id.
type DeleteSessionResponse struct {
	Deleted bool `json:"deleted"`
}

// ExtractRequest is the body of POST /api/chat/:sessionId/extract.
type ExtractRequest struct {
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat/:sessionId/chat.
type ChatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

// UserStateRequest guards POST /api/user/state: the body must at least be
// a JSON object; it is stored opaquely otherwise.
type UserStateRequest struct {
	Components json.RawMessage `json:"components"`
	Templates  json.RawMessage `json:"templates"`
	Theme      json.RawMessage `json:"theme"`
}

// DemoLoginResponse is the data payload of POST /api/auth/demo.
type DemoLoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
