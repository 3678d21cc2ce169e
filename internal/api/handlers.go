package api

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/architect-studio/internal/appstate"
	"github.com/p-blackswan/architect-studio/internal/chat"
	"github.com/p-blackswan/architect-studio/internal/extract"
	"github.com/p-blackswan/architect-studio/internal/metrics"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	controller *appstate.Controller
	gateway    *extract.Gateway
	chatAgent  *chat.Agent
	metrics    *metrics.Metrics
	auth       AuthConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewHandlers creates a new Handlers instance. gateway and chatAgent may
// be nil when no LLM is configured; their routes then answer 503.
func NewHandlers(
	controller *appstate.Controller,
	gateway *extract.Gateway,
	chatAgent *chat.Agent,
	m *metrics.Metrics,
	auth AuthConfig,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		controller: controller,
		gateway:    gateway,
		chatAgent:  chatAgent,
		metrics:    m,
		auth:       auth,
		logger:     logger.With().Str("component", "handlers").Logger(),
		now:        time.Now,
	}
}

// DemoLogin handles POST /api/auth/demo.
func (h *Handlers) DemoLogin(c *fiber.Ctx) error {
	token, err := h.auth.IssueToken(h.auth.DemoUserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to issue demo token")
		return fail(c, fiber.StatusInternalServerError, "Login failed")
	}
	return ok(c, DemoLoginResponse{Token: token, UserID: h.auth.DemoUserID})
}

// GetUserState handles GET /api/user/state.
func (h *Handlers) GetUserState(c *fiber.Ctx) error {
	state, err := h.controller.GetUserState(userIDFrom(c))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read user state")
		return fail(c, fiber.StatusInternalServerError, "State sync failed")
	}
	if state == nil {
		// Explicit null keeps the data key on the wire for empty stores.
		return ok(c, json.RawMessage("null"))
	}
	return ok(c, state)
}

// SetUserState handles POST /api/user/state. The blob is stored wholesale;
// the body only has to be a JSON object.
func (h *Handlers) SetUserState(c *fiber.Ctx) error {
	body := c.Body()
	var probe UserStateRequest
	if err := json.Unmarshal(body, &probe); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid state payload")
	}

	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	if err := h.controller.SetUserState(userIDFrom(c), raw); err != nil {
		h.logger.Error().Err(err).Msg("failed to persist user state")
		if h.metrics != nil {
			h.metrics.RecordStateSync("error")
		}
		return fail(c, fiber.StatusInternalServerError, "State persistence failed")
	}
	if h.metrics != nil {
		h.metrics.RecordStateSync("ok")
	}
	return c.JSON(Envelope{Success: true})
}

// ListSessions handles GET /api/sessions.
func (h *Handlers) ListSessions(c *fiber.Ctx) error {
	sessions, err := h.controller.ListSessions()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sessions")
		return fail(c, fiber.StatusInternalServerError, "Failed to retrieve sessions")
	}
	if h.metrics != nil {
		h.metrics.SetSessions(float64(len(sessions)))
	}
	return ok(c, sessions)
}

// CreateSession handles POST /api/sessions.
func (h *Handlers) CreateSession(c *fiber.Ctx) error {
	var req CreateSessionRequest
	// An empty or absent body is fine — everything is derived.
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	title := req.Title
	if title == "" {
		title = deriveSessionTitle(req.FirstMessage, h.now())
	}

	if err := h.controller.AddSession(sessionID, title); err != nil {
		h.logger.Error().Err(err).Msg("failed to create session")
		return fail(c, fiber.StatusInternalServerError, "Failed to create session")
	}
	return ok(c, CreateSessionResponse{SessionID: sessionID, Title: title})
}

// deriveSessionTitle builds a default title from the first message (when
// present) and the current time.
func deriveSessionTitle(firstMessage string, now time.Time) string {
	stamp := now.Format("01/02 15:04")
	if firstMessage != "" {
		runes := []rune(firstMessage)
		if len(runes) > 30 {
			runes = runes[:30]
		}
		return string(runes) + "... • " + stamp
	}
	return "Architect " + stamp
}

// DeleteSession handles DELETE /api/sessions/:sessionId.
func (h *Handlers) DeleteSession(c *fiber.Ctx) error {
	deleted, err := h.controller.RemoveSession(c.Params("sessionId"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to delete session")
		return fail(c, fiber.StatusInternalServerError, "Failed to delete session")
	}
	return ok(c, DeleteSessionResponse{Deleted: deleted})
}

// ExtractComponent handles POST /api/chat/:sessionId/extract.
func (h *Handlers) ExtractComponent(c *fiber.Ctx) error {
	if h.gateway == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Extraction is not configured")
	}

	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	sessionID := c.Params("sessionId")
	if err := h.controller.UpdateSessionActivity(sessionID); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to bump session activity")
	}

	desc, err := h.gateway.Extract(c.UserContext(), req.Content)
	if err != nil {
		if errors.Is(err, extract.ErrEmptyContent) {
			return fail(c, fiber.StatusBadRequest, "Content required")
		}
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("extraction failed")
		if h.metrics != nil {
			h.metrics.RecordExtraction("error")
		}
		return fail(c, fiber.StatusInternalServerError, "Extraction failed")
	}

	if h.metrics != nil {
		h.metrics.RecordExtraction("ok")
	}
	return ok(c, desc)
}

// ChatMessage handles POST /api/chat/:sessionId/chat.
func (h *Handlers) ChatMessage(c *fiber.Ctx) error {
	if h.chatAgent == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Chat is not configured")
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	sessionID := c.Params("sessionId")
	if err := h.controller.UpdateSessionActivity(sessionID); err != nil {
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to bump session activity")
	}

	state, err := h.chatAgent.Send(c.UserContext(), sessionID, req.Message, req.Model)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return fail(c, fiber.StatusBadRequest, "Message required")
		}
		h.logger.Warn().Err(err).Str("session_id", sessionID).Msg("chat completion failed")
		return fail(c, fiber.StatusInternalServerError, "Processing failed")
	}
	return ok(c, state)
}

// ChatMessages handles GET /api/chat/:sessionId/messages.
func (h *Handlers) ChatMessages(c *fiber.Ctx) error {
	if h.chatAgent == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Chat is not configured")
	}
	state, err := h.chatAgent.Messages(c.Params("sessionId"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load chat history")
		return fail(c, fiber.StatusInternalServerError, "Failed to retrieve messages")
	}
	return ok(c, state)
}

// ClearChat handles DELETE /api/chat/:sessionId/clear.
func (h *Handlers) ClearChat(c *fiber.Ctx) error {
	if h.chatAgent == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Chat is not configured")
	}
	state, err := h.chatAgent.Clear(c.Params("sessionId"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to clear chat history")
		return fail(c, fiber.StatusInternalServerError, "Failed to clear messages")
	}
	return ok(c, state)
}
