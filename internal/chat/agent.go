// Package chat implements the per-session conversation agent behind the
// chat proxy routes. Each session keeps an ordered message history,
// persisted to the KV store so a session survives process restarts.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/architect-studio/internal/llm"
	"github.com/p-blackswan/architect-studio/internal/store"
)

// ErrEmptyMessage is returned when a chat request carries no message.
var ErrEmptyMessage = errors.New("chat: message is empty")

const systemPrompt = `You are the Architect assistant. You help users turn raw code and screenshots into reusable UI component primitives and compose them into larger blocks. Be concise and concrete.`

// Message is a single chat turn.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// SessionState is the full conversation state for one session.
type SessionState struct {
	SessionID string    `json:"sessionId"`
	Messages  []Message `json:"messages"`
	Model     string    `json:"model"`
}

// Agent routes chat messages to the LLM and maintains session histories.
type Agent struct {
	mu       sync.Mutex
	provider llm.Provider
	store    *store.Store
	logger   zerolog.Logger
}

// NewAgent creates a chat agent.
func NewAgent(provider llm.Provider, st *store.Store, logger zerolog.Logger) *Agent {
	return &Agent{
		provider: provider,
		store:    st,
		logger:   logger.With().Str("component", "chat").Logger(),
	}
}

func historyKey(sessionID string) string {
	return "chat:" + sessionID
}

func (a *Agent) loadLocked(sessionID string) (*SessionState, error) {
	raw, err := a.store.Get(historyKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}
	state := &SessionState{SessionID: sessionID}
	if raw != nil {
		if err := json.Unmarshal(raw, state); err != nil {
			return nil, fmt.Errorf("chat: decode history: %w", err)
		}
	}
	return state, nil
}

func (a *Agent) saveLocked(state *SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("chat: encode history: %w", err)
	}
	if err := a.store.Put(historyKey(state.SessionID), raw); err != nil {
		return fmt.Errorf("chat: persist history: %w", err)
	}
	return nil
}

// Messages returns the conversation state for a session. Unknown sessions
// yield an empty state, not an error.
func (a *Agent) Messages(sessionID string) (*SessionState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadLocked(sessionID)
}

// Send appends the user message, completes against the LLM with the full
// history, appends the assistant reply, and persists. The user message is
// kept even when the completion fails, matching an optimistic UI that has
// already rendered it.
func (a *Agent) Send(ctx context.Context, sessionID, message, model string) (*SessionState, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state, err := a.loadLocked(sessionID)
	if err != nil {
		return nil, err
	}
	if model != "" {
		state.Model = model
	}

	state.Messages = append(state.Messages, Message{
		ID:        uuid.New().String(),
		Role:      llm.RoleUser,
		Content:   message,
		Timestamp: time.Now().UnixMilli(),
	})

	history := make([]llm.Message, 0, len(state.Messages))
	for _, m := range state.Messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	resp, err := a.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     history,
		SystemPrompt: systemPrompt,
		Model:        state.Model,
	})
	if err != nil {
		if saveErr := a.saveLocked(state); saveErr != nil {
			a.logger.Warn().Err(saveErr).Msg("failed to persist history after completion error")
		}
		return nil, fmt.Errorf("chat: completion: %w", err)
	}

	state.Messages = append(state.Messages, Message{
		ID:        uuid.New().String(),
		Role:      llm.RoleAssistant,
		Content:   resp.Text,
		Timestamp: time.Now().UnixMilli(),
	})

	if err := a.saveLocked(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Clear wipes a session's history.
func (a *Agent) Clear(sessionID string) (*SessionState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := &SessionState{SessionID: sessionID}
	if err := a.saveLocked(state); err != nil {
		return nil, err
	}
	return state, nil
}
