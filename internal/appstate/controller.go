// Package appstate implements the durable per-user state service: session
// bookkeeping plus one opaque user-state blob per user id. It mirrors a
// key-value durable object — in-memory maps, loaded from storage exactly
// once per process, re-persisted wholesale after every mutation.
package appstate

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/architect-studio/internal/store"
)

// Storage keys for the two persisted maps.
const (
	keySessions   = "sessions"
	keyUserStates = "userStates"
)

// SessionInfo is one registered session.
type SessionInfo struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	CreatedAt  int64  `json:"createdAt"`  // unix millis
	LastActive int64  `json:"lastActive"` // unix millis
}

// Controller owns the session registry and user-state blobs.
//
// Load happens lazily and exactly once: every public method funnels
// through ensureLoaded, so concurrent first requests share a single
// storage read instead of racing to hydrate.
type Controller struct {
	mu         sync.Mutex
	sessions   map[string]*SessionInfo
	userStates map[string]json.RawMessage

	loadOnce sync.Once
	loadErr  error

	store  *store.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewController creates a controller backed by the given store.
func NewController(st *store.Store, logger zerolog.Logger) *Controller {
	return &Controller{
		sessions:   make(map[string]*SessionInfo),
		userStates: make(map[string]json.RawMessage),
		store:      st,
		logger:     logger.With().Str("component", "appstate").Logger(),
		now:        time.Now,
	}
}

func (c *Controller) ensureLoaded() error {
	c.loadOnce.Do(func() {
		c.loadErr = c.load()
	})
	return c.loadErr
}

func (c *Controller) load() error {
	raw, err := c.store.Get(keySessions)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &c.sessions); err != nil {
			return fmt.Errorf("decode sessions: %w", err)
		}
	}

	raw, err = c.store.Get(keyUserStates)
	if err != nil {
		return fmt.Errorf("load user states: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &c.userStates); err != nil {
			return fmt.Errorf("decode user states: %w", err)
		}
	}

	c.logger.Info().
		Int("sessions", len(c.sessions)).
		Int("user_states", len(c.userStates)).
		Msg("state loaded")
	return nil
}

// persistLocked writes both maps back wholesale. Write cost scales with
// total stored sessions/users, not with the size of the change — that is
// the durable-object storage model this mirrors.
func (c *Controller) persistLocked() error {
	raw, err := json.Marshal(c.sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := c.store.Put(keySessions, raw); err != nil {
		return fmt.Errorf("persist sessions: %w", err)
	}

	raw, err = json.Marshal(c.userStates)
	if err != nil {
		return fmt.Errorf("encode user states: %w", err)
	}
	if err := c.store.Put(keyUserStates, raw); err != nil {
		return fmt.Errorf("persist user states: %w", err)
	}
	return nil
}

// GetUserState returns a copy of the stored blob for userID, or nil when
// absent.
func (c *Controller) GetUserState(userID string) (json.RawMessage, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.userStates[userID]
	if !ok {
		return nil, nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

// SetUserState overwrites the blob for userID wholesale. Last writer wins;
// there is no merge and no versioning.
func (c *Controller) SetUserState(userID string, state json.RawMessage) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userStates[userID] = state
	return c.persistLocked()
}

// AddSession registers a session, stamping creation and activity times.
// An empty title gets a date-derived default.
func (c *Controller) AddSession(sessionID, title string) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if title == "" {
		title = "Chat " + now.Format("01/02/2006")
	}
	c.sessions[sessionID] = &SessionInfo{
		ID:         sessionID,
		Title:      title,
		CreatedAt:  now.UnixMilli(),
		LastActive: now.UnixMilli(),
	}
	return c.persistLocked()
}

// RemoveSession deletes a session. Returns true iff it existed.
func (c *Controller) RemoveSession(sessionID string) (bool, error) {
	if err := c.ensureLoaded(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(c.sessions, sessionID)
	return true, c.persistLocked()
}

// GetSession returns a session by id, or nil when absent.
func (c *Controller) GetSession(sessionID string) (*SessionInfo, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

// UpdateSessionActivity bumps lastActive. No-op for unknown sessions.
func (c *Controller) UpdateSessionActivity(sessionID string) error {
	if err := c.ensureLoaded(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return nil
	}
	s.LastActive = c.now().UnixMilli()
	return c.persistLocked()
}

// UpdateSessionTitle renames a session. Returns true iff it existed.
func (c *Controller) UpdateSessionTitle(sessionID, title string) (bool, error) {
	if err := c.ensureLoaded(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		return false, nil
	}
	s.Title = title
	return true, c.persistLocked()
}

// ListSessions returns all sessions ordered by lastActive descending.
func (c *Controller) ListSessions() ([]SessionInfo, error) {
	if err := c.ensureLoaded(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SessionInfo, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive > out[j].LastActive
	})
	return out, nil
}

// GetSessionCount returns the number of registered sessions.
func (c *Controller) GetSessionCount() (int, error) {
	if err := c.ensureLoaded(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions), nil
}

// ClearAllSessions removes every session, returning how many were cleared.
func (c *Controller) ClearAllSessions() (int, error) {
	if err := c.ensureLoaded(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.sessions)
	c.sessions = make(map[string]*SessionInfo)
	return count, c.persistLocked()
}
