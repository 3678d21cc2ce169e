package builder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/p-blackswan/architect-studio/internal/appstate"
)

// StateClient talks to the backend API. It implements CloudSync and also
// covers session bookkeeping and extraction for CLI use.
type StateClient struct {
	baseURL string
	token   string // optional bearer token from the demo login
	client  *http.Client
}

// ClientOption configures a StateClient.
type ClientOption func(*StateClient)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) ClientOption {
	return func(c *StateClient) { c.token = token }
}

// WithClientHTTP overrides the HTTP client.
func WithClientHTTP(hc *http.Client) ClientOption {
	return func(c *StateClient) { c.client = hc }
}

// NewStateClient creates a client for the backend at baseURL.
func NewStateClient(baseURL string, opts ...ClientOption) *StateClient {
	c := &StateClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *StateClient) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("%s %s: %s", method, path, msg)
	}
	return &env, nil
}

// Push implements CloudSync.
func (c *StateClient) Push(ctx context.Context, state UserState) error {
	_, err := c.do(ctx, http.MethodPost, "/api/user/state", state)
	return err
}

// Pull implements CloudSync. Returns nil when the remote has no state.
func (c *StateClient) Pull(ctx context.Context) (*UserState, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/user/state", nil)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	var state UserState
	if err := json.Unmarshal(env.Data, &state); err != nil {
		return nil, fmt.Errorf("decode user state: %w", err)
	}
	return &state, nil
}

// CreateSession registers a session and returns its id and derived title.
func (c *StateClient) CreateSession(ctx context.Context, title, firstMessage string) (string, string, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{
		"title":        title,
		"firstMessage": firstMessage,
	})
	if err != nil {
		return "", "", err
	}
	var out struct {
		SessionID string `json:"sessionId"`
		Title     string `json:"title"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return "", "", fmt.Errorf("decode session: %w", err)
	}
	return out.SessionID, out.Title, nil
}

// ListSessions returns the registered sessions, most recently active first.
func (c *StateClient) ListSessions(ctx context.Context) ([]appstate.SessionInfo, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/sessions", nil)
	if err != nil {
		return nil, err
	}
	var out []appstate.SessionInfo
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return out, nil
}

// DeleteSession removes a session; returns whether it existed.
func (c *StateClient) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	env, err := c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil)
	if err != nil {
		return false, err
	}
	var out struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return false, fmt.Errorf("decode delete result: %w", err)
	}
	return out.Deleted, nil
}

// Extract sends content through the extraction proxy for a session.
func (c *StateClient) Extract(ctx context.Context, sessionID, content string) (*Descriptor, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/chat/"+sessionID+"/extract", map[string]string{
		"content": content,
	})
	if err != nil {
		return nil, err
	}
	var desc Descriptor
	if err := json.Unmarshal(env.Data, &desc); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return &desc, nil
}

// DemoLogin obtains a demo token and attaches it to this client.
func (c *StateClient) DemoLogin(ctx context.Context) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/auth/demo", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return "", fmt.Errorf("decode login: %w", err)
	}
	c.token = out.Token
	return out.Token, nil
}
