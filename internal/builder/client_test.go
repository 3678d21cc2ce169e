package builder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves the envelope API surface the client expects.
type fakeBackend struct {
	t         *testing.T
	userState json.RawMessage
	auth      string
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/user/state", func(w http.ResponseWriter, r *http.Request) {
		b.auth = r.Header.Get("Authorization")
		switch r.Method {
		case http.MethodGet:
			if b.userState == nil {
				b.write(w, map[string]interface{}{"success": true, "data": nil})
				return
			}
			b.write(w, map[string]interface{}{"success": true, "data": b.userState})
		case http.MethodPost:
			raw, err := io.ReadAll(r.Body)
			require.NoError(b.t, err)
			b.userState = raw
			b.write(w, map[string]interface{}{"success": true})
		}
	})

	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			b.write(w, map[string]interface{}{
				"success": true,
				"data":    map[string]string{"sessionId": "s1", "title": "Chat 03/01/2026"},
			})
		case http.MethodGet:
			b.write(w, map[string]interface{}{
				"success": true,
				"data": []map[string]interface{}{
					{"id": "s1", "title": "Chat 03/01/2026", "createdAt": 1, "lastActive": 2},
				},
			})
		}
	})

	mux.HandleFunc("/api/sessions/s1", func(w http.ResponseWriter, r *http.Request) {
		b.write(w, map[string]interface{}{"success": true, "data": map[string]bool{"deleted": true}})
	})

	mux.HandleFunc("/api/chat/s1/extract", func(w http.ResponseWriter, r *http.Request) {
		b.write(w, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"name": "Pricing Card", "category": "Cards",
				"tags": []string{"pricing"}, "code": "<div/>",
			},
		})
	})

	mux.HandleFunc("/api/auth/demo", func(w http.ResponseWriter, r *http.Request) {
		b.write(w, map[string]interface{}{
			"success": true,
			"data":    map[string]string{"token": "tok-123", "userId": "demo-user"},
		})
	})

	return mux
}

func (b *fakeBackend) write(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(b.t, json.NewEncoder(w).Encode(body))
}

func newTestClient(t *testing.T) (*StateClient, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{t: t}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return NewStateClient(srv.URL, WithClientHTTP(srv.Client())), backend
}

func TestClientPushPull(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	// Empty remote pulls as nil.
	state, err := client.Pull(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)

	pushed := UserState{
		Components: []ComponentPrimitive{{ID: "c1", Name: "Nav", Category: CategoryLayout}},
		Theme:      DefaultTheme(),
	}
	require.NoError(t, client.Push(ctx, pushed))
	require.NotNil(t, backend.userState)

	state, err = client.Pull(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	require.Len(t, state.Components, 1)
	assert.Equal(t, "Nav", state.Components[0].Name)
	assert.Equal(t, DefaultTheme(), state.Theme)
}

func TestClientSessions(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	id, title, err := client.CreateSession(ctx, "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "s1", id)
	assert.Equal(t, "Chat 03/01/2026", title)

	sessions, err := client.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)

	deleted, err := client.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestClientExtract(t *testing.T) {
	client, _ := newTestClient(t)

	desc, err := client.Extract(context.Background(), "s1", "<button/>")
	require.NoError(t, err)
	assert.Equal(t, "Pricing Card", desc.Name)
	assert.Equal(t, CategoryCards, desc.Category)
}

func TestClientDemoLoginAttachesToken(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	token, err := client.DemoLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	require.NoError(t, client.Push(ctx, UserState{Theme: DefaultTheme()}))
	assert.Equal(t, "Bearer tok-123", backend.auth)
}

func TestClientSurfacesEnvelopeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"State sync failed"}`))
	}))
	defer srv.Close()

	client := NewStateClient(srv.URL)
	_, err := client.Pull(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "State sync failed")
}
