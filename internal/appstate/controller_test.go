package appstate

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/architect-studio/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUserStateRoundTrip(t *testing.T) {
	c := NewController(testStore(t), zerolog.Nop())

	got, err := c.GetUserState("alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	blobA := json.RawMessage(`{"components":[],"theme":{"primaryColor":"#3B82F6"}}`)
	require.NoError(t, c.SetUserState("alice", blobA))

	got, err = c.GetUserState("alice")
	require.NoError(t, err)
	assert.JSONEq(t, string(blobA), string(got))

	// Last writer wins, wholesale.
	blobB := json.RawMessage(`{"components":[{"id":"x"}]}`)
	require.NoError(t, c.SetUserState("alice", blobB))
	got, err = c.GetUserState("alice")
	require.NoError(t, err)
	assert.JSONEq(t, string(blobB), string(got))

	// Other users are unaffected.
	got, err = c.GetUserState("bob")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetUserStateReturnsCopy(t *testing.T) {
	c := NewController(testStore(t), zerolog.Nop())
	require.NoError(t, c.SetUserState("alice", json.RawMessage(`{"a":1}`)))

	got, err := c.GetUserState("alice")
	require.NoError(t, err)
	for i := range got {
		got[i] = 'x'
	}

	fresh, err := c.GetUserState("alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(fresh))
}

func TestSessionLifecycle(t *testing.T) {
	c := NewController(testStore(t), zerolog.Nop())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	current := base
	c.now = func() time.Time { return current }

	require.NoError(t, c.AddSession("s1", "First build"))
	current = base.Add(time.Minute)
	require.NoError(t, c.AddSession("s2", ""))

	s, err := c.GetSession("s2")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Chat 03/01/2026", s.Title)

	// Most recently active first.
	list, err := c.ListSessions()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].ID)

	// Bumping s1 reorders.
	current = base.Add(2 * time.Minute)
	require.NoError(t, c.UpdateSessionActivity("s1"))
	list, err = c.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, "s1", list[0].ID)

	renamed, err := c.UpdateSessionTitle("s1", "Landing page")
	require.NoError(t, err)
	assert.True(t, renamed)

	renamed, err = c.UpdateSessionTitle("missing", "nope")
	require.NoError(t, err)
	assert.False(t, renamed)

	removed, err := c.RemoveSession("s1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = c.RemoveSession("s1")
	require.NoError(t, err)
	assert.False(t, removed)

	count, err := c.GetSessionCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnknownSessionOps(t *testing.T) {
	c := NewController(testStore(t), zerolog.Nop())

	s, err := c.GetSession("missing")
	require.NoError(t, err)
	assert.Nil(t, s)

	// Activity bump on an unknown session is a no-op.
	require.NoError(t, c.UpdateSessionActivity("missing"))
	count, err := c.GetSessionCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestClearAllSessions(t *testing.T) {
	c := NewController(testStore(t), zerolog.Nop())
	require.NoError(t, c.AddSession("s1", "a"))
	require.NoError(t, c.AddSession("s2", "b"))

	cleared, err := c.ClearAllSessions()
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	count, err := c.GetSessionCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStateSurvivesRestart(t *testing.T) {
	st := testStore(t)

	first := NewController(st, zerolog.Nop())
	require.NoError(t, first.AddSession("s1", "Persisted"))
	require.NoError(t, first.SetUserState("alice", json.RawMessage(`{"theme":{}}`)))

	// Fresh controller over the same store lazily reloads both maps.
	second := NewController(st, zerolog.Nop())
	s, err := second.GetSession("s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Persisted", s.Title)

	blob, err := second.GetUserState("alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":{}}`, string(blob))
}
