package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/architect-studio/internal/llm"
	"github.com/p-blackswan/architect-studio/internal/store"
)

type fakeProvider struct {
	replies  []string
	err      error
	requests []llm.CompletionRequest
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return &llm.CompletionResponse{Text: reply, StopReason: llm.StopReasonEndTurn}, nil
}

func (f *fakeProvider) Stream(_ context.Context, _ llm.CompletionRequest, out chan<- llm.Token) error {
	close(out)
	return nil
}

func (f *fakeProvider) ModelID() string { return "fake-model" }

func testAgent(t *testing.T, p llm.Provider) *Agent {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "chat.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewAgent(p, st, zerolog.Nop())
}

func TestSendAppendsBothTurns(t *testing.T) {
	provider := &fakeProvider{replies: []string{"Extracted a button.", "Added to canvas."}}
	a := testAgent(t, provider)

	state, err := a.Send(context.Background(), "s1", "extract this button", "")
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, llm.RoleUser, state.Messages[0].Role)
	assert.Equal(t, "extract this button", state.Messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, state.Messages[1].Role)
	assert.Equal(t, "Extracted a button.", state.Messages[1].Content)

	// Second turn sends the full history.
	state, err = a.Send(context.Background(), "s1", "now place it", "")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 4)
	require.Len(t, provider.requests, 2)
	assert.Len(t, provider.requests[1].Messages, 3)
	assert.NotEmpty(t, provider.requests[1].SystemPrompt)
}

func TestSendEmptyMessage(t *testing.T) {
	provider := &fakeProvider{replies: []string{"unused"}}
	a := testAgent(t, provider)

	_, err := a.Send(context.Background(), "s1", "   ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, provider.requests)
}

func TestSendKeepsUserMessageOnCompletionFailure(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream down")}
	a := testAgent(t, provider)

	_, err := a.Send(context.Background(), "s1", "hello", "")
	require.Error(t, err)

	state, err := a.Messages("s1")
	require.NoError(t, err)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, llm.RoleUser, state.Messages[0].Role)
}

func TestMessagesUnknownSession(t *testing.T) {
	a := testAgent(t, &fakeProvider{replies: []string{"hi"}})

	state, err := a.Messages("never-seen")
	require.NoError(t, err)
	assert.Equal(t, "never-seen", state.SessionID)
	assert.Empty(t, state.Messages)
}

func TestClear(t *testing.T) {
	provider := &fakeProvider{replies: []string{"ok"}}
	a := testAgent(t, provider)

	_, err := a.Send(context.Background(), "s1", "hello", "claude-sonnet-4-5")
	require.NoError(t, err)

	state, err := a.Clear("s1")
	require.NoError(t, err)
	assert.Empty(t, state.Messages)

	state, err = a.Messages("s1")
	require.NoError(t, err)
	assert.Empty(t, state.Messages)
}
