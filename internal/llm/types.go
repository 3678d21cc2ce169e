// Package llm defines the LLM provider interface and related types.
// Providers are interchangeable behind this interface — Claude today, anything tomorrow.
package llm

import "context"

// Role constants for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StopReason describes why the LLM stopped generating.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxTokens = "max_tokens"
)

// Message is a single turn in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a provider's Complete() call.
type CompletionRequest struct {
	Messages     []Message
	SystemPrompt string
	MaxTokens    int
	Model        string // override provider default if set
}

// Token is a single streaming token.
type Token struct {
	Text  string
	Done  bool
	Error error
}

// CompletionResponse is returned by Complete().
type CompletionResponse struct {
	Text         string
	StopReason   string // StopReasonEndTurn | StopReasonMaxTokens
	InputTokens  int
	OutputTokens int
}

// Provider is the core abstraction for language model backends.
type Provider interface {
	// Complete sends a completion request and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream sends a completion request and streams tokens to out.
	// The caller must drain out until Done==true or an error token arrives.
	Stream(ctx context.Context, req CompletionRequest, out chan<- Token) error

	// ModelID returns the current model identifier string.
	ModelID() string
}
