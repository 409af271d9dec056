package llm

import (
	"context"
	"errors"
	"time"
)

// Timeouts for LLM operations.
const (
	TimeoutLLMCall = 60 * time.Second
)

// ErrEmptyResponse indicates the upstream model returned no choices.
var ErrEmptyResponse = errors.New("provider returned no choices")

// Provider is the interface all LLM providers must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai", "ollama").
	Name() string
	// Generate sends a completion request to the LLM and returns the response.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request represents an LLM generation request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message represents a chat message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Response represents an LLM generation response.
type Response struct {
	Content      string
	FinishReason string
	InputTokens  int
	OutputTokens int
	Model        string
}
