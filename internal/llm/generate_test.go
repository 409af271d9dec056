package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	resp *Response
	err  error
	last *Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func TestSafeGenerate_PlaceholderWithoutProvider(t *testing.T) {
	g := NewSafeGenerator(nil, "llama-3.1-8b-instant")

	res := g.Generate(context.Background(), "summarise for alice@example.com")
	require.NotNil(t, res)
	assert.False(t, res.UpstreamError)
	assert.Equal(t, "placeholder", res.Model)
	assert.Contains(t, res.Content, "Placeholder LLM response")
	assert.Contains(t, res.Content, "[REDACTED]")
	assert.NotContains(t, res.Content, "alice@example.com")
}

func TestSafeGenerate_ScrubsBeforeProviderCall(t *testing.T) {
	stub := &stubProvider{resp: &Response{Content: "done", Model: "m"}}
	g := NewSafeGenerator(stub, "m")

	res := g.Generate(context.Background(), "call 9876543210 now")
	require.NotNil(t, stub.last)
	require.Len(t, stub.last.Messages, 1)
	assert.Equal(t, "call [REDACTED] now", stub.last.Messages[0].Content)
	assert.Equal(t, "call [REDACTED] now", res.ScrubbedInput)
	assert.Equal(t, DefaultTemperature, stub.last.Temperature)
	assert.Equal(t, DefaultMaxTokens, stub.last.MaxTokens)
}

func TestSafeGenerate_FallbackOnUpstreamError(t *testing.T) {
	stub := &stubProvider{err: errors.New("boom")}
	g := NewSafeGenerator(stub, "m")

	res := g.Generate(context.Background(), "hello")
	require.NotNil(t, res)
	assert.True(t, res.UpstreamError)
	assert.Contains(t, res.Content, "Error calling LLM, fallback response")
}

func TestSafeGenerate_PassesThroughResponse(t *testing.T) {
	stub := &stubProvider{resp: &Response{
		Content:      "the answer",
		Model:        "llama-3.1-8b-instant",
		InputTokens:  12,
		OutputTokens: 3,
	}}
	g := NewSafeGenerator(stub, "llama-3.1-8b-instant")

	res := g.Generate(context.Background(), "a question")
	assert.False(t, res.UpstreamError)
	assert.Equal(t, "the answer", res.Content)
	assert.Equal(t, 12, res.InputTokens)
	assert.Equal(t, 3, res.OutputTokens)
}
