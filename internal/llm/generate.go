package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Default generation parameters for agent runs.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 256
)

// Result is the outcome of a safe generation. A Result is always produced:
// when the upstream call fails the Content carries a fallback response and
// UpstreamError is set, so callers can score trust accordingly without
// handling an error path.
type Result struct {
	Content       string
	Model         string
	ScrubbedInput string
	InputTokens   int
	OutputTokens  int
	UpstreamError bool
}

// SafeGenerator wraps a Provider with input scrubbing and fail-safe
// fallbacks. A nil provider is valid and yields placeholder responses,
// which keeps the rest of the pipeline runnable without an API key.
type SafeGenerator struct {
	provider Provider
	model    string
}

// NewSafeGenerator creates a generator for the given provider and model.
// provider may be nil (placeholder mode).
func NewSafeGenerator(provider Provider, model string) *SafeGenerator {
	if provider == nil {
		log.Warn().Msg("no LLM provider configured, generation will return placeholder responses")
	}
	return &SafeGenerator{provider: provider, model: model}
}

// Generate scrubs the prompt and runs it through the provider. It never
// returns an error: upstream failures are absorbed into the Result.
func (g *SafeGenerator) Generate(ctx context.Context, prompt string) *Result {
	safePrompt := Scrub(prompt)

	if g.provider == nil {
		return &Result{
			Content:       fmt.Sprintf("(Placeholder LLM response for safe prompt: %s)", safePrompt),
			Model:         "placeholder",
			ScrubbedInput: safePrompt,
		}
	}

	resp, err := g.provider.Generate(ctx, &Request{
		Model:       g.model,
		Messages:    []Message{{Role: "user", Content: safePrompt}},
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	})
	if err != nil {
		log.Error().Err(err).Str("provider", g.provider.Name()).Msg("llm call failed, falling back")
		return &Result{
			Content:       fmt.Sprintf("(Error calling LLM, fallback response for safe prompt: %s)", safePrompt),
			Model:         g.model,
			ScrubbedInput: safePrompt,
			UpstreamError: true,
		}
	}

	return &Result{
		Content:       resp.Content,
		Model:         resp.Model,
		ScrubbedInput: safePrompt,
		InputTokens:   resp.InputTokens,
		OutputTokens:  resp.OutputTokens,
	}
}
