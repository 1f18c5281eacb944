// Package llmclient declares the abstract LLM provider capability interface
// the run orchestrator drives — generate and stream, usage reporting, and
// model-access error classification. It holds no vendor SDK: concrete
// OpenAI/Anthropic/etc. clients are external collaborators that implement
// Provider and register themselves with a Client.
package llmclient

import (
	"context"
	"io"
)

// Provider resolves model names to a LanguageModel for one backend
// ("openai", "anthropic", "google", "xai", "openrouter", ...).
type Provider interface {
	// Name returns the provider's gateway-style identifier.
	Name() string
	// LanguageModel returns a model handle for modelName, without making a
	// network call.
	LanguageModel(modelName string) (LanguageModel, error)
	// HasCredentials reports whether this provider is configured with
	// usable credentials (API key present), without a network round-trip.
	HasCredentials() bool
}

// GenerateOptions carries the inputs to one generate/stream call.
type GenerateOptions struct {
	Prompt           string
	SystemPrompt     string
	Temperature      *float64
	MaxOutputTokens  *int
	Headers          map[string]string
}

// Usage reports token counts for one call. Nil fields are "unknown" and
// must not be coerced to zero (costbook's null-preservation rule).
type Usage struct {
	PromptTokens     *int64
	CompletionTokens *int64
	TotalTokens      *int64
}

// GenerateResult is the outcome of a non-streaming generate call.
type GenerateResult struct {
	Text  string
	Usage Usage
}

// LanguageModel is one concrete model handle (e.g. "openai"+"gpt-5").
type LanguageModel interface {
	Provider() string
	ModelID() string
	// InputTokenBudget returns the model's configured maximum input token
	// count, used by the orchestrator's pre-flight size check (spec §4.7
	// step 8: refuse before any call if content exceeds this).
	InputTokenBudget() int

	DoGenerate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error)
	DoStream(ctx context.Context, opts GenerateOptions) (TextStream, error)
}

// TextStream is a streaming response: a sequence of text deltas terminated
// by a final Usage once the stream completes.
type TextStream interface {
	io.Closer
	// Next returns the next delta, or io.EOF when the stream is done. The
	// final non-EOF return may carry the terminal usage in lieu of text.
	Next() (StreamChunk, error)
}

// StreamChunk is one item yielded by a TextStream.
type StreamChunk struct {
	Text  string
	Usage *Usage // set only on the terminal chunk
}
