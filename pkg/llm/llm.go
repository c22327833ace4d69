// Package llm defines the model-invocation boundary. The engine treats model
// invocation as an opaque function that returns text and (possibly unknown)
// token counts, and may fail or time out. Provider implementations live in
// the provider subpackages.
package llm

import "context"

// Message is a single message handed to the model.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Settings are per-invocation generation parameters.
type Settings struct {
	// Model overrides the provider's default model when non-empty.
	Model string

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// Temperature controls sampling randomness. Nil means provider default.
	Temperature *float64
}

// Result is the outcome of a successful invocation. Token counts are zero
// with TokensKnown false when the provider does not report usage.
type Result struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TokensKnown      bool
}

// Invoker is the single entry point to a model provider.
type Invoker interface {
	Invoke(ctx context.Context, messages []Message, settings Settings) (*Result, error)
}

// InvokeFunc adapts a function to the Invoker interface.
type InvokeFunc func(ctx context.Context, messages []Message, settings Settings) (*Result, error)

// Invoke calls the wrapped function.
func (f InvokeFunc) Invoke(ctx context.Context, messages []Message, settings Settings) (*Result, error) {
	return f(ctx, messages, settings)
}
