// Package models abstracts the completion endpoint behind a Provider
// interface with one concrete implementation per vendor. The provider is
// chosen once at startup by configuration; there is no per-request routing.
package models

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/marketforge/strategist/pkg/extract"
)

// Role values for chat turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one exchange in the section follow-up dialogue.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything one completion call needs. Documents are
// attached first, then images, then the user text.
type Request struct {
	System            string
	UserText          string
	Documents         []extract.File
	Images            []extract.File
	ExtendedReasoning bool
}

// StreamChunk is one increment of a streamed reply.
type StreamChunk struct {
	Delta    string
	FullText string
	Done     bool
	Err      error
}

// Provider is a concrete completion backend.
type Provider interface {
	// Complete returns the raw reply text for one strategy request.
	Complete(ctx context.Context, req Request) (string, error)

	// CountTokens estimates the input token cost of the user-supplied
	// content, excluding the fixed instruction overhead.
	CountTokens(ctx context.Context, req Request) (int, error)

	// StreamChat streams a follow-up chat reply. The returned channel is
	// closed after the final chunk; cancelling ctx aborts the stream.
	StreamChat(ctx context.Context, system string, turns []Turn) (<-chan StreamChunk, error)
}

// NewProvider returns a concrete Provider for the named vendor.
func NewProvider(ctx context.Context, name, model string, log zerolog.Logger) (Provider, error) {
	switch name {
	case "anthropic", "claude":
		return NewAnthropicLLM(model, log), nil
	case "openai":
		return NewOpenAILLM(model, log)
	case "gemini", "google":
		return NewGeminiLLM(ctx, model, log)
	case "ollama":
		return NewOllamaLLM(model, log)
	case "dummy":
		return NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
