package llm

import "context"

// Provider is a chat-completion backend.
// Implementations: CompletionClient, OpenAIProvider, AnthropicProvider
type Provider interface {
	// Name identifies the provider in logs and errors
	Name() string

	// Complete sends one chat completion and returns the raw upstream body.
	// Failures are returned as *UpstreamError.
	Complete(ctx context.Context, req ChatRequest) ([]byte, error)
}
