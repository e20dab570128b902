// Package llm provides completion service client implementations.
package llm

import "context"

// Client is the interface the agent uses to reach a completion service.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
