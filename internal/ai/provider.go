package ai

import (
	"context"
	"errors"
)

var (
	// ErrMissingCredential is returned by a provider factory when the
	// credential it needs is not configured.
	ErrMissingCredential = errors.New("ai: provider credential not configured")
	// ErrUnknownProvider is returned by the registry for unregistered names.
	ErrUnknownProvider = errors.New("ai: unknown provider")
)

type Message struct {
	Role    string
	Content string
}

// ChatRequest is what every provider receives for one turn.
type ChatRequest struct {
	System    string
	Messages  []Message
	MaxTokens int
}

type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}
