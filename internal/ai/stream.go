package ai

import "context"

// StreamProvider is an optional interface. Providers may implement streaming chat.
//
// Only text fragments are sent on the first channel. A failure is sent on the
// second channel before both are closed; a clean completion closes both
// without an error.
type StreamProvider interface {
	StreamChat(ctx context.Context, req ChatRequest) (<-chan string, <-chan error)
}

// emit sends a fragment unless the consumer has gone away.
func emit(ctx context.Context, chunks chan<- string, s string) bool {
	select {
	case chunks <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
