package chat

import (
	"errors"

	"github.com/suPer8Hu/alira/internal/ai"
)

// ConfigurationError means the relay cannot reach a provider at all, for
// example because its credential is missing. It is never retried.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "chat: configuration: " + e.Err.Error() }
func (e *ConfigurationError) Unwrap() error { return e.Err }

// MissingCredential reports whether the configuration problem is an absent
// provider credential.
func (e *ConfigurationError) MissingCredential() bool {
	return errors.Is(e.Err, ai.ErrMissingCredential)
}

// ProviderError wraps an upstream failure. Streaming is set when at least one
// fragment had already been delivered.
type ProviderError struct {
	Err       error
	Streaming bool
}

func (e *ProviderError) Error() string {
	if e.Streaming {
		return "chat: provider failed mid-stream: " + e.Err.Error()
	}
	return "chat: provider failed: " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error { return e.Err }
