package chat

import (
	"context"
	"errors"
	"io"

	"github.com/suPer8Hu/alira/internal/ai"
)

type RelayOptions struct {
	Provider     string
	Model        string
	SystemPrompt string
	MaxTokens    int
}

// Relay turns one conversation turn into a plain stream of text fragments.
// It keeps no state between turns.
type Relay struct {
	registry *ai.Registry
	opts     RelayOptions
}

func NewRelay(registry *ai.Registry, opts RelayOptions) *Relay {
	return &Relay{registry: registry, opts: opts}
}

// Open starts the provider call and waits for its first fragment, so that
// anything failing before streaming begins is returned here rather than
// from the stream.
func (r *Relay) Open(ctx context.Context, turn TurnRequest) (*Stream, error) {
	provider, err := r.registry.Get(ctx, r.opts.Provider, r.opts.Model)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}

	req := r.buildRequest(turn)

	var s *Stream
	if sp, ok := provider.(ai.StreamProvider); ok {
		chunks, errs := sp.StreamChat(ctx, req)
		s = &Stream{chunks: chunks, errs: errs}
	} else {
		s = chatAsStream(ctx, provider, req)
	}

	first, err := s.recv(ctx)
	switch {
	case err == nil:
		s.pending, s.hasPending = first, true
	case errors.Is(err, io.EOF):
		s.err = io.EOF
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, ai.ErrMissingCredential):
		return nil, &ConfigurationError{Err: err}
	default:
		return nil, &ProviderError{Err: err}
	}
	return s, nil
}

func (r *Relay) buildRequest(turn TurnRequest) ai.ChatRequest {
	msgs := make([]ai.Message, 0, len(turn.ConversationHistory)+1)
	for _, m := range turn.ConversationHistory {
		msgs = append(msgs, ai.Message{Role: string(m.Role), Content: m.Content})
	}
	msgs = append(msgs, ai.Message{Role: string(RoleUser), Content: turn.UserMessage})

	return ai.ChatRequest{
		System:    r.opts.SystemPrompt,
		Messages:  msgs,
		MaxTokens: r.opts.MaxTokens,
	}
}

// chatAsStream adapts a provider without streaming support: the whole reply
// becomes a single fragment.
func chatAsStream(ctx context.Context, p ai.Provider, req ai.ChatRequest) *Stream {
	chunks := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		reply, err := p.Chat(ctx, req)
		if err != nil {
			errs <- err
			return
		}
		if reply != "" {
			chunks <- reply
		}
	}()
	return &Stream{chunks: chunks, errs: errs}
}

// Stream yields the fragments of one provider reply in emission order.
type Stream struct {
	chunks <-chan string
	errs   <-chan error

	pending    string
	hasPending bool
	delivered  int
	err        error
}

// Next returns the next fragment. It returns io.EOF after a clean
// completion and a *ProviderError when the provider fails mid-stream.
func (s *Stream) Next(ctx context.Context) (string, error) {
	if s.hasPending {
		s.hasPending = false
		s.delivered++
		return s.pending, nil
	}
	if s.err != nil {
		return "", s.err
	}

	frag, err := s.recv(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			s.err = err
		} else {
			s.err = &ProviderError{Err: err, Streaming: true}
		}
		return "", s.err
	}
	s.delivered++
	return frag, nil
}

// Delivered counts the fragments handed out by Next.
func (s *Stream) Delivered() int { return s.delivered }

func (s *Stream) recv(ctx context.Context) (string, error) {
	select {
	case frag, ok := <-s.chunks:
		if ok {
			return frag, nil
		}
		// errs is closed no later than chunks, so a pending error is already buffered
		if err, _ := <-s.errs; err != nil {
			return "", err
		}
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
