package httpapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/alira/internal/ai"
	"github.com/suPer8Hu/alira/internal/chat"
	"github.com/suPer8Hu/alira/internal/conversation"
)

func newConversation(t *testing.T, p ai.Provider) *conversation.Aggregator {
	t.Helper()
	srv := newTestServer(t, serving(p))
	return conversation.New(conversation.NewClient(srv.URL), conversation.WithIDGenerator(&conversation.Sequence{}))
}

func TestConversationStreamsReply(t *testing.T) {
	p := &fakeProvider{fragments: []string{"Hi", " there", "!"}, requests: make(chan ai.ChatRequest, 1)}
	a := newConversation(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Submit(ctx, "Hello"))

	s := a.Snapshot()
	assert.Equal(t, conversation.PhaseIdle, s.Phase)
	require.Len(t, s.Transcript, 3)
	assert.Equal(t, chat.RoleUser, s.Transcript[1].Role)
	assert.Equal(t, "Hello", s.Transcript[1].Content)
	assert.Equal(t, chat.RoleAssistant, s.Transcript[2].Role)
	assert.Equal(t, "Hi there!", s.Transcript[2].Content)
	assert.NotEqual(t, chat.PlaceholderID, s.Transcript[2].ID)

	req := <-p.requests
	// greeting, user message from history, user message appended by the relay
	require.Len(t, req.Messages, 3)
	assert.Equal(t, ai.Message{Role: "assistant", Content: conversation.DefaultGreeting}, req.Messages[0])
}

func TestConversationProviderFailsMidStream(t *testing.T) {
	a := newConversation(t, &fakeProvider{
		fragments: []string{"Wor"},
		err:       errors.New("connection reset"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.Submit(ctx, "Hello")
	var te *conversation.TransportError
	require.ErrorAs(t, err, &te)

	s := a.Snapshot()
	require.Len(t, s.Transcript, 3)
	assert.Equal(t, conversation.FallbackText, s.Transcript[2].Content)
	for _, m := range s.Transcript {
		assert.NotEqual(t, "Wor", m.Content)
	}
}

func TestConversationMissingCredential(t *testing.T) {
	srv := newTestServer(t, func(ctx context.Context, model string) (ai.Provider, error) {
		return nil, ai.ErrMissingCredential
	})
	a := conversation.New(conversation.NewClient(srv.URL))

	err := a.Submit(context.Background(), "Hello")
	var te *conversation.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 500, te.Status)
	assert.Equal(t, "API key not configured", te.Message)
	assert.Equal(t, conversation.FallbackText, a.Snapshot().Transcript[2].Content)
}
