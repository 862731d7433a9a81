package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterStreamChat(t *testing.T) {
	var gotReq openRouterChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		fmt.Fprint(w, ": OPENROUTER PROCESSING\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Hi"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":" there"}}]}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "or-key", "openrouter/auto", "", "")
	chunks, errs := p.StreamChat(context.Background(), ChatRequest{
		System:    "sys",
		Messages:  []Message{{Role: "user", Content: "Hello"}},
		MaxTokens: 10,
	})
	got, err := collect(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, got)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, openRouterMsg{Role: "system", Content: "sys"}, gotReq.Messages[0])
	assert.Equal(t, 10, gotReq.MaxTokens)
	assert.True(t, gotReq.Stream)
}

func TestOpenRouterStreamChat_UpstreamErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"Wor"}}]}`+"\n\n")
		fmt.Fprint(w, `data: {"error":{"message":"provider went away"}}`+"\n\n")
	}))
	defer srv.Close()

	p := NewOpenRouterProvider(srv.URL, "k", "m", "", "")
	chunks, errs := p.StreamChat(context.Background(), ChatRequest{})
	got, err := collect(t, chunks, errs)
	assert.Equal(t, []string{"Wor"}, got)
	assert.EqualError(t, err, "provider went away")
}

func TestOllamaStreamChat(t *testing.T) {
	var gotReq ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hi"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":" there"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3:latest")
	chunks, errs := p.StreamChat(context.Background(), ChatRequest{
		System:    "sys",
		Messages:  []Message{{Role: "user", Content: "Hello"}},
		MaxTokens: 64,
	})
	got, err := collect(t, chunks, errs)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, got)

	require.NotNil(t, gotReq.Options)
	assert.Equal(t, 64, gotReq.Options.NumPredict)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
}

func TestOllamaStreamChat_MissingDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"Hi"},"done":false}`)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "")
	chunks, errs := p.StreamChat(context.Background(), ChatRequest{})
	got, err := collect(t, chunks, errs)
	assert.Equal(t, []string{"Hi"}, got)
	assert.ErrorIs(t, err, ErrIncompleteStream)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(" Ollama ", func(ctx context.Context, model string) (Provider, error) {
		return NewOllamaProvider("", model), nil
	})
	reg.Register("anthropic", func(ctx context.Context, model string) (Provider, error) {
		return nil, ErrMissingCredential
	})

	assert.Equal(t, []string{"anthropic", "ollama"}, reg.Names())

	p, err := reg.Get(context.Background(), "OLLAMA", "qwen3")
	require.NoError(t, err)
	assert.Equal(t, "qwen3", p.(*OllamaProvider).Model)

	_, err = reg.Get(context.Background(), "anthropic", "")
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = reg.Get(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
