package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/alira/internal/ai"
	"github.com/suPer8Hu/alira/internal/chat"
	"github.com/suPer8Hu/alira/internal/httpapi"
	"github.com/suPer8Hu/alira/internal/httpapi/handlers"
	"github.com/suPer8Hu/alira/internal/metrics"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeProvider streams fragments and then fails with err when it is set.
type fakeProvider struct {
	fragments []string
	err       error
	requests  chan ai.ChatRequest
}

func (p *fakeProvider) Chat(ctx context.Context, req ai.ChatRequest) (string, error) {
	return "", errors.New("not used")
}

func (p *fakeProvider) StreamChat(ctx context.Context, req ai.ChatRequest) (<-chan string, <-chan error) {
	if p.requests != nil {
		p.requests <- req
	}
	chunks := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		for _, f := range p.fragments {
			select {
			case chunks <- f:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}
		if p.err != nil {
			errs <- p.err
		}
	}()
	return chunks, errs
}

func newTestServer(t *testing.T, factory ai.ProviderFactory) *httptest.Server {
	t.Helper()
	reg := ai.NewRegistry()
	reg.Register("fake", factory)
	relay := chat.NewRelay(reg, chat.RelayOptions{
		Provider:     "fake",
		SystemPrompt: "be brief",
		MaxTokens:    500,
	})
	collector := metrics.NewCollector("alira")
	h := handlers.NewHandler(relay, collector, zap.NewNop(), "fake")
	srv := httptest.NewServer(httpapi.NewRouter(h, collector, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func serving(p ai.Provider) ai.ProviderFactory {
	return func(ctx context.Context, model string) (ai.Provider, error) { return p, nil }
}

func postTurn(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

const helloTurn = `{"userMessage":"Hello","conversationHistory":[{"id":"1","role":"user","content":"Hello","timestamp":"2024-05-01T12:00:00Z"}]}`

func TestStreamChatRelaysFragments(t *testing.T) {
	p := &fakeProvider{fragments: []string{"Hi", " there", "!"}, requests: make(chan ai.ChatRequest, 1)}
	srv := newTestServer(t, serving(p))

	resp := postTurn(t, srv, helloTurn)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", string(body))

	req := <-p.requests
	assert.Equal(t, "be brief", req.System)
	assert.Equal(t, 500, req.MaxTokens)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, ai.Message{Role: "user", Content: "Hello"}, req.Messages[len(req.Messages)-1])
}

func TestStreamChatEmptyReply(t *testing.T) {
	srv := newTestServer(t, serving(&fakeProvider{}))

	resp := postTurn(t, srv, helloTurn)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestStreamChatRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, serving(&fakeProvider{fragments: []string{"x"}}))

	for name, body := range map[string]string{
		"malformed json": `{"userMessage":`,
		"bad role":       `{"userMessage":"hi","conversationHistory":[{"id":"1","role":"system","content":"x"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := postTurn(t, srv, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, errorBody(t, resp))
		})
	}
}

func TestStreamChatMissingCredential(t *testing.T) {
	srv := newTestServer(t, func(ctx context.Context, model string) (ai.Provider, error) {
		return nil, ai.ErrMissingCredential
	})

	resp := postTurn(t, srv, helloTurn)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "API key not configured", errorBody(t, resp))
}

func TestStreamChatProviderFailsBeforeFirstFragment(t *testing.T) {
	srv := newTestServer(t, serving(&fakeProvider{err: errors.New("upstream 503")}))

	resp := postTurn(t, srv, helloTurn)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to process chat message", errorBody(t, resp))
}

func TestStreamChatProviderFailsMidStream(t *testing.T) {
	srv := newTestServer(t, serving(&fakeProvider{
		fragments: []string{"Wor"},
		err:       errors.New("connection reset"),
	}))

	resp := postTurn(t, srv, helloTurn)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	assert.Equal(t, "Wor", string(body))
	assert.Error(t, err, "an aborted stream must not look like a clean end")
}

func TestPing(t *testing.T) {
	srv := newTestServer(t, serving(&fakeProvider{}))

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pong", body["message"])
	assert.Equal(t, "fake", body["provider"])
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t, serving(&fakeProvider{}))

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "route not found", errorBody(t, resp))

	resp2, err := http.Get(srv.URL + "/api/chat")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, serving(&fakeProvider{fragments: []string{"Hi"}}))

	resp := postTurn(t, srv, helloTurn)
	_, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	out, err := io.ReadAll(m.Body)
	require.NoError(t, err)

	assert.Contains(t, string(out), `alira_turns_total{outcome="completed",provider="fake"} 1`)
	assert.Contains(t, string(out), "alira_fragments_total 1")
}
