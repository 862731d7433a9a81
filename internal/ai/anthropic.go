package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicVersion = "2023-06-01"
	defaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	defaultMaxTokens        = 500
)

// ErrIncompleteStream is reported when the upstream connection ends before
// the provider signalled completion.
var ErrIncompleteStream = errors.New("ai: stream ended before completion signal")

type AnthropicProvider struct {
	BaseURL string
	APIKey  string
	Version string
	Model   string
	Client  *http.Client
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicReq struct {
	Model     string         `json:"model"`
	System    string         `json:"system,omitempty"`
	Messages  []anthropicMsg `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
	Stream    bool           `json:"stream,omitempty"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResp struct {
	Content []anthropicContent `json:"content"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// anthropicEvent covers the event kinds of the Messages streaming protocol:
// message_start, content_block_start, content_block_delta,
// content_block_stop, message_delta, message_stop, ping and error.
type anthropicEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta,omitempty"`
	Error *anthropicError `json:"error,omitempty"`
}

func NewAnthropicProvider(baseURL, apiKey, model string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Version: defaultAnthropicVersion,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *AnthropicProvider) newRequest(ctx context.Context, req ChatRequest, stream bool) (*http.Request, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, ErrMissingCredential
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	msgs := make([]anthropicMsg, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, anthropicMsg{Role: m.Role, Content: m.Content})
	}

	b, err := json.Marshal(anthropicReq{
		Model:     p.Model,
		System:    req.System,
		Messages:  msgs,
		MaxTokens: maxTokens,
		Stream:    stream,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/messages", strings.TrimRight(p.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	version := p.Version
	if version == "" {
		version = defaultAnthropicVersion
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.APIKey)
	httpReq.Header.Set("anthropic-version", version)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	return httpReq, nil
}

func (p *AnthropicProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if p.Client == nil {
		return "", errors.New("anthropic: http client is nil")
	}
	httpReq, err := p.newRequest(ctx, req, false)
	if err != nil {
		return "", err
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", anthropicStatusError(resp)
	}

	var decoded anthropicResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range decoded.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String(), nil
}

// StreamChat streams the text deltas of a Messages API response. Every other
// event kind is consumed silently.
func (p *AnthropicProvider) StreamChat(ctx context.Context, req ChatRequest) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if p.Client == nil {
			errs <- errors.New("anthropic: http client is nil")
			return
		}
		httpReq, err := p.newRequest(ctx, req, true)
		if err != nil {
			errs <- err
			return
		}

		// no global timeout while streaming; ctx controls it
		client := *p.Client
		client.Timeout = 0

		resp, err := client.Do(httpReq)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errs <- anthropicStatusError(resp)
			return
		}

		completed, err := readSSEData(resp.Body, func(data string) (bool, error) {
			var ev anthropicEvent
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				return false, err
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta != nil && ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
					if !emit(ctx, chunks, ev.Delta.Text) {
						return false, ctx.Err()
					}
				}
			case "message_stop":
				return true, nil
			case "error":
				if ev.Error != nil {
					return false, fmt.Errorf("anthropic: %s: %s", ev.Error.Type, ev.Error.Message)
				}
				return false, errors.New("anthropic: stream error")
			}
			return false, nil
		})
		if err != nil {
			errs <- err
			return
		}
		if !completed {
			errs <- ErrIncompleteStream
		}
	}()

	return chunks, errs
}

func anthropicStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	var decoded struct {
		Error *anthropicError `json:"error"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != nil && decoded.Error.Message != "" {
		return fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, decoded.Error.Message)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("anthropic: %s", msg)
}
