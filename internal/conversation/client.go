package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/suPer8Hu/alira/internal/chat"
)

// TransportError covers everything that keeps a turn from streaming on the
// client side: network failures, non-200 answers and broken bodies.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return "conversation: transport: " + e.Err.Error()
	case e.Message != "":
		return fmt.Sprintf("conversation: status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("conversation: status %d", e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// TurnSender delivers one turn and returns the streamed reply body.
type TurnSender interface {
	SendTurn(ctx context.Context, req chat.TurnRequest) (io.ReadCloser, error)
}

// Client talks to the relay over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	// no client timeout: replies stream for as long as they take, the
	// caller's context bounds the turn
	return &Client{BaseURL: baseURL, HTTP: &http.Client{}}
}

func (c *Client) SendTurn(ctx context.Context, turn chat.TurnRequest) (io.ReadCloser, error) {
	b, err := json.Marshal(turn)
	if err != nil {
		return nil, err
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		var decoded struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
			msg = decoded.Error
		}
		return nil, &TransportError{Status: resp.StatusCode, Message: msg}
	}
	return resp.Body, nil
}
