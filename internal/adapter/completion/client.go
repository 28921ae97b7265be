// Package completion streams chat completions from an OpenAI-compatible
// inference endpoint.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
)

// Message is a single turn in the conversation sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to the /chat/completions endpoint of an OpenAI-compatible
// inference provider.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// Stream opens a streaming completion. The caller owns the returned Stream
// and must Close it.
func (c *Client) Stream(ctx context.Context, messages []Message) (*Stream, error) {
	reqBody := completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		Stream:      true,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("completion request returned status %d: %s", resp.StatusCode, string(body))
	}

	return newStream(resp.Body), nil
}

// Stream yields content deltas from an open completion response.
type Stream struct {
	body io.ReadCloser
	dec  *frameDecoder
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{body: body, dec: newFrameDecoder(body)}
}

// Next returns the next non-empty content delta. It returns io.EOF once the
// upstream signals completion or the response body is drained.
func (s *Stream) Next() (string, error) {
	for {
		delta, err := s.dec.next()
		if err != nil {
			return "", err
		}
		if delta != "" {
			return delta, nil
		}
	}
}

func (s *Stream) Close() error {
	return s.body.Close()
}
