// Package deepseek is the outbound side of the relay: a single POST to the
// DeepSeek chat-completions endpoint with a bearer credential.
package deepseek

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultURL is the DeepSeek chat-completions endpoint.
const DefaultURL = "https://api.deepseek.com/chat/completions"

// DefaultMaxResponseBytes bounds how much of an upstream body is buffered.
const DefaultMaxResponseBytes = 20 << 20

// ErrResponseTooLarge is returned when the upstream body exceeds the limit.
var ErrResponseTooLarge = errors.New("upstream response too large")

// Response is an upstream reply read fully into memory.
type Response struct {
	StatusCode int
	Body       []byte
}

// Client sends chat-completion bodies upstream. It never retries.
type Client struct {
	httpClient       *http.Client
	url              string
	maxResponseBytes int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxResponseBytes sets the buffered response limit.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// NewClient creates a Client for the given endpoint. An empty url means DefaultURL.
// The client has no timeout of its own; deadlines come from the caller's context.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		httpClient:       &http.Client{},
		url:              url,
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatCompletion posts body to the endpoint and returns the raw reply.
// Non-2xx replies are not errors; only transport failures are.
func (c *Client) ChatCompletion(ctx context.Context, apiKey string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("deepseek: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepseek: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("deepseek: reading response: %w", err)
	}
	if int64(len(data)) > c.maxResponseBytes {
		return nil, fmt.Errorf("deepseek: %w (limit %d bytes)", ErrResponseTooLarge, c.maxResponseBytes)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}
