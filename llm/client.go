// Package llm provides a provider-agnostic client for the external LLM
// service. The pipeline issues exactly one call per stage; retry policy
// belongs to the caller, so the client performs none of its own.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseSize limits the LLM response body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Endpoint describes the configured LLM service endpoint.
type Endpoint struct {
	// Provider is the provider identifier ("anthropic", "openai", "ollama").
	Provider string
	// Model is the provider model identifier.
	Model string
	// BaseURL overrides the provider default URL when non-empty.
	BaseURL string
	// Temperature is the default sampling temperature applied when a
	// request does not set its own. nil leaves the provider default.
	Temperature *float64
	// Timeout bounds a single call at the transport layer.
	Timeout time.Duration
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`    // "system", "user", or "assistant"
	Content string `json:"content"` // Message content
}

// Request defines a single completion request.
type Request struct {
	// Messages is the chat history to send to the LLM.
	Messages []Message

	// Temperature controls randomness. nil uses endpoint default, 0 is deterministic.
	Temperature *float64

	// MaxTokens limits response length. 0 uses endpoint default.
	MaxTokens int
}

// TokenUsage represents token consumption details for an LLM call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response contains the LLM completion result.
type Response struct {
	// Content is the generated text.
	Content string

	// Model is the actual model that was used.
	Model string

	// Usage contains token consumption metrics.
	Usage TokenUsage

	// FinishReason indicates why generation stopped.
	FinishReason string
}

// Completer is the call surface the pipeline depends on. *Client implements
// it; tests substitute a mock.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client sends completion requests to a single configured endpoint.
type Client struct {
	endpoint   Endpoint
	provider   Provider
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a client for the given endpoint. An unknown provider or
// missing credentials are reported here so misconfiguration fails at
// startup, not at request time.
func NewClient(ep Endpoint, opts ...ClientOption) (*Client, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, fmt.Errorf("unknown LLM provider: %s (registered: %v)", ep.Provider, ListProviders())
	}
	if err := provider.CheckAuth(); err != nil {
		return nil, fmt.Errorf("provider %s: %w", ep.Provider, err)
	}
	if ep.Model == "" {
		return nil, fmt.Errorf("LLM model is required")
	}

	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second // Allow time for LLM responses
	}

	c := &Client{
		endpoint:   ep,
		provider:   provider,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete sends a single completion request. Errors are classified as
// transient or fatal (see errors.go); the client never retries.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if len(req.Messages) == 0 {
		return nil, NewFatalError(fmt.Errorf("at least one message is required"))
	}

	temperature := req.Temperature
	if temperature == nil {
		temperature = c.endpoint.Temperature
	}

	url := c.provider.BuildURL(c.endpoint.BaseURL)
	body, err := c.provider.BuildRequestBody(c.endpoint.Model, req.Messages, temperature, req.MaxTokens)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	c.logger.Debug("sending LLM request",
		"provider", c.endpoint.Provider,
		"model", c.endpoint.Model,
		"url", url,
		"messages", len(req.Messages))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are transient
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	return c.provider.ParseResponse(respBody, c.endpoint.Model)
}

// classifyHTTPError determines if an HTTP error is transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("LLM API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		// Rate limiting is transient
		return NewTransientError(err)
	case statusCode >= 500:
		// Server errors are transient
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		// Auth errors are fatal
		return NewFatalError(err)
	default:
		// Remaining 4xx errors are fatal
		return NewFatalError(err)
	}
}
