package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

// DefaultCompletionEndpoint is the Hugging Face router's OpenAI-compatible endpoint.
const DefaultCompletionEndpoint = "https://router.huggingface.co/v1/chat/completions"

// CompletionClient posts OpenAI-style chat completions to a single endpoint.
// The model travels in the request body, so one client serves every
// candidate of the cascade.
type CompletionClient struct {
	endpoint   string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// CompletionOption customizes the client.
type CompletionOption func(*CompletionClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) CompletionOption {
	return func(c *CompletionClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewCompletionClient constructs a client for endpoint. An empty token sends
// no Authorization header.
func NewCompletionClient(endpoint, token string, timeout time.Duration, opts ...CompletionOption) *CompletionClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &CompletionClient{
		endpoint:   strings.TrimSpace(endpoint),
		token:      strings.TrimSpace(token),
		timeout:    timeout,
		httpClient: &http.Client{Transport: &CapturingTransport{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = DefaultCompletionEndpoint
	}
	return c
}

// Name implements Provider
func (c *CompletionClient) Name() string {
	return "completion"
}

// Endpoint returns the URL requests are posted to.
func (c *CompletionClient) Endpoint() string {
	return c.endpoint
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete implements Provider. Any non-2xx answer comes back as an
// *UpstreamError carrying the status and body.
func (c *CompletionClient) Complete(ctx context.Context, req ChatRequest) ([]byte, error) {
	payload := completionRequest{
		Model: req.Model,
		Messages: []completionMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserMessage},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newUpstreamError(c.Name(), req.Model, 0, nil, fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, newUpstreamError(c.Name(), req.Model, 0, nil, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, newUpstreamError(c.Name(), req.Model, 0, nil, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptureBytes))
	if err != nil {
		return nil, newUpstreamError(c.Name(), req.Model, 0, nil, fmt.Errorf("read response: %w", err))
	}

	L_debug("completion: response", "model", req.Model, "status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newUpstreamError(c.Name(), req.Model, resp.StatusCode, respBody, nil)
	}
	return respBody, nil
}
