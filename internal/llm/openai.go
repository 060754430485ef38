package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

// OpenAIProvider implements Provider for OpenAI-compatible APIs.
// Works with OpenAI and any compatible server via BaseURL.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	baseURL string
	timeout time.Duration
}

// NewOpenAIProvider creates an OpenAI-compatible provider from ProviderConfig.
func NewOpenAIProvider(cfg ProviderConfig) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		L_warn("openai: no API key configured, upstream will likely answer 401")
	}

	config := openai.DefaultConfig(apiKey)
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		// Ensure the URL ends with /v1 for OpenAI-compatible APIs
		if !strings.HasSuffix(baseURL, "/v1") && !strings.HasSuffix(baseURL, "/v1/") {
			baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
		}
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Transport: &CapturingTransport{}}

	model := cfg.Model
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	displayURL := baseURL
	if displayURL == "" {
		displayURL = "(default)"
	}
	L_debug("openai provider created", "baseURL", displayURL, "model", model, "timeout", cfg.timeout())

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		baseURL: baseURL,
		timeout: cfg.timeout(),
	}, nil
}

// Name implements Provider
func (p *OpenAIProvider) Name() string {
	return DriverOpenAI
}

// Model returns the model used when the request names none.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Complete implements Provider
func (p *OpenAIProvider) Complete(ctx context.Context, req ChatRequest) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	capture := NewRequestCapture()
	ctx = WithRequestCapture(ctx, capture)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserMessage},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: openAITemperature(req.Temperature),
	})
	if err != nil {
		return nil, p.upstreamError(model, err, capture)
	}

	if status, body := capture.Response(); status >= 200 && status < 300 && len(body) > 0 {
		return body, nil
	}
	// Only reachable with a transport that bypasses the capture
	return json.Marshal(resp)
}

// upstreamError extracts the HTTP status from the SDK error and pairs it
// with the captured response body.
func (p *OpenAIProvider) upstreamError(model string, err error, capture *RequestCapture) *UpstreamError {
	var status int
	var body []byte

	// RequestError may wrap an APIError without a status, so check it first
	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
		body = reqErr.Body
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	}
	if capStatus, capBody := capture.Failure(); capStatus != 0 {
		status = capStatus
		if len(capBody) > 0 {
			body = capBody
		}
	}
	return newUpstreamError(p.Name(), model, status, body, err)
}

// openAITemperature maps a temperature onto the SDK field. The SDK omits a
// zero value, so an exact 0 is sent as the smallest non-zero float32.
func openAITemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
